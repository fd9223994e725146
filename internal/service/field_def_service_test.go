package service

import (
	"context"
	"testing"

	"parish-data/internal/domain"
	"parish-data/internal/repository"
	"parish-data/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFieldDefService() *FieldDefService {
	return NewFieldDefService(repository.NewMemoryFieldDefsRepository(), store.NewMemoryKV(), zap.NewNop())
}

func TestCreateFieldDef_DerivesKeyFromLabel(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	resp, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label: "Date of Birth!",
		Type:  string(domain.FieldTypeDate),
	})
	require.NoError(t, err)
	assert.Equal(t, "date_of_birth", resp.Key)
	assert.NotEmpty(t, resp.FieldID)
}

func TestCreateFieldDef_RejectsDuplicateKey(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	_, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Baptism Date", Type: string(domain.FieldTypeDate)})
	require.NoError(t, err)

	// 不同Label派生出相同key也要拒绝
	_, err = svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Baptism  Date!!", Type: string(domain.FieldTypeText)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateFieldDef_OptionsRequiredForSelect(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	_, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label: "Membership Class",
		Type:  string(domain.FieldTypeSelect),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options are required")

	_, err = svc.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label:   "Membership Class",
		Type:    string(domain.FieldTypeSelect),
		Options: []domain.FieldOption{{Value: "2024", Label: "Class of 2024"}},
	})
	require.NoError(t, err)
}

func TestCreateFieldDef_OrderIndexAppendsToEnd(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	_, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Alpha", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)
	_, err = svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Beta", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)

	resp, err := svc.ListFieldDefs(ctx, ListFieldDefsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "alpha", resp.Items[0].Key)
	assert.Equal(t, 1, resp.Items[0].OrderIndex)
	assert.Equal(t, "beta", resp.Items[1].Key)
	assert.Equal(t, 2, resp.Items[1].OrderIndex)
}

func TestArchiveFieldDef_HiddenFromActiveList(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	created, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Old Field", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)

	require.NoError(t, svc.ArchiveFieldDef(ctx, created.FieldID))

	active, err := svc.ListActiveFieldDefs(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 0)

	// 管理页 include_archived 仍可见
	all, err := svc.ListFieldDefs(ctx, ListFieldDefsRequest{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.True(t, all.Items[0].Archived)
}

func TestReorderFieldDefs_RewritesContiguousOrder(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	a, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "A", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)
	b, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "B", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)
	c, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "C", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)

	require.NoError(t, svc.ReorderFieldDefs(ctx, ReorderFieldDefsRequest{
		OrderedFieldIDs: []string{c.FieldID, a.FieldID, b.FieldID},
	}))

	active, err := svc.ListActiveFieldDefs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "c", active[0].Key)
	assert.Equal(t, 1, active[0].OrderIndex)
	assert.Equal(t, "a", active[1].Key)
	assert.Equal(t, 2, active[1].OrderIndex)
	assert.Equal(t, "b", active[2].Key)
	assert.Equal(t, 3, active[2].OrderIndex)
}

func TestReorderFieldDefs_RejectsPartialCover(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	a, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "A", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)
	_, err = svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "B", Type: string(domain.FieldTypeText)})
	require.NoError(t, err)

	err = svc.ReorderFieldDefs(ctx, ReorderFieldDefsRequest{OrderedFieldIDs: []string{a.FieldID}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must cover all")

	err = svc.ReorderFieldDefs(ctx, ReorderFieldDefsRequest{OrderedFieldIDs: []string{a.FieldID, a.FieldID}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestUpdateFieldDef_KeyAndTypeImmutable(t *testing.T) {
	svc := setupFieldDefService()
	ctx := context.Background()

	created, err := svc.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Notes", Type: string(domain.FieldTypeTextarea)})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateFieldDef(ctx, UpdateFieldDefRequest{
		FieldID:    created.FieldID,
		Label:      "Pastoral Notes",
		Visibility: string(domain.FieldVisibilityStaffOnly),
	}))

	resp, err := svc.ListFieldDefs(ctx, ListFieldDefsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "notes", resp.Items[0].Key) // key不随label变化
	assert.Equal(t, string(domain.FieldTypeTextarea), resp.Items[0].Type)
	assert.Equal(t, "Pastoral Notes", resp.Items[0].Label)
	assert.Equal(t, string(domain.FieldVisibilityStaffOnly), resp.Items[0].Visibility)
}

func TestSlugifyKey(t *testing.T) {
	cases := map[string]string{
		"Date of Birth!":   "date_of_birth",
		"  Emergency   Contact  ": "emergency_contact",
		"T-Shirt Size":     "t_shirt_size",
		"已有键123":            "123",
		"!!!":              "",
	}
	for label, want := range cases {
		assert.Equal(t, want, domain.SlugifyKey(label), "label=%q", label)
	}
}
