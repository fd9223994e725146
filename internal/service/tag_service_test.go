package service

import (
	"context"
	"testing"

	"parish-data/internal/domain"
	"parish-data/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTagService() (*TagService, repository.PeopleRepository) {
	peopleRepo := repository.NewMemoryPeopleRepository()
	return NewTagService(repository.NewMemoryTagsRepository(), peopleRepo, zap.NewNop()), peopleRepo
}

func TestCreateTag_Validation(t *testing.T) {
	svc, _ := setupTagService()
	ctx := context.Background()

	_, err := svc.CreateTag(ctx, CreateTagRequest{TagName: "  "})
	require.Error(t, err)

	_, err = svc.CreateTag(ctx, CreateTagRequest{TagName: "Youth", Color: "blue"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid color")

	_, err = svc.CreateTag(ctx, CreateTagRequest{TagName: "Youth", Color: "#3B82F6"})
	require.NoError(t, err)

	// 同名拒绝
	_, err = svc.CreateTag(ctx, CreateTagRequest{TagName: "Youth"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestListTags_UsageCountsDerivedFromPeople(t *testing.T) {
	svc, peopleRepo := setupTagService()
	ctx := context.Background()

	youth, err := svc.CreateTag(ctx, CreateTagRequest{TagName: "Youth"})
	require.NoError(t, err)
	_, err = svc.CreateTag(ctx, CreateTagRequest{TagName: "Staff"})
	require.NoError(t, err)

	_, err = peopleRepo.CreatePerson(ctx, &domain.Person{
		FirstName: "John", LastName: "Doe", Status: "active", TagIDs: []string{youth.TagID},
	})
	require.NoError(t, err)
	_, err = peopleRepo.CreatePerson(ctx, &domain.Person{
		FirstName: "Jane", LastName: "Smith", Status: "active", TagIDs: []string{youth.TagID},
	})
	require.NoError(t, err)

	resp, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)

	counts := map[string]int{}
	for _, item := range resp.Items {
		counts[item.TagName] = item.UsageCount
	}
	assert.Equal(t, 2, counts["Youth"])
	assert.Equal(t, 0, counts["Staff"])
}

func TestDeleteTag_BlockedWhileInUse(t *testing.T) {
	svc, peopleRepo := setupTagService()
	ctx := context.Background()

	created, err := svc.CreateTag(ctx, CreateTagRequest{TagName: "Youth"})
	require.NoError(t, err)

	personID, err := peopleRepo.CreatePerson(ctx, &domain.Person{
		FirstName: "John", LastName: "Doe", Status: "active", TagIDs: []string{created.TagID},
	})
	require.NoError(t, err)

	err = svc.DeleteTag(ctx, created.TagID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still used by 1")

	// 解除引用后可删除
	p, err := peopleRepo.GetPerson(ctx, personID)
	require.NoError(t, err)
	p.TagIDs = nil
	require.NoError(t, peopleRepo.UpdatePerson(ctx, personID, p))

	require.NoError(t, svc.DeleteTag(ctx, created.TagID))

	resp, err := svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 0)
}

func TestUpdateTag_RenameCollision(t *testing.T) {
	svc, _ := setupTagService()
	ctx := context.Background()

	a, err := svc.CreateTag(ctx, CreateTagRequest{TagName: "Youth"})
	require.NoError(t, err)
	_, err = svc.CreateTag(ctx, CreateTagRequest{TagName: "Staff"})
	require.NoError(t, err)

	err = svc.UpdateTag(ctx, UpdateTagRequest{TagID: a.TagID, TagName: "Staff"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// 改回自己的名字不算冲突
	require.NoError(t, svc.UpdateTag(ctx, UpdateTagRequest{TagID: a.TagID, TagName: "Youth", Color: "#FF0000"}))
}
