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

func setupPersonService() (*PersonService, *FieldDefService) {
	defService := NewFieldDefService(repository.NewMemoryFieldDefsRepository(), store.NewMemoryKV(), zap.NewNop())
	return NewPersonService(repository.NewMemoryPeopleRepository(), defService, zap.NewNop()), defService
}

func samplePeople() []*domain.Person {
	return []*domain.Person{
		{PersonID: "p1", FirstName: "John", LastName: "Doe", Email: "john@example.com", Status: "active", TagIDs: []string{"t-youth"}},
		{PersonID: "p2", FirstName: "Jane", LastName: "Smith", PreferredName: "JJ", Status: "visitor", TagIDs: []string{"t-staff"}},
		{PersonID: "p3", FirstName: "Mary", LastName: "Johnson", Phone: "555-0101", Status: "active",
			Fields: map[string]any{"campus": "north"}},
	}
}

func TestFilterPeople_EmptyFilterKeepsOrder(t *testing.T) {
	people := samplePeople()
	out := FilterPeople(people, PeopleFilter{})
	require.Len(t, out, 3)
	assert.Equal(t, "p1", out[0].PersonID)
	assert.Equal(t, "p3", out[2].PersonID)
}

func TestFilterPeople_SearchIsCaseInsensitive(t *testing.T) {
	people := samplePeople()

	out := FilterPeople(people, PeopleFilter{Search: "JOHN"})
	require.Len(t, out, 2) // John Doe 和 Mary Johnson
	assert.Equal(t, "p1", out[0].PersonID)
	assert.Equal(t, "p3", out[1].PersonID)

	// 曾用名和电话也参与匹配
	out = FilterPeople(people, PeopleFilter{Search: "jj"})
	require.Len(t, out, 1)
	assert.Equal(t, "p2", out[0].PersonID)

	out = FilterPeople(people, PeopleFilter{Search: "555-01"})
	require.Len(t, out, 1)
	assert.Equal(t, "p3", out[0].PersonID)
}

func TestFilterPeople_PredicatesCompose(t *testing.T) {
	people := samplePeople()

	// status AND search：各谓词独立生效
	out := FilterPeople(people, PeopleFilter{Search: "john", Status: "active"})
	require.Len(t, out, 2)

	out = FilterPeople(people, PeopleFilter{Search: "john", Status: "visitor"})
	assert.Len(t, out, 0)

	// tag交集
	out = FilterPeople(people, PeopleFilter{TagIDs: []string{"t-staff", "t-none"}})
	require.Len(t, out, 1)
	assert.Equal(t, "p2", out[0].PersonID)

	// 自定义字段精确相等
	out = FilterPeople(people, PeopleFilter{FieldEquals: map[string]any{"campus": "north"}})
	require.Len(t, out, 1)
	assert.Equal(t, "p3", out[0].PersonID)

	out = FilterPeople(people, PeopleFilter{FieldEquals: map[string]any{"campus": "south"}})
	assert.Len(t, out, 0)
}

func TestCreatePerson_Validation(t *testing.T) {
	svc, _ := setupPersonService()
	ctx := context.Background()

	_, err := svc.CreatePerson(ctx, SavePersonRequest{Role: domain.RoleAdmin, LastName: "Doe"})
	require.Error(t, err)

	_, err = svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "John", LastName: "Doe", Email: "not-an-email",
	})
	require.Error(t, err)

	_, err = svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "John", LastName: "Doe", Status: "deceased",
	})
	require.Error(t, err)
}

func TestCreatePerson_DefaultsAndNormalization(t *testing.T) {
	svc, _ := setupPersonService()
	ctx := context.Background()

	resp, err := svc.CreatePerson(ctx, SavePersonRequest{
		Role:      domain.RoleAdmin,
		FirstName: "  John ",
		LastName:  "Doe",
		Status:    "ACTIVE",
		TagIDs:    []string{"t1", "t1", "", "t2"},
	})
	require.NoError(t, err)

	item, err := svc.GetPerson(ctx, GetPersonRequest{PersonID: resp.PersonID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "John", item.FirstName)
	assert.Equal(t, "active", item.Status)
	assert.Equal(t, []string{"t1", "t2"}, item.TagIDs) // 去重去空
}

func TestCreatePerson_CoercesCustomFields(t *testing.T) {
	svc, defService := setupPersonService()
	ctx := context.Background()

	_, err := defService.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Baptism Date", Type: "date"})
	require.NoError(t, err)

	_, err = svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "John", LastName: "Doe",
		Fields: map[string]any{"baptism_date": "not a date"},
	})
	require.Error(t, err)

	resp, err := svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "John", LastName: "Doe",
		Fields: map[string]any{"baptism_date": "2020-06-01", "unknown_key": "dropped"},
	})
	require.NoError(t, err)

	item, err := svc.GetPerson(ctx, GetPersonRequest{PersonID: resp.PersonID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "2020-06-01", item.Fields["baptism_date"])
	_, ok := item.Fields["unknown_key"]
	assert.False(t, ok) // 未注册的key不落库
}

func TestGetPerson_StaffOnlyFieldsHiddenFromMembers(t *testing.T) {
	svc, defService := setupPersonService()
	ctx := context.Background()

	_, err := defService.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label: "Pastoral Notes", Type: "textarea", Visibility: string(domain.FieldVisibilityStaffOnly),
	})
	require.NoError(t, err)
	_, err = defService.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Campus", Type: "text"})
	require.NoError(t, err)

	resp, err := svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "Jane", LastName: "Smith",
		Fields: map[string]any{"pastoral_notes": "sensitive", "campus": "north"},
	})
	require.NoError(t, err)

	asMember, err := svc.GetPerson(ctx, GetPersonRequest{PersonID: resp.PersonID, Role: domain.RoleMember})
	require.NoError(t, err)
	_, ok := asMember.Fields["pastoral_notes"]
	assert.False(t, ok)
	assert.Equal(t, "north", asMember.Fields["campus"])

	asAdmin, err := svc.GetPerson(ctx, GetPersonRequest{PersonID: resp.PersonID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "sensitive", asAdmin.Fields["pastoral_notes"])
}

func TestUpdatePerson_PreservesStaffOnlyAndArchivedValues(t *testing.T) {
	svc, defService := setupPersonService()
	ctx := context.Background()

	staffField, err := defService.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label: "Pastoral Notes", Type: "textarea", Visibility: string(domain.FieldVisibilityStaffOnly),
	})
	require.NoError(t, err)
	_ = staffField

	created, err := svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "Jane", LastName: "Smith",
		Fields: map[string]any{"pastoral_notes": "keep me"},
	})
	require.NoError(t, err)

	// member提交的更新不能覆盖staff_only字段
	err = svc.UpdatePerson(ctx, SavePersonRequest{
		Role: domain.RoleMember, PersonID: created.PersonID,
		FirstName: "Jane", LastName: "Smith",
		Fields: map[string]any{},
	})
	require.NoError(t, err)

	asAdmin, err := svc.GetPerson(ctx, GetPersonRequest{PersonID: created.PersonID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "keep me", asAdmin.Fields["pastoral_notes"])
}

func TestUpdatePerson_PreservesHouseholdLink(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	peopleRepo := repository.NewMemoryPeopleRepository()
	defService := NewFieldDefService(repository.NewMemoryFieldDefsRepository(), store.NewMemoryKV(), logger)
	svc := NewPersonService(peopleRepo, defService, logger)
	households := NewHouseholdService(repository.NewMemoryHouseholdsRepository(), peopleRepo, logger)

	created, err := svc.CreatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, FirstName: "John", LastName: "Doe", Phone: "555-0100",
	})
	require.NoError(t, err)

	hh, err := households.CreateHousehold(ctx, "The Does")
	require.NoError(t, err)
	_, err = households.AddMember(ctx, AddMemberRequest{
		HouseholdID: hh.HouseholdID, PersonID: created.PersonID, Relationship: "head",
	})
	require.NoError(t, err)

	// 只改电话：household_id必须保持与成员关系一致
	err = svc.UpdatePerson(ctx, SavePersonRequest{
		Role: domain.RoleAdmin, PersonID: created.PersonID,
		FirstName: "John", LastName: "Doe", Phone: "555-0199",
	})
	require.NoError(t, err)

	p, err := svc.GetPerson(ctx, GetPersonRequest{PersonID: created.PersonID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "555-0199", p.Phone)
	assert.Equal(t, hh.HouseholdID, p.HouseholdID)
}

func TestListPeople_Pagination(t *testing.T) {
	svc, _ := setupPersonService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreatePerson(ctx, SavePersonRequest{
			Role: domain.RoleAdmin, FirstName: "Person", LastName: string(rune('A' + i)),
		})
		require.NoError(t, err)
	}

	resp, err := svc.ListPeople(ctx, ListPeopleRequest{Role: domain.RoleAdmin, Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 2, resp.Pagination.Size)
}
