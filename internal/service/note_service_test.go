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

func setupNoteService(t *testing.T) (*NoteService, string) {
	peopleRepo := repository.NewMemoryPeopleRepository()
	personID, err := peopleRepo.CreatePerson(context.Background(), &domain.Person{
		FirstName: "John", LastName: "Doe", Status: "active",
	})
	require.NoError(t, err)
	return NewNoteService(repository.NewMemoryNotesRepository(), peopleRepo, zap.NewNop()), personID
}

func TestCreateNote_DefaultsAndValidation(t *testing.T) {
	svc, personID := setupNoteService(t)
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, CreateNoteRequest{PersonID: personID, Body: "  "})
	require.Error(t, err)

	_, err = svc.CreateNote(ctx, CreateNoteRequest{PersonID: "missing", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "person not found")

	_, err = svc.CreateNote(ctx, CreateNoteRequest{PersonID: personID, Body: "hi", Visibility: "secret"})
	require.Error(t, err)

	_, err = svc.CreateNote(ctx, CreateNoteRequest{PersonID: personID, AuthorUserID: "u1", Body: "welcome visit"})
	require.NoError(t, err)

	resp, err := svc.ListNotes(ctx, ListNotesRequest{PersonID: personID, Role: domain.RoleMember})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, string(domain.NoteVisibilityOrg), resp.Items[0].Visibility) // 缺省org
	assert.Equal(t, "u1", resp.Items[0].AuthorUserID)
}

func TestListNotes_StaffOnlyHiddenFromMembers(t *testing.T) {
	svc, personID := setupNoteService(t)
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, CreateNoteRequest{PersonID: personID, Body: "public note"})
	require.NoError(t, err)
	_, err = svc.CreateNote(ctx, CreateNoteRequest{
		PersonID: personID, Body: "counseling details", Visibility: string(domain.NoteVisibilityStaffOnly),
	})
	require.NoError(t, err)

	asMember, err := svc.ListNotes(ctx, ListNotesRequest{PersonID: personID, Role: domain.RoleMember})
	require.NoError(t, err)
	require.Len(t, asMember.Items, 1)
	assert.Equal(t, "public note", asMember.Items[0].Body)

	asAdmin, err := svc.ListNotes(ctx, ListNotesRequest{PersonID: personID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, asAdmin.Items, 2)
}
