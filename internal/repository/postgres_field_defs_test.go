package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parish-data/internal/domain"
)

func setupFieldDefsMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresFieldDefsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresFieldDefsRepository(db)
	return db, mock, repo
}

var fieldDefTestColumns = []string{
	"field_id", "field_key", "label", "field_type", "options",
	"required", "visibility", "order_index", "archived", "created_at", "updated_at",
}

func TestListFieldDefs_ExcludesArchived(t *testing.T) {
	db, mock, repo := setupFieldDefsMockDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(fieldDefTestColumns).
		AddRow("f-1", "date_of_birth", "Date of Birth", "date", []byte(`[]`),
			false, "member", 1, false, now, now).
		AddRow("f-2", "shirt_size", "Shirt Size", "select",
			[]byte(`[{"value":"s","label":"S"},{"value":"m","label":"M"}]`),
			false, "member", 2, false, now, now)

	mock.ExpectQuery(`SELECT(.|\n)*FROM field_defs(.|\n)*WHERE archived = FALSE`).
		WillReturnRows(rows)

	defs, err := repo.ListFieldDefs(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "date_of_birth", defs[0].Key)
	assert.Equal(t, 1, defs[0].OrderIndex)
	assert.Equal(t, "shirt_size", defs[1].Key)
	require.Len(t, defs[1].Options, 2)
	assert.Equal(t, "s", defs[1].Options[0].Value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFieldDef_AssignsNextOrderIndex(t *testing.T) {
	db, mock, repo := setupFieldDefsMockDB(t)
	defer db.Close()

	def := &domain.FieldDef{
		FieldID:    "f-9",
		Key:        "emergency_contact",
		Label:      "Emergency Contact",
		Type:       "text",
		Visibility: "staff_only",
	}

	// order_index 由INSERT里的 COALESCE(MAX(order_index), 0) + 1 分配
	mock.ExpectQuery(`INSERT INTO field_defs`).
		WithArgs("f-9", "emergency_contact", "Emergency Contact", "text",
			[]byte(`[]`), false, "staff_only").
		WillReturnRows(sqlmock.NewRows([]string{"field_id"}).AddRow("f-9"))

	id, err := repo.CreateFieldDef(context.Background(), def)

	require.NoError(t, err)
	assert.Equal(t, "f-9", id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReorderFieldDefs_SingleTransaction(t *testing.T) {
	db, mock, repo := setupFieldDefsMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE field_defs SET order_index`).
		WithArgs("f-2", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE field_defs SET order_index`).
		WithArgs("f-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReorderFieldDefs(context.Background(), []string{"f-2", "f-1"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReorderFieldDefs_UnknownFieldRollsBack(t *testing.T) {
	db, mock, repo := setupFieldDefsMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE field_defs SET order_index`).
		WithArgs("f-missing", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReorderFieldDefs(context.Background(), []string{"f-missing"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "field def not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFieldDef_NotFound(t *testing.T) {
	db, mock, repo := setupFieldDefsMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE field_defs SET`).
		WithArgs("f-missing", "Label", []byte(`[]`), false, "member").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateFieldDef(context.Background(), "f-missing", &domain.FieldDef{
		Label:      "Label",
		Visibility: "member",
	})

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
