package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresNotesRepository 人员备注Repository实现
type PostgresNotesRepository struct {
	db *sql.DB
}

// NewPostgresNotesRepository 创建备注Repository
func NewPostgresNotesRepository(db *sql.DB) *PostgresNotesRepository {
	return &PostgresNotesRepository{db: db}
}

var _ NotesRepository = (*PostgresNotesRepository)(nil)

// ListNotesByPerson 查询指定person的备注（created_at降序）
func (r *PostgresNotesRepository) ListNotesByPerson(ctx context.Context, personID string) ([]*domain.Note, error) {
	if personID == "" {
		return []*domain.Note{}, nil
	}

	query := `
		SELECT note_id::text, person_id::text, author_user_id, body, visibility, created_at
		FROM notes
		WHERE person_id = $1
		ORDER BY created_at DESC, note_id
	`

	rows, err := r.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.NoteID, &n.PersonID, &n.AuthorUserID, &n.Body, &n.Visibility, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// CreateNote 创建备注
func (r *PostgresNotesRepository) CreateNote(ctx context.Context, n *domain.Note) (string, error) {
	noteID := n.NoteID
	if noteID == "" {
		noteID = uuid.NewString()
	}

	query := `
		INSERT INTO notes (note_id, person_id, author_user_id, body, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING note_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query, noteID, n.PersonID, n.AuthorUserID, n.Body, n.Visibility).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	return id, nil
}
