package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresTagsRepository 标签Repository实现
type PostgresTagsRepository struct {
	db *sql.DB
}

// NewPostgresTagsRepository 创建标签Repository
func NewPostgresTagsRepository(db *sql.DB) *PostgresTagsRepository {
	return &PostgresTagsRepository{db: db}
}

var _ TagsRepository = (*PostgresTagsRepository)(nil)

// GetTag 根据tag_id获取tag
func (r *PostgresTagsRepository) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	if tagID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT tag_id::text, tag_name, COALESCE(color, ''), created_at
		FROM tags_catalog
		WHERE tag_id = $1
	`

	var tag domain.Tag
	err := r.db.QueryRowContext(ctx, query, tagID).Scan(
		&tag.TagID, &tag.TagName, &tag.Color, &tag.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// GetTagByName 根据tag_name获取tag
func (r *PostgresTagsRepository) GetTagByName(ctx context.Context, tagName string) (*domain.Tag, error) {
	if tagName == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT tag_id::text, tag_name, COALESCE(color, ''), created_at
		FROM tags_catalog
		WHERE tag_name = $1
	`

	var tag domain.Tag
	err := r.db.QueryRowContext(ctx, query, tagName).Scan(
		&tag.TagID, &tag.TagName, &tag.Color, &tag.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}
	return &tag, nil
}

// ListTags 查询全部tags
func (r *PostgresTagsRepository) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	query := `
		SELECT tag_id::text, tag_name, COALESCE(color, ''), created_at
		FROM tags_catalog
		ORDER BY tag_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]*domain.Tag, 0)
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.TagID, &tag.TagName, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}

// CreateTag 创建tag
func (r *PostgresTagsRepository) CreateTag(ctx context.Context, tag *domain.Tag) (string, error) {
	tagID := tag.TagID
	if tagID == "" {
		tagID = uuid.NewString()
	}

	query := `
		INSERT INTO tags_catalog (tag_id, tag_name, color, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW())
		RETURNING tag_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query, tagID, tag.TagName, tag.Color).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create tag: %w", err)
	}
	return id, nil
}

// UpdateTag 更新tag_name/color
func (r *PostgresTagsRepository) UpdateTag(ctx context.Context, tagID, tagName, color string) error {
	if tagID == "" {
		return fmt.Errorf("tag_id is required")
	}

	query := `
		UPDATE tags_catalog SET tag_name = $2, color = NULLIF($3, '')
		WHERE tag_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, tagID, tagName, color)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTag 删除tag
func (r *PostgresTagsRepository) DeleteTag(ctx context.Context, tagID string) error {
	if tagID == "" {
		return fmt.Errorf("tag_id is required")
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM tags_catalog WHERE tag_id = $1`, tagID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
