package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresFieldDefsRepository 自定义字段定义Repository实现
type PostgresFieldDefsRepository struct {
	db *sql.DB
}

// NewPostgresFieldDefsRepository 创建字段定义Repository
func NewPostgresFieldDefsRepository(db *sql.DB) *PostgresFieldDefsRepository {
	return &PostgresFieldDefsRepository{db: db}
}

var _ FieldDefsRepository = (*PostgresFieldDefsRepository)(nil)

const fieldDefColumns = `
	field_id::text,
	field_key,
	label,
	field_type,
	COALESCE(options, '[]'::jsonb),
	required,
	visibility,
	order_index,
	archived,
	created_at,
	updated_at
`

func scanFieldDef(row interface{ Scan(...any) error }) (*domain.FieldDef, error) {
	var d domain.FieldDef
	var options []byte
	err := row.Scan(
		&d.FieldID,
		&d.Key,
		&d.Label,
		&d.Type,
		&options,
		&d.Required,
		&d.Visibility,
		&d.OrderIndex,
		&d.Archived,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Options = unmarshalOptions(options)
	return &d, nil
}

// GetFieldDef 根据field_id获取字段定义
func (r *PostgresFieldDefsRepository) GetFieldDef(ctx context.Context, fieldID string) (*domain.FieldDef, error) {
	if fieldID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT ` + fieldDefColumns + `
		FROM field_defs
		WHERE field_id = $1
	`

	d, err := scanFieldDef(r.db.QueryRowContext(ctx, query, fieldID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get field def: %w", err)
	}
	return d, nil
}

// GetFieldDefByKey 根据field_key获取字段定义
func (r *PostgresFieldDefsRepository) GetFieldDefByKey(ctx context.Context, key string) (*domain.FieldDef, error) {
	if key == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT ` + fieldDefColumns + `
		FROM field_defs
		WHERE field_key = $1
	`

	d, err := scanFieldDef(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get field def by key: %w", err)
	}
	return d, nil
}

// ListFieldDefs 查询字段定义（order_index升序）
func (r *PostgresFieldDefsRepository) ListFieldDefs(ctx context.Context, includeArchived bool) ([]*domain.FieldDef, error) {
	query := `
		SELECT ` + fieldDefColumns + `
		FROM field_defs
	`
	if !includeArchived {
		query += ` WHERE archived = FALSE`
	}
	query += ` ORDER BY order_index, field_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}
	defer rows.Close()

	defs := make([]*domain.FieldDef, 0)
	for rows.Next() {
		d, err := scanFieldDef(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field def: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// CreateFieldDef 创建字段定义
// order_index 在同一条INSERT里分配：COALESCE(MAX(order_index), 0) + 1
func (r *PostgresFieldDefsRepository) CreateFieldDef(ctx context.Context, def *domain.FieldDef) (string, error) {
	fieldID := def.FieldID
	if fieldID == "" {
		fieldID = uuid.NewString()
	}

	options, err := marshalOptions(def.Options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}

	query := `
		INSERT INTO field_defs (
			field_id, field_key, label, field_type, options, required,
			visibility, order_index, archived, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7,
			COALESCE(MAX(order_index), 0) + 1, FALSE, NOW(), NOW()
		FROM field_defs
		RETURNING field_id::text
	`

	var id string
	err = r.db.QueryRowContext(ctx, query,
		fieldID, def.Key, def.Label, def.Type, options, def.Required, def.Visibility,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create field def: %w", err)
	}
	return id, nil
}

// UpdateFieldDef 更新label/options/required/visibility
func (r *PostgresFieldDefsRepository) UpdateFieldDef(ctx context.Context, fieldID string, def *domain.FieldDef) error {
	if fieldID == "" {
		return fmt.Errorf("field_id is required")
	}

	options, err := marshalOptions(def.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	query := `
		UPDATE field_defs SET
			label = $2,
			options = $3,
			required = $4,
			visibility = $5,
			updated_at = NOW()
		WHERE field_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, fieldID, def.Label, options, def.Required, def.Visibility)
	if err != nil {
		return fmt.Errorf("failed to update field def: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetArchived 软删除/恢复
func (r *PostgresFieldDefsRepository) SetArchived(ctx context.Context, fieldID string, archived bool) error {
	if fieldID == "" {
		return fmt.Errorf("field_id is required")
	}

	query := `
		UPDATE field_defs SET archived = $2, updated_at = NOW()
		WHERE field_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, fieldID, archived)
	if err != nil {
		return fmt.Errorf("failed to set archived: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReorderFieldDefs 按orderedIDs的顺序重写order_index为1..N（单事务）
func (r *PostgresFieldDefsRepository) ReorderFieldDefs(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE field_defs SET order_index = $2, updated_at = NOW()
		WHERE field_id = $1
	`
	for i, fieldID := range orderedIDs {
		res, err := tx.ExecContext(ctx, query, fieldID, i+1)
		if err != nil {
			return fmt.Errorf("failed to reorder field def %s: %w", fieldID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("field def not found: %s", fieldID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}
