package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresHouseholdsRepository 家庭Repository实现
type PostgresHouseholdsRepository struct {
	db *sql.DB
}

// NewPostgresHouseholdsRepository 创建家庭Repository
func NewPostgresHouseholdsRepository(db *sql.DB) *PostgresHouseholdsRepository {
	return &PostgresHouseholdsRepository{db: db}
}

var _ HouseholdsRepository = (*PostgresHouseholdsRepository)(nil)

// GetHousehold 根据household_id获取household
func (r *PostgresHouseholdsRepository) GetHousehold(ctx context.Context, householdID string) (*domain.Household, error) {
	if householdID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT household_id::text, name, created_at, updated_at
		FROM households
		WHERE household_id = $1
	`

	var h domain.Household
	err := r.db.QueryRowContext(ctx, query, householdID).Scan(
		&h.HouseholdID, &h.Name, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return &h, nil
}

// ListHouseholds 查询全部households
func (r *PostgresHouseholdsRepository) ListHouseholds(ctx context.Context) ([]*domain.Household, error) {
	query := `
		SELECT household_id::text, name, created_at, updated_at
		FROM households
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	households := make([]*domain.Household, 0)
	for rows.Next() {
		var h domain.Household
		if err := rows.Scan(&h.HouseholdID, &h.Name, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		households = append(households, &h)
	}
	return households, rows.Err()
}

// CreateHousehold 创建household
func (r *PostgresHouseholdsRepository) CreateHousehold(ctx context.Context, h *domain.Household) (string, error) {
	householdID := h.HouseholdID
	if householdID == "" {
		householdID = uuid.NewString()
	}

	query := `
		INSERT INTO households (household_id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING household_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query, householdID, h.Name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create household: %w", err)
	}
	return id, nil
}

// UpdateHousehold 更新household名称
func (r *PostgresHouseholdsRepository) UpdateHousehold(ctx context.Context, householdID, name string) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}

	query := `
		UPDATE households SET name = $2, updated_at = NOW()
		WHERE household_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, householdID, name)
	if err != nil {
		return fmt.Errorf("failed to update household: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMembers 查询指定household的成员
func (r *PostgresHouseholdsRepository) ListMembers(ctx context.Context, householdID string) ([]*domain.HouseholdMember, error) {
	if householdID == "" {
		return []*domain.HouseholdMember{}, nil
	}

	query := `
		SELECT member_id::text, household_id::text, person_id::text, relationship, created_at
		FROM household_members
		WHERE household_id = $1
		ORDER BY created_at, member_id
	`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list household members: %w", err)
	}
	defer rows.Close()

	members := make([]*domain.HouseholdMember, 0)
	for rows.Next() {
		var m domain.HouseholdMember
		if err := rows.Scan(&m.MemberID, &m.HouseholdID, &m.PersonID, &m.Relationship, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan household member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// GetMemberByPerson 查询person当前的成员记录
func (r *PostgresHouseholdsRepository) GetMemberByPerson(ctx context.Context, personID string) (*domain.HouseholdMember, error) {
	if personID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT member_id::text, household_id::text, person_id::text, relationship, created_at
		FROM household_members
		WHERE person_id = $1
		LIMIT 1
	`

	var m domain.HouseholdMember
	err := r.db.QueryRowContext(ctx, query, personID).Scan(
		&m.MemberID, &m.HouseholdID, &m.PersonID, &m.Relationship, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get member by person: %w", err)
	}
	return &m, nil
}

// AddMember 添加成员
func (r *PostgresHouseholdsRepository) AddMember(ctx context.Context, m *domain.HouseholdMember) (string, error) {
	memberID := m.MemberID
	if memberID == "" {
		memberID = uuid.NewString()
	}

	query := `
		INSERT INTO household_members (member_id, household_id, person_id, relationship, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING member_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query, memberID, m.HouseholdID, m.PersonID, m.Relationship).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to add household member: %w", err)
	}
	return id, nil
}

// UpdateMemberRelationship 更新成员关系
func (r *PostgresHouseholdsRepository) UpdateMemberRelationship(ctx context.Context, memberID, relationship string) error {
	if memberID == "" {
		return fmt.Errorf("member_id is required")
	}

	query := `
		UPDATE household_members SET relationship = $2
		WHERE member_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, memberID, relationship)
	if err != nil {
		return fmt.Errorf("failed to update member relationship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RemoveMember 删除成员记录
func (r *PostgresHouseholdsRepository) RemoveMember(ctx context.Context, memberID string) error {
	if memberID == "" {
		return fmt.Errorf("member_id is required")
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM household_members WHERE member_id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove household member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
