package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresPeopleRepository 人员Repository实现（强类型版本）
type PostgresPeopleRepository struct {
	db *sql.DB
}

// NewPostgresPeopleRepository 创建人员Repository
func NewPostgresPeopleRepository(db *sql.DB) *PostgresPeopleRepository {
	return &PostgresPeopleRepository{db: db}
}

// 确保实现了接口
var _ PeopleRepository = (*PostgresPeopleRepository)(nil)

const personColumns = `
	person_id::text,
	first_name,
	last_name,
	COALESCE(preferred_name, ''),
	COALESCE(email, ''),
	COALESCE(phone, ''),
	status,
	COALESCE(tag_ids, '[]'::jsonb),
	COALESCE(household_id::text, ''),
	COALESCE(fields, '{}'::jsonb),
	created_at,
	updated_at
`

func scanPerson(row interface{ Scan(...any) error }) (*domain.Person, error) {
	var p domain.Person
	var tagIDs, fields []byte
	err := row.Scan(
		&p.PersonID,
		&p.FirstName,
		&p.LastName,
		&p.PreferredName,
		&p.Email,
		&p.Phone,
		&p.Status,
		&tagIDs,
		&p.HouseholdID,
		&fields,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.TagIDs = unmarshalStringSlice(tagIDs)
	p.Fields = unmarshalFieldValues(fields)
	return &p, nil
}

// GetPerson 根据person_id获取人员
func (r *PostgresPeopleRepository) GetPerson(ctx context.Context, personID string) (*domain.Person, error) {
	if personID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT ` + personColumns + `
		FROM people
		WHERE person_id = $1
	`

	p, err := scanPerson(r.db.QueryRowContext(ctx, query, personID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// ListPeople 返回全部人员
func (r *PostgresPeopleRepository) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM people
		ORDER BY last_name, first_name, person_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	people := make([]*domain.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// ListPeopleByHousehold 按household_id查询成员
func (r *PostgresPeopleRepository) ListPeopleByHousehold(ctx context.Context, householdID string) ([]*domain.Person, error) {
	if householdID == "" {
		return []*domain.Person{}, nil
	}

	query := `
		SELECT ` + personColumns + `
		FROM people
		WHERE household_id = $1
		ORDER BY last_name, first_name, person_id
	`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list people by household: %w", err)
	}
	defer rows.Close()

	people := make([]*domain.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// CreatePerson 创建人员
func (r *PostgresPeopleRepository) CreatePerson(ctx context.Context, p *domain.Person) (string, error) {
	personID := p.PersonID
	if personID == "" {
		personID = uuid.NewString()
	}

	tagIDs, err := marshalStringSlice(p.TagIDs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tag_ids: %w", err)
	}
	fields, err := marshalFieldValues(p.Fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		INSERT INTO people (
			person_id, first_name, last_name, preferred_name, email, phone,
			status, tag_ids, household_id, fields, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			$7, $8, NULLIF($9, '')::uuid, $10, NOW(), NOW())
		RETURNING person_id::text
	`

	var id string
	err = r.db.QueryRowContext(ctx, query,
		personID, p.FirstName, p.LastName, p.PreferredName, p.Email, p.Phone,
		p.Status, tagIDs, p.HouseholdID, fields,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create person: %w", err)
	}
	return id, nil
}

// UpdatePerson 整体更新人员
func (r *PostgresPeopleRepository) UpdatePerson(ctx context.Context, personID string, p *domain.Person) error {
	if personID == "" {
		return fmt.Errorf("person_id is required")
	}

	tagIDs, err := marshalStringSlice(p.TagIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal tag_ids: %w", err)
	}
	fields, err := marshalFieldValues(p.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		UPDATE people SET
			first_name = $2,
			last_name = $3,
			preferred_name = NULLIF($4, ''),
			email = NULLIF($5, ''),
			phone = NULLIF($6, ''),
			status = $7,
			tag_ids = $8,
			household_id = NULLIF($9, '')::uuid,
			fields = $10,
			updated_at = NOW()
		WHERE person_id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		personID, p.FirstName, p.LastName, p.PreferredName, p.Email, p.Phone,
		p.Status, tagIDs, p.HouseholdID, fields,
	)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetHouseholdID 仅更新household_id
func (r *PostgresPeopleRepository) SetHouseholdID(ctx context.Context, personID, householdID string) error {
	if personID == "" {
		return fmt.Errorf("person_id is required")
	}

	query := `
		UPDATE people SET
			household_id = NULLIF($2, '')::uuid,
			updated_at = NOW()
		WHERE person_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, personID, householdID)
	if err != nil {
		return fmt.Errorf("failed to set household_id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
