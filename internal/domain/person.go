package domain

import "time"

// PersonStatus 人员状态
type PersonStatus string

const (
	PersonStatusActive   PersonStatus = "active"
	PersonStatusInactive PersonStatus = "inactive"
	PersonStatusVisitor  PersonStatus = "visitor"
)

// IsValidPersonStatus 判断是否为合法的人员状态（大小写不敏感的匹配在service层处理）
func IsValidPersonStatus(s string) bool {
	switch PersonStatus(s) {
	case PersonStatusActive, PersonStatusInactive, PersonStatusVisitor:
		return true
	}
	return false
}

// Person 人员领域模型（对应 people 表）
// 自定义属性存储在 Fields JSONB 字段中，key 引用 FieldDef.Key
type Person struct {
	PersonID string `db:"person_id"` // UUID, PRIMARY KEY

	FirstName     string `db:"first_name"`     // VARCHAR(100), NOT NULL
	LastName      string `db:"last_name"`      // VARCHAR(100), NOT NULL
	PreferredName string `db:"preferred_name"` // VARCHAR(100), nullable
	Email         string `db:"email"`          // VARCHAR(255), nullable
	Phone         string `db:"phone"`          // VARCHAR(50), nullable

	// 状态
	Status string `db:"status"` // VARCHAR(20), NOT NULL, DEFAULT 'active' (active/inactive/visitor)

	// 标签（tag_id 集合，去重）
	TagIDs []string `db:"tag_ids"` // JSONB array

	// 家庭（by-id 引用，不拥有）
	HouseholdID string `db:"household_id"` // UUID, nullable

	// 自定义字段值（key -> value，value 类型由字段定义决定）
	Fields map[string]any `db:"fields"` // JSONB, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// HasTag 判断是否带有指定 tag
func (p *Person) HasTag(tagID string) bool {
	for _, id := range p.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// DisplayName 展示名：优先 preferred_name，否则 "First Last"
func (p *Person) DisplayName() string {
	if p.PreferredName != "" {
		return p.PreferredName
	}
	return p.FirstName + " " + p.LastName
}
