package domain

import "time"

// Household 家庭领域模型（对应 households 表）
// 成员通过 household_members 关联表维护，Person.HouseholdID 作为反向引用保持同步
type Household struct {
	HouseholdID string    `db:"household_id"` // UUID, PRIMARY KEY
	Name        string    `db:"name"`         // VARCHAR(200), NOT NULL
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Relationship 家庭成员关系
type Relationship string

const (
	RelationshipHead   Relationship = "head"
	RelationshipSpouse Relationship = "spouse"
	RelationshipChild  Relationship = "child"
	RelationshipOther  Relationship = "other"
)

// IsValidRelationship 判断是否为合法的成员关系
func IsValidRelationship(s string) bool {
	switch Relationship(s) {
	case RelationshipHead, RelationshipSpouse, RelationshipChild, RelationshipOther:
		return true
	}
	return false
}

// HouseholdMember 家庭成员关联（对应 household_members 表）
type HouseholdMember struct {
	MemberID     string    `db:"member_id"`    // UUID, PRIMARY KEY
	HouseholdID  string    `db:"household_id"` // UUID, NOT NULL
	PersonID     string    `db:"person_id"`    // UUID, NOT NULL, UNIQUE(household_id, person_id)
	Relationship string    `db:"relationship"` // VARCHAR(20), NOT NULL (head/spouse/child/other)
	CreatedAt    time.Time `db:"created_at"`
}
