package repository

import (
	"context"

	"parish-data/internal/domain"
)

// HouseholdsRepository 家庭Repository接口
// household_members 是权威成员列表；people.household_id 的同步由Service层负责
type HouseholdsRepository interface {
	// ========== households ==========
	GetHousehold(ctx context.Context, householdID string) (*domain.Household, error)

	// ListHouseholds 查询全部households（按name排序）
	ListHouseholds(ctx context.Context) ([]*domain.Household, error)

	CreateHousehold(ctx context.Context, h *domain.Household) (string, error)

	UpdateHousehold(ctx context.Context, householdID, name string) error

	// ========== household_members ==========
	// ListMembers 查询指定household的成员（按created_at排序）
	ListMembers(ctx context.Context, householdID string) ([]*domain.HouseholdMember, error)

	// GetMemberByPerson 查询person当前的成员记录（一个person最多属于一个household）
	GetMemberByPerson(ctx context.Context, personID string) (*domain.HouseholdMember, error)

	// AddMember 添加成员，返回member_id
	AddMember(ctx context.Context, m *domain.HouseholdMember) (string, error)

	// UpdateMemberRelationship 更新成员关系
	UpdateMemberRelationship(ctx context.Context, memberID, relationship string) error

	// RemoveMember 删除成员记录
	RemoveMember(ctx context.Context, memberID string) error
}
