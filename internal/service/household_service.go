package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parish-data/internal/domain"
	"parish-data/internal/repository"

	"go.uber.org/zap"
)

// HouseholdService 家庭服务
// household_members 是权威成员列表；people.household_id 作为反向引用，
// 每次成员变更都在这里同步，两边不会出现各说各话的情况
type HouseholdService struct {
	householdsRepo repository.HouseholdsRepository
	peopleRepo     repository.PeopleRepository
	logger         *zap.Logger
}

// NewHouseholdService 创建家庭服务
func NewHouseholdService(householdsRepo repository.HouseholdsRepository, peopleRepo repository.PeopleRepository, logger *zap.Logger) *HouseholdService {
	return &HouseholdService{
		householdsRepo: householdsRepo,
		peopleRepo:     peopleRepo,
		logger:         logger,
	}
}

// HouseholdItem 家庭（前端格式）
// MemberCount 是派生值，不落库
type HouseholdItem struct {
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListHouseholdsResponse 查询家庭列表响应
type ListHouseholdsResponse struct {
	Items []HouseholdItem `json:"items"`
	Total int             `json:"total"`
}

// ListHouseholds 查询家庭列表（含派生的成员计数）
func (s *HouseholdService) ListHouseholds(ctx context.Context) (*ListHouseholdsResponse, error) {
	households, err := s.householdsRepo.ListHouseholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}

	items := make([]HouseholdItem, 0, len(households))
	for _, h := range households {
		members, err := s.householdsRepo.ListMembers(ctx, h.HouseholdID)
		if err != nil {
			return nil, fmt.Errorf("failed to list members: %w", err)
		}
		items = append(items, HouseholdItem{
			HouseholdID: h.HouseholdID,
			Name:        h.Name,
			MemberCount: len(members),
			CreatedAt:   h.CreatedAt,
			UpdatedAt:   h.UpdatedAt,
		})
	}
	return &ListHouseholdsResponse{Items: items, Total: len(items)}, nil
}

// CreateHouseholdResponse 创建家庭响应
type CreateHouseholdResponse struct {
	HouseholdID string `json:"household_id"`
}

// CreateHousehold 创建家庭
func (s *HouseholdService) CreateHousehold(ctx context.Context, name string) (*CreateHouseholdResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	householdID, err := s.householdsRepo.CreateHousehold(ctx, &domain.Household{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to create household: %w", err)
	}
	return &CreateHouseholdResponse{HouseholdID: householdID}, nil
}

// UpdateHousehold 更新家庭名称
func (s *HouseholdService) UpdateHousehold(ctx context.Context, householdID, name string) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}

	if err := s.householdsRepo.UpdateHousehold(ctx, householdID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("household not found")
		}
		return fmt.Errorf("failed to update household: %w", err)
	}
	return nil
}

// MemberItem 家庭成员（前端格式，带人员概要）
type MemberItem struct {
	MemberID     string `json:"member_id"`
	PersonID     string `json:"person_id"`
	DisplayName  string `json:"display_name"`
	Relationship string `json:"relationship"`
}

// GetHouseholdResponse 家庭详情响应
type GetHouseholdResponse struct {
	HouseholdID string       `json:"household_id"`
	Name        string       `json:"name"`
	Members     []MemberItem `json:"members"`
}

// GetHousehold 查询家庭详情（含成员列表）
func (s *HouseholdService) GetHousehold(ctx context.Context, householdID string) (*GetHouseholdResponse, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}

	h, err := s.householdsRepo.GetHousehold(ctx, householdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("household not found")
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}

	members, err := s.householdsRepo.ListMembers(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	items := make([]MemberItem, 0, len(members))
	for _, m := range members {
		item := MemberItem{
			MemberID:     m.MemberID,
			PersonID:     m.PersonID,
			Relationship: m.Relationship,
		}
		if p, err := s.peopleRepo.GetPerson(ctx, m.PersonID); err == nil {
			item.DisplayName = p.DisplayName()
		}
		items = append(items, item)
	}

	return &GetHouseholdResponse{
		HouseholdID: h.HouseholdID,
		Name:        h.Name,
		Members:     items,
	}, nil
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	HouseholdID  string
	PersonID     string
	Relationship string
}

// AddMemberResponse 添加成员响应
type AddMemberResponse struct {
	MemberID string `json:"member_id"`
}

// AddMember 添加家庭成员，并同步people.household_id
func (s *HouseholdService) AddMember(ctx context.Context, req AddMemberRequest) (*AddMemberResponse, error) {
	if req.HouseholdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}
	if req.PersonID == "" {
		return nil, fmt.Errorf("person_id is required")
	}
	if !domain.IsValidRelationship(req.Relationship) {
		return nil, fmt.Errorf("invalid relationship: %s", req.Relationship)
	}

	if _, err := s.householdsRepo.GetHousehold(ctx, req.HouseholdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("household not found")
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	if _, err := s.peopleRepo.GetPerson(ctx, req.PersonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person not found")
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	// 一个person最多属于一个household：已有成员记录先移除
	if existing, err := s.householdsRepo.GetMemberByPerson(ctx, req.PersonID); err == nil {
		if existing.HouseholdID == req.HouseholdID {
			return nil, fmt.Errorf("person is already a member of this household")
		}
		if err := s.householdsRepo.RemoveMember(ctx, existing.MemberID); err != nil {
			return nil, fmt.Errorf("failed to move person between households: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	memberID, err := s.householdsRepo.AddMember(ctx, &domain.HouseholdMember{
		HouseholdID:  req.HouseholdID,
		PersonID:     req.PersonID,
		Relationship: req.Relationship,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	// 同步反向引用
	if err := s.peopleRepo.SetHouseholdID(ctx, req.PersonID, req.HouseholdID); err != nil {
		s.logger.Warn("failed to sync person.household_id",
			zap.String("person_id", req.PersonID), zap.Error(err))
	}

	return &AddMemberResponse{MemberID: memberID}, nil
}

// UpdateMemberRelationship 更新成员关系
func (s *HouseholdService) UpdateMemberRelationship(ctx context.Context, memberID, relationship string) error {
	if memberID == "" {
		return fmt.Errorf("member_id is required")
	}
	if !domain.IsValidRelationship(relationship) {
		return fmt.Errorf("invalid relationship: %s", relationship)
	}

	if err := s.householdsRepo.UpdateMemberRelationship(ctx, memberID, relationship); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("member not found")
		}
		return fmt.Errorf("failed to update member relationship: %w", err)
	}
	return nil
}

// RemoveMemberRequest 移除成员请求
type RemoveMemberRequest struct {
	HouseholdID string
	MemberID    string
}

// RemoveMember 移除家庭成员，并清除people.household_id
func (s *HouseholdService) RemoveMember(ctx context.Context, req RemoveMemberRequest) error {
	if req.MemberID == "" {
		return fmt.Errorf("member_id is required")
	}

	members, err := s.householdsRepo.ListMembers(ctx, req.HouseholdID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	var target *domain.HouseholdMember
	for _, m := range members {
		if m.MemberID == req.MemberID {
			target = m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("member not found")
	}

	if err := s.householdsRepo.RemoveMember(ctx, req.MemberID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if err := s.peopleRepo.SetHouseholdID(ctx, target.PersonID, ""); err != nil {
		s.logger.Warn("failed to clear person.household_id",
			zap.String("person_id", target.PersonID), zap.Error(err))
	}
	return nil
}
