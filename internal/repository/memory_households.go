package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryHouseholdsRepository supports household management when DB is disabled.
type MemoryHouseholdsRepository struct {
	mu         sync.RWMutex
	households map[string]domain.Household       // householdID -> Household
	members    map[string]domain.HouseholdMember // memberID -> HouseholdMember
}

func NewMemoryHouseholdsRepository() *MemoryHouseholdsRepository {
	return &MemoryHouseholdsRepository{
		households: map[string]domain.Household{},
		members:    map[string]domain.HouseholdMember{},
	}
}

var _ HouseholdsRepository = (*MemoryHouseholdsRepository)(nil)

func (r *MemoryHouseholdsRepository) GetHousehold(_ context.Context, householdID string) (*domain.Household, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.households[householdID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := h
	return &out, nil
}

func (r *MemoryHouseholdsRepository) ListHouseholds(_ context.Context) ([]*domain.Household, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Household, 0, len(r.households))
	for _, h := range r.households {
		out := h
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (r *MemoryHouseholdsRepository) CreateHousehold(_ context.Context, h *domain.Household) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *h
	if stored.HouseholdID == "" {
		stored.HouseholdID = uuid.NewString()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.households[stored.HouseholdID] = stored
	return stored.HouseholdID, nil
}

func (r *MemoryHouseholdsRepository) UpdateHousehold(_ context.Context, householdID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.households[householdID]
	if !ok {
		return sql.ErrNoRows
	}
	h.Name = name
	h.UpdatedAt = time.Now()
	r.households[householdID] = h
	return nil
}

func (r *MemoryHouseholdsRepository) ListMembers(_ context.Context, householdID string) ([]*domain.HouseholdMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.HouseholdMember, 0)
	for _, m := range r.members {
		if m.HouseholdID == householdID {
			out := m
			all = append(all, &out)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].MemberID < all[j].MemberID
	})
	return all, nil
}

func (r *MemoryHouseholdsRepository) GetMemberByPerson(_ context.Context, personID string) (*domain.HouseholdMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.members {
		if m.PersonID == personID {
			out := m
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryHouseholdsRepository) AddMember(_ context.Context, m *domain.HouseholdMember) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *m
	if stored.MemberID == "" {
		stored.MemberID = uuid.NewString()
	}
	stored.CreatedAt = time.Now()
	r.members[stored.MemberID] = stored
	return stored.MemberID, nil
}

func (r *MemoryHouseholdsRepository) UpdateMemberRelationship(_ context.Context, memberID, relationship string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[memberID]
	if !ok {
		return sql.ErrNoRows
	}
	m.Relationship = relationship
	r.members[memberID] = m
	return nil
}

func (r *MemoryHouseholdsRepository) RemoveMember(_ context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[memberID]; !ok {
		return sql.ErrNoRows
	}
	delete(r.members, memberID)
	return nil
}
