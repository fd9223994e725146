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

// MemoryPeopleRepository supports admin pages when DB is disabled.
type MemoryPeopleRepository struct {
	mu     sync.RWMutex
	people map[string]domain.Person // personID -> Person
}

func NewMemoryPeopleRepository() *MemoryPeopleRepository {
	return &MemoryPeopleRepository{people: map[string]domain.Person{}}
}

var _ PeopleRepository = (*MemoryPeopleRepository)(nil)

func clonePerson(p domain.Person) *domain.Person {
	out := p
	out.TagIDs = append([]string(nil), p.TagIDs...)
	out.Fields = make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		out.Fields[k] = v
	}
	return &out
}

func sortPeople(all []*domain.Person) {
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastName != all[j].LastName {
			return all[i].LastName < all[j].LastName
		}
		if all[i].FirstName != all[j].FirstName {
			return all[i].FirstName < all[j].FirstName
		}
		return all[i].PersonID < all[j].PersonID
	})
}

func (r *MemoryPeopleRepository) GetPerson(_ context.Context, personID string) (*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.people[personID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return clonePerson(p), nil
}

func (r *MemoryPeopleRepository) ListPeople(_ context.Context) ([]*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Person, 0, len(r.people))
	for _, p := range r.people {
		all = append(all, clonePerson(p))
	}
	sortPeople(all)
	return all, nil
}

func (r *MemoryPeopleRepository) ListPeopleByHousehold(_ context.Context, householdID string) ([]*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Person, 0)
	for _, p := range r.people {
		if householdID != "" && p.HouseholdID == householdID {
			all = append(all, clonePerson(p))
		}
	}
	sortPeople(all)
	return all, nil
}

func (r *MemoryPeopleRepository) CreatePerson(_ context.Context, p *domain.Person) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *clonePerson(*p)
	if stored.PersonID == "" {
		stored.PersonID = uuid.NewString()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.people[stored.PersonID] = stored
	return stored.PersonID, nil
}

func (r *MemoryPeopleRepository) UpdatePerson(_ context.Context, personID string, p *domain.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.people[personID]
	if !ok {
		return sql.ErrNoRows
	}
	stored := *clonePerson(*p)
	stored.PersonID = personID
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.people[personID] = stored
	return nil
}

func (r *MemoryPeopleRepository) SetHouseholdID(_ context.Context, personID, householdID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.people[personID]
	if !ok {
		return sql.ErrNoRows
	}
	p.HouseholdID = householdID
	p.UpdatedAt = time.Now()
	r.people[personID] = p
	return nil
}
