package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryFieldDefsRepository supports field definition management when DB is disabled.
type MemoryFieldDefsRepository struct {
	mu   sync.RWMutex
	defs map[string]domain.FieldDef // fieldID -> FieldDef
}

func NewMemoryFieldDefsRepository() *MemoryFieldDefsRepository {
	return &MemoryFieldDefsRepository{defs: map[string]domain.FieldDef{}}
}

var _ FieldDefsRepository = (*MemoryFieldDefsRepository)(nil)

func cloneFieldDef(d domain.FieldDef) *domain.FieldDef {
	out := d
	out.Options = append([]domain.FieldOption(nil), d.Options...)
	return &out
}

func (r *MemoryFieldDefsRepository) GetFieldDef(_ context.Context, fieldID string) (*domain.FieldDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[fieldID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneFieldDef(d), nil
}

func (r *MemoryFieldDefsRepository) GetFieldDefByKey(_ context.Context, key string) (*domain.FieldDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.defs {
		if d.Key == key {
			return cloneFieldDef(d), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryFieldDefsRepository) ListFieldDefs(_ context.Context, includeArchived bool) ([]*domain.FieldDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.FieldDef, 0, len(r.defs))
	for _, d := range r.defs {
		if !includeArchived && d.Archived {
			continue
		}
		all = append(all, cloneFieldDef(d))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].OrderIndex != all[j].OrderIndex {
			return all[i].OrderIndex < all[j].OrderIndex
		}
		return all[i].Key < all[j].Key
	})
	return all, nil
}

func (r *MemoryFieldDefsRepository) CreateFieldDef(_ context.Context, def *domain.FieldDef) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *cloneFieldDef(*def)
	if stored.FieldID == "" {
		stored.FieldID = uuid.NewString()
	}

	// order_index = max(existing, 0) + 1
	maxIndex := 0
	for _, d := range r.defs {
		if d.OrderIndex > maxIndex {
			maxIndex = d.OrderIndex
		}
	}
	stored.OrderIndex = maxIndex + 1
	stored.Archived = false
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.defs[stored.FieldID] = stored
	return stored.FieldID, nil
}

func (r *MemoryFieldDefsRepository) UpdateFieldDef(_ context.Context, fieldID string, def *domain.FieldDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.defs[fieldID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Label = def.Label
	existing.Options = append([]domain.FieldOption(nil), def.Options...)
	existing.Required = def.Required
	existing.Visibility = def.Visibility
	existing.UpdatedAt = time.Now()
	r.defs[fieldID] = existing
	return nil
}

func (r *MemoryFieldDefsRepository) SetArchived(_ context.Context, fieldID string, archived bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.defs[fieldID]
	if !ok {
		return sql.ErrNoRows
	}
	d.Archived = archived
	d.UpdatedAt = time.Now()
	r.defs[fieldID] = d
	return nil
}

func (r *MemoryFieldDefsRepository) ReorderFieldDefs(_ context.Context, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 先整体校验，避免部分写入
	for _, fieldID := range orderedIDs {
		if _, ok := r.defs[fieldID]; !ok {
			return fmt.Errorf("field def not found: %s", fieldID)
		}
	}
	now := time.Now()
	for i, fieldID := range orderedIDs {
		d := r.defs[fieldID]
		d.OrderIndex = i + 1
		d.UpdatedAt = now
		r.defs[fieldID] = d
	}
	return nil
}
