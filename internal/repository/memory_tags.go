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

// MemoryTagsRepository supports tag management when DB is disabled.
type MemoryTagsRepository struct {
	mu   sync.RWMutex
	tags map[string]domain.Tag // tagID -> Tag
}

func NewMemoryTagsRepository() *MemoryTagsRepository {
	return &MemoryTagsRepository{tags: map[string]domain.Tag{}}
}

var _ TagsRepository = (*MemoryTagsRepository)(nil)

func (r *MemoryTagsRepository) GetTag(_ context.Context, tagID string) (*domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tags[tagID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := t
	return &out, nil
}

func (r *MemoryTagsRepository) GetTagByName(_ context.Context, tagName string) (*domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tags {
		if t.TagName == tagName {
			out := t
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryTagsRepository) ListTags(_ context.Context) ([]*domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Tag, 0, len(r.tags))
	for _, t := range r.tags {
		out := t
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TagName < all[j].TagName })
	return all, nil
}

func (r *MemoryTagsRepository) CreateTag(_ context.Context, tag *domain.Tag) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *tag
	if stored.TagID == "" {
		stored.TagID = uuid.NewString()
	}
	stored.CreatedAt = time.Now()
	r.tags[stored.TagID] = stored
	return stored.TagID, nil
}

func (r *MemoryTagsRepository) UpdateTag(_ context.Context, tagID, tagName, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tags[tagID]
	if !ok {
		return sql.ErrNoRows
	}
	t.TagName = tagName
	t.Color = color
	r.tags[tagID] = t
	return nil
}

func (r *MemoryTagsRepository) DeleteTag(_ context.Context, tagID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tags[tagID]; !ok {
		return sql.ErrNoRows
	}
	delete(r.tags, tagID)
	return nil
}
