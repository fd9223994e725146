package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"parish-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryNotesRepository supports notes when DB is disabled.
type MemoryNotesRepository struct {
	mu    sync.RWMutex
	notes map[string]domain.Note // noteID -> Note
}

func NewMemoryNotesRepository() *MemoryNotesRepository {
	return &MemoryNotesRepository{notes: map[string]domain.Note{}}
}

var _ NotesRepository = (*MemoryNotesRepository)(nil)

func (r *MemoryNotesRepository) ListNotesByPerson(_ context.Context, personID string) ([]*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Note, 0)
	for _, n := range r.notes {
		if n.PersonID == personID {
			out := n
			all = append(all, &out)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].NoteID < all[j].NoteID
	})
	return all, nil
}

func (r *MemoryNotesRepository) CreateNote(_ context.Context, n *domain.Note) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *n
	if stored.NoteID == "" {
		stored.NoteID = uuid.NewString()
	}
	stored.CreatedAt = time.Now()
	r.notes[stored.NoteID] = stored
	return stored.NoteID, nil
}
