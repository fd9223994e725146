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

// NoteService 人员备注服务
type NoteService struct {
	notesRepo  repository.NotesRepository
	peopleRepo repository.PeopleRepository
	logger     *zap.Logger
}

// NewNoteService 创建备注服务
func NewNoteService(notesRepo repository.NotesRepository, peopleRepo repository.PeopleRepository, logger *zap.Logger) *NoteService {
	return &NoteService{
		notesRepo:  notesRepo,
		peopleRepo: peopleRepo,
		logger:     logger,
	}
}

// NoteItem 备注（前端格式）
type NoteItem struct {
	NoteID       string    `json:"note_id"`
	PersonID     string    `json:"person_id"`
	AuthorUserID string    `json:"author_user_id"`
	Body         string    `json:"body"`
	Visibility   string    `json:"visibility"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListNotesRequest 查询备注请求
type ListNotesRequest struct {
	PersonID string
	Role     domain.Role
}

// ListNotesResponse 查询备注响应
type ListNotesResponse struct {
	Items []NoteItem `json:"items"`
	Total int        `json:"total"`
}

// ListNotes 查询人员备注（staff_only备注对非staff角色隐藏）
func (s *NoteService) ListNotes(ctx context.Context, req ListNotesRequest) (*ListNotesResponse, error) {
	if req.PersonID == "" {
		return nil, fmt.Errorf("person_id is required")
	}

	notes, err := s.notesRepo.ListNotesByPerson(ctx, req.PersonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	items := make([]NoteItem, 0, len(notes))
	for _, n := range notes {
		if n.Visibility == string(domain.NoteVisibilityStaffOnly) && !req.Role.IsStaff() {
			continue
		}
		items = append(items, NoteItem{
			NoteID:       n.NoteID,
			PersonID:     n.PersonID,
			AuthorUserID: n.AuthorUserID,
			Body:         n.Body,
			Visibility:   n.Visibility,
			CreatedAt:    n.CreatedAt,
		})
	}
	return &ListNotesResponse{Items: items, Total: len(items)}, nil
}

// CreateNoteRequest 创建备注请求
type CreateNoteRequest struct {
	PersonID     string
	AuthorUserID string
	Body         string
	Visibility   string // 可选，默认 "org"
}

// CreateNoteResponse 创建备注响应
type CreateNoteResponse struct {
	NoteID string `json:"note_id"`
}

// CreateNote 创建备注
func (s *NoteService) CreateNote(ctx context.Context, req CreateNoteRequest) (*CreateNoteResponse, error) {
	if req.PersonID == "" {
		return nil, fmt.Errorf("person_id is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("body is required")
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = string(domain.NoteVisibilityOrg)
	}
	if visibility != string(domain.NoteVisibilityOrg) && visibility != string(domain.NoteVisibilityStaffOnly) {
		return nil, fmt.Errorf("invalid visibility: %s", req.Visibility)
	}

	if _, err := s.peopleRepo.GetPerson(ctx, req.PersonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person not found")
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	noteID, err := s.notesRepo.CreateNote(ctx, &domain.Note{
		PersonID:     req.PersonID,
		AuthorUserID: req.AuthorUserID,
		Body:         req.Body,
		Visibility:   visibility,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &CreateNoteResponse{NoteID: noteID}, nil
}
