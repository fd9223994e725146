package repository

import (
	"context"

	"parish-data/internal/domain"
)

// NotesRepository 人员备注Repository接口
type NotesRepository interface {
	// ListNotesByPerson 查询指定person的备注（created_at降序）
	// 可见性过滤（staff_only）由Service层按角色处理
	ListNotesByPerson(ctx context.Context, personID string) ([]*domain.Note, error)

	// CreateNote 创建备注，返回note_id
	CreateNote(ctx context.Context, n *domain.Note) (string, error)
}
