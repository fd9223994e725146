package repository

import (
	"context"

	"parish-data/internal/domain"
)

// TagsRepository 标签Repository接口
type TagsRepository interface {
	// GetTag 根据tag_id获取tag
	GetTag(ctx context.Context, tagID string) (*domain.Tag, error)

	// GetTagByName 根据tag_name获取tag（tag_name全局唯一）
	GetTagByName(ctx context.Context, tagName string) (*domain.Tag, error)

	// ListTags 查询全部tags（按tag_name排序）
	ListTags(ctx context.Context) ([]*domain.Tag, error)

	// CreateTag 创建tag，返回tag_id
	CreateTag(ctx context.Context, tag *domain.Tag) (string, error)

	// UpdateTag 更新tag_name/color
	UpdateTag(ctx context.Context, tagID, tagName, color string) error

	// DeleteTag 删除tag
	// 注意：使用计数检查（usage count > 0 时拒绝删除）由Service层完成
	DeleteTag(ctx context.Context, tagID string) error
}
