package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"parish-data/internal/domain"
	"parish-data/internal/repository"

	"go.uber.org/zap"
)

// TagService 标签服务
type TagService struct {
	tagsRepo   repository.TagsRepository
	peopleRepo repository.PeopleRepository
	logger     *zap.Logger
}

// NewTagService 创建标签服务
func NewTagService(tagsRepo repository.TagsRepository, peopleRepo repository.PeopleRepository, logger *zap.Logger) *TagService {
	return &TagService{
		tagsRepo:   tagsRepo,
		peopleRepo: peopleRepo,
		logger:     logger,
	}
}

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TagItem 标签（前端格式）
// UsageCount 是派生值：统计people.tag_ids中引用该tag的人数
type TagItem struct {
	TagID      string `json:"tag_id"`
	TagName    string `json:"tag_name"`
	Color      string `json:"color,omitempty"`
	UsageCount int    `json:"usage_count"`
}

// ListTagsResponse 查询标签列表响应
type ListTagsResponse struct {
	Items []TagItem `json:"items"`
	Total int       `json:"total"`
}

// ListTags 查询标签列表（含派生的使用计数）
func (s *TagService) ListTags(ctx context.Context) (*ListTagsResponse, error) {
	tags, err := s.tagsRepo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	usage, err := s.tagUsageCounts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]TagItem, 0, len(tags))
	for _, tag := range tags {
		items = append(items, TagItem{
			TagID:      tag.TagID,
			TagName:    tag.TagName,
			Color:      tag.Color,
			UsageCount: usage[tag.TagID],
		})
	}
	return &ListTagsResponse{Items: items, Total: len(items)}, nil
}

// CreateTagRequest 创建标签请求
type CreateTagRequest struct {
	TagName string
	Color   string // 可选，hex颜色（如 "#3B82F6"）
}

// CreateTagResponse 创建标签响应
type CreateTagResponse struct {
	TagID string `json:"tag_id"`
}

// CreateTag 创建标签
func (s *TagService) CreateTag(ctx context.Context, req CreateTagRequest) (*CreateTagResponse, error) {
	tagName := strings.TrimSpace(req.TagName)
	if tagName == "" {
		return nil, fmt.Errorf("tag_name is required")
	}
	if req.Color != "" && !hexColorPattern.MatchString(req.Color) {
		return nil, fmt.Errorf("invalid color: %s", req.Color)
	}

	// tag_name唯一性检查
	if _, err := s.tagsRepo.GetTagByName(ctx, tagName); err == nil {
		return nil, fmt.Errorf("tag already exists: %s", tagName)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check tag name: %w", err)
	}

	tag := &domain.Tag{
		TagName: tagName,
		Color:   req.Color,
	}
	tagID, err := s.tagsRepo.CreateTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &CreateTagResponse{TagID: tagID}, nil
}

// UpdateTagRequest 更新标签请求
type UpdateTagRequest struct {
	TagID   string
	TagName string
	Color   string
}

// UpdateTag 更新标签名称/颜色
func (s *TagService) UpdateTag(ctx context.Context, req UpdateTagRequest) error {
	if req.TagID == "" {
		return fmt.Errorf("tag_id is required")
	}
	tagName := strings.TrimSpace(req.TagName)
	if tagName == "" {
		return fmt.Errorf("tag_name is required")
	}
	if req.Color != "" && !hexColorPattern.MatchString(req.Color) {
		return fmt.Errorf("invalid color: %s", req.Color)
	}

	existing, err := s.tagsRepo.GetTag(ctx, req.TagID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tag not found")
		}
		return fmt.Errorf("failed to get tag: %w", err)
	}

	// 改名时检查新名称是否被占用
	if tagName != existing.TagName {
		if _, err := s.tagsRepo.GetTagByName(ctx, tagName); err == nil {
			return fmt.Errorf("tag already exists: %s", tagName)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check tag name: %w", err)
		}
	}

	if err := s.tagsRepo.UpdateTag(ctx, req.TagID, tagName, req.Color); err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return nil
}

// DeleteTag 删除标签
// 业务规则：仍被people.tag_ids引用时拒绝删除
func (s *TagService) DeleteTag(ctx context.Context, tagID string) error {
	if tagID == "" {
		return fmt.Errorf("tag_id is required")
	}

	if _, err := s.tagsRepo.GetTag(ctx, tagID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tag not found")
		}
		return fmt.Errorf("failed to get tag: %w", err)
	}

	usage, err := s.tagUsageCounts(ctx)
	if err != nil {
		return err
	}
	if usage[tagID] > 0 {
		return fmt.Errorf("cannot delete tag: still used by %d people", usage[tagID])
	}

	if err := s.tagsRepo.DeleteTag(ctx, tagID); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

// tagUsageCounts 统计每个tag被多少人引用
func (s *TagService) tagUsageCounts(ctx context.Context) (map[string]int, error) {
	people, err := s.peopleRepo.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	usage := make(map[string]int)
	for _, p := range people {
		for _, tagID := range p.TagIDs {
			usage[tagID]++
		}
	}
	return usage, nil
}
