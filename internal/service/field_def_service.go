package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"parish-data/internal/domain"
	"parish-data/internal/repository"
	"parish-data/internal/store"

	"go.uber.org/zap"
)

// fieldDefsCacheKey 活跃字段定义的缓存键
const fieldDefsCacheKey = "parish-data:field-defs:active"

// fieldDefsCacheTTL 缓存时间：字段定义变化很少，每次页面加载都会读一遍
const fieldDefsCacheTTL = 60 * time.Second

// FieldDefService 自定义字段定义服务（字段注册表）
type FieldDefService struct {
	defsRepo repository.FieldDefsRepository
	kv       store.KV
	logger   *zap.Logger
}

// NewFieldDefService 创建字段定义服务
func NewFieldDefService(defsRepo repository.FieldDefsRepository, kv store.KV, logger *zap.Logger) *FieldDefService {
	return &FieldDefService{
		defsRepo: defsRepo,
		kv:       kv,
		logger:   logger,
	}
}

// FieldDefItem 字段定义（前端格式）
type FieldDefItem struct {
	FieldID    string               `json:"field_id"`
	Key        string               `json:"key"`
	Label      string               `json:"label"`
	Type       string               `json:"type"`
	Options    []domain.FieldOption `json:"options,omitempty"`
	Required   bool                 `json:"required"`
	Visibility string               `json:"visibility"`
	OrderIndex int                  `json:"order_index"`
	Archived   bool                 `json:"archived"`
}

func toFieldDefItem(d *domain.FieldDef) FieldDefItem {
	return FieldDefItem{
		FieldID:    d.FieldID,
		Key:        d.Key,
		Label:      d.Label,
		Type:       d.Type,
		Options:    d.Options,
		Required:   d.Required,
		Visibility: d.Visibility,
		OrderIndex: d.OrderIndex,
		Archived:   d.Archived,
	}
}

// ListActiveFieldDefs 查询活跃字段定义（order_index升序，archived排除）
// 所有渲染方（表单、列表、CSV表头）都消费这份稳定顺序
func (s *FieldDefService) ListActiveFieldDefs(ctx context.Context) ([]*domain.FieldDef, error) {
	// 先读缓存
	if cached, err := s.kv.Get(ctx, fieldDefsCacheKey); err == nil {
		var defs []*domain.FieldDef
		if err := json.Unmarshal([]byte(cached), &defs); err == nil {
			return defs, nil
		}
		// 缓存内容不可解析：当作miss处理
	} else if err != store.ErrMiss {
		s.logger.Warn("field defs cache read failed", zap.Error(err))
	}

	defs, err := s.defsRepo.ListFieldDefs(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}

	if raw, err := json.Marshal(defs); err == nil {
		if err := s.kv.Set(ctx, fieldDefsCacheKey, string(raw), fieldDefsCacheTTL); err != nil {
			s.logger.Warn("field defs cache write failed", zap.Error(err))
		}
	}
	return defs, nil
}

// ListFieldDefsRequest 查询字段定义列表请求
type ListFieldDefsRequest struct {
	IncludeArchived bool
}

// ListFieldDefsResponse 查询字段定义列表响应
type ListFieldDefsResponse struct {
	Items []FieldDefItem `json:"items"`
	Total int            `json:"total"`
}

// ListFieldDefs 查询字段定义列表（管理页使用，可包含archived）
func (s *FieldDefService) ListFieldDefs(ctx context.Context, req ListFieldDefsRequest) (*ListFieldDefsResponse, error) {
	defs, err := s.defsRepo.ListFieldDefs(ctx, req.IncludeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}

	items := make([]FieldDefItem, 0, len(defs))
	for _, d := range defs {
		items = append(items, toFieldDefItem(d))
	}
	return &ListFieldDefsResponse{Items: items, Total: len(items)}, nil
}

// CreateFieldDefRequest 创建字段定义请求
type CreateFieldDefRequest struct {
	Key        string // 可选，缺省时由Label派生
	Label      string
	Type       string
	Options    []domain.FieldOption
	Required   bool
	Visibility string // 可选，默认 "public"
}

// CreateFieldDefResponse 创建字段定义响应
type CreateFieldDefResponse struct {
	FieldID string `json:"field_id"`
	Key     string `json:"key"`
}

// CreateFieldDef 创建字段定义
// key未显式提供时由label派生（小写、非[a-z0-9]压缩为单个下划线、去首尾下划线）；
// key重复在这里拒绝——前端版本不做检查，重复key在读取时会静默互相覆盖
func (s *FieldDefService) CreateFieldDef(ctx context.Context, req CreateFieldDefRequest) (*CreateFieldDefResponse, error) {
	if strings.TrimSpace(req.Label) == "" {
		return nil, fmt.Errorf("label is required")
	}
	if !domain.IsValidFieldType(req.Type) {
		return nil, fmt.Errorf("invalid field type: %s", req.Type)
	}
	if domain.FieldType(req.Type).RequiresOptions() && len(req.Options) == 0 {
		return nil, fmt.Errorf("options are required for type %s", req.Type)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = string(domain.FieldVisibilityPublic)
	}
	if visibility != string(domain.FieldVisibilityPublic) && visibility != string(domain.FieldVisibilityStaffOnly) {
		return nil, fmt.Errorf("invalid visibility: %s", req.Visibility)
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = domain.SlugifyKey(req.Label)
	}
	if key == "" {
		return nil, fmt.Errorf("cannot derive field key from label %q", req.Label)
	}

	// key唯一性检查（含archived字段：归档字段的数据还在people.fields里）
	if _, err := s.defsRepo.GetFieldDefByKey(ctx, key); err == nil {
		return nil, fmt.Errorf("field key already exists: %s", key)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check field key: %w", err)
	}

	def := &domain.FieldDef{
		Key:        key,
		Label:      strings.TrimSpace(req.Label),
		Type:       req.Type,
		Options:    req.Options,
		Required:   req.Required,
		Visibility: visibility,
	}

	fieldID, err := s.defsRepo.CreateFieldDef(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("failed to create field def: %w", err)
	}

	s.invalidateCache(ctx)
	return &CreateFieldDefResponse{FieldID: fieldID, Key: key}, nil
}

// UpdateFieldDefRequest 更新字段定义请求（key/type创建后不可变）
type UpdateFieldDefRequest struct {
	FieldID    string
	Label      string
	Options    []domain.FieldOption
	Required   bool
	Visibility string
}

// UpdateFieldDef 更新字段定义
func (s *FieldDefService) UpdateFieldDef(ctx context.Context, req UpdateFieldDefRequest) error {
	if req.FieldID == "" {
		return fmt.Errorf("field_id is required")
	}
	if strings.TrimSpace(req.Label) == "" {
		return fmt.Errorf("label is required")
	}

	existing, err := s.defsRepo.GetFieldDef(ctx, req.FieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("field def not found")
		}
		return fmt.Errorf("failed to get field def: %w", err)
	}

	if domain.FieldType(existing.Type).RequiresOptions() && len(req.Options) == 0 {
		return fmt.Errorf("options are required for type %s", existing.Type)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = existing.Visibility
	}
	if visibility != string(domain.FieldVisibilityPublic) && visibility != string(domain.FieldVisibilityStaffOnly) {
		return fmt.Errorf("invalid visibility: %s", req.Visibility)
	}

	def := &domain.FieldDef{
		Label:      strings.TrimSpace(req.Label),
		Options:    req.Options,
		Required:   req.Required,
		Visibility: visibility,
	}
	if err := s.defsRepo.UpdateFieldDef(ctx, req.FieldID, def); err != nil {
		return fmt.Errorf("failed to update field def: %w", err)
	}

	s.invalidateCache(ctx)
	return nil
}

// ArchiveFieldDef 归档字段定义（软删除）
// people.fields中已有的数据保留，只是不再渲染
func (s *FieldDefService) ArchiveFieldDef(ctx context.Context, fieldID string) error {
	if fieldID == "" {
		return fmt.Errorf("field_id is required")
	}

	if err := s.defsRepo.SetArchived(ctx, fieldID, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("field def not found")
		}
		return fmt.Errorf("failed to archive field def: %w", err)
	}

	s.invalidateCache(ctx)
	return nil
}

// ReorderFieldDefsRequest 重排字段定义请求
type ReorderFieldDefsRequest struct {
	// OrderedFieldIDs 必须恰好覆盖全部活跃字段，按新顺序排列
	OrderedFieldIDs []string
}

// ReorderFieldDefs 按请求的顺序重写order_index为1..N
// Repository在单个事务内完成，不存在新旧混合顺序的窗口
func (s *FieldDefService) ReorderFieldDefs(ctx context.Context, req ReorderFieldDefsRequest) error {
	if len(req.OrderedFieldIDs) == 0 {
		return fmt.Errorf("ordered_field_ids is required")
	}

	active, err := s.defsRepo.ListFieldDefs(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list field defs: %w", err)
	}
	if len(req.OrderedFieldIDs) != len(active) {
		return fmt.Errorf("reorder must cover all %d active fields, got %d", len(active), len(req.OrderedFieldIDs))
	}

	activeSet := make(map[string]bool, len(active))
	for _, d := range active {
		activeSet[d.FieldID] = true
	}
	seen := make(map[string]bool, len(req.OrderedFieldIDs))
	for _, fieldID := range req.OrderedFieldIDs {
		if !activeSet[fieldID] {
			return fmt.Errorf("unknown or archived field def: %s", fieldID)
		}
		if seen[fieldID] {
			return fmt.Errorf("duplicate field def in reorder: %s", fieldID)
		}
		seen[fieldID] = true
	}

	if err := s.defsRepo.ReorderFieldDefs(ctx, req.OrderedFieldIDs); err != nil {
		return fmt.Errorf("failed to reorder field defs: %w", err)
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *FieldDefService) invalidateCache(ctx context.Context) {
	if err := s.kv.Del(ctx, fieldDefsCacheKey); err != nil {
		s.logger.Warn("field defs cache invalidation failed", zap.Error(err))
	}
}
