package httpapi

import (
	"net/http"
	"strings"

	"parish-data/internal/domain"
	"parish-data/internal/service"

	"go.uber.org/zap"
)

// FieldDefsHandler 自定义字段定义管理 Handler
type FieldDefsHandler struct {
	defService *service.FieldDefService
	logger     *zap.Logger
}

// NewFieldDefsHandler 创建字段定义管理 Handler
func NewFieldDefsHandler(defService *service.FieldDefService, logger *zap.Logger) *FieldDefsHandler {
	return &FieldDefsHandler{
		defService: defService,
		logger:     logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *FieldDefsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/field-defs" && r.Method == http.MethodGet:
		h.ListFieldDefs(w, r)
	case r.URL.Path == "/admin/api/v1/field-defs" && r.Method == http.MethodPost:
		h.CreateFieldDef(w, r)
	case r.URL.Path == "/admin/api/v1/field-defs/reorder" && r.Method == http.MethodPut:
		h.ReorderFieldDefs(w, r)
	case strings.HasSuffix(r.URL.Path, "/archive") && r.Method == http.MethodPost:
		h.ArchiveFieldDef(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/field-defs/") && r.Method == http.MethodPut:
		h.UpdateFieldDef(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func fieldIDFromPath(path, suffix string) string {
	id := strings.TrimPrefix(path, "/admin/api/v1/field-defs/")
	id = strings.TrimSuffix(id, suffix)
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// ListFieldDefs 查询字段定义列表
func (h *FieldDefsHandler) ListFieldDefs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	includeArchived := r.URL.Query().Get("include_archived") == "true"

	resp, err := h.defService.ListFieldDefs(ctx, service.ListFieldDefsRequest{
		IncludeArchived: includeArchived,
	})
	if err != nil {
		h.logger.Error("ListFieldDefs failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// CreateFieldDef 创建字段定义
func (h *FieldDefsHandler) CreateFieldDef(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var payload struct {
		Key        string               `json:"key"`
		Label      string               `json:"label"`
		Type       string               `json:"type"`
		Options    []domain.FieldOption `json:"options"`
		Required   bool                 `json:"required"`
		Visibility string               `json:"visibility"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.defService.CreateFieldDef(ctx, service.CreateFieldDefRequest{
		Key:        payload.Key,
		Label:      payload.Label,
		Type:       payload.Type,
		Options:    payload.Options,
		Required:   payload.Required,
		Visibility: payload.Visibility,
	})
	if err != nil {
		h.logger.Error("CreateFieldDef failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// UpdateFieldDef 更新字段定义（key与type不可变）
func (h *FieldDefsHandler) UpdateFieldDef(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	fieldID := fieldIDFromPath(r.URL.Path, "")
	if fieldID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		Label      string               `json:"label"`
		Options    []domain.FieldOption `json:"options"`
		Required   bool                 `json:"required"`
		Visibility string               `json:"visibility"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.defService.UpdateFieldDef(ctx, service.UpdateFieldDefRequest{
		FieldID:    fieldID,
		Label:      payload.Label,
		Options:    payload.Options,
		Required:   payload.Required,
		Visibility: payload.Visibility,
	}); err != nil {
		h.logger.Error("UpdateFieldDef failed", zap.Error(err), zap.String("field_id", fieldID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// ArchiveFieldDef 归档字段定义（软删除；已有数据保留）
func (h *FieldDefsHandler) ArchiveFieldDef(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	fieldID := fieldIDFromPath(r.URL.Path, "/archive")
	if fieldID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.defService.ArchiveFieldDef(ctx, fieldID); err != nil {
		h.logger.Error("ArchiveFieldDef failed", zap.Error(err), zap.String("field_id", fieldID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"archived": true}))
}

// ReorderFieldDefs 调整字段顺序（单事务批量重写order_index）
func (h *FieldDefsHandler) ReorderFieldDefs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var payload struct {
		OrderedFieldIDs []string `json:"ordered_field_ids"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.defService.ReorderFieldDefs(ctx, service.ReorderFieldDefsRequest{
		OrderedFieldIDs: payload.OrderedFieldIDs,
	}); err != nil {
		h.logger.Error("ReorderFieldDefs failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"reordered": true}))
}
