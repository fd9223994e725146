package httpapi

import (
	"net/http"
	"strings"

	"parish-data/internal/service"

	"go.uber.org/zap"
)

// TagsHandler 标签管理 Handler
type TagsHandler struct {
	tagService *service.TagService
	logger     *zap.Logger
}

// NewTagsHandler 创建标签管理 Handler
func NewTagsHandler(tagService *service.TagService, logger *zap.Logger) *TagsHandler {
	return &TagsHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *TagsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/tags" && r.Method == http.MethodGet:
		h.ListTags(w, r)
	case r.URL.Path == "/admin/api/v1/tags" && r.Method == http.MethodPost:
		h.CreateTag(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/tags/") && r.Method == http.MethodPut:
		h.UpdateTag(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/tags/") && r.Method == http.MethodDelete:
		h.DeleteTag(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func tagIDFromPath(path string) string {
	id := strings.Trim(strings.TrimPrefix(path, "/admin/api/v1/tags/"), "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// ListTags 查询标签列表（含使用计数）
func (h *TagsHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.tagService.ListTags(ctx)
	if err != nil {
		h.logger.Error("ListTags failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// CreateTag 创建标签
func (h *TagsHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var payload struct {
		TagName string `json:"tag_name"`
		Color   string `json:"color"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.tagService.CreateTag(ctx, service.CreateTagRequest{
		TagName: payload.TagName,
		Color:   payload.Color,
	})
	if err != nil {
		h.logger.Error("CreateTag failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// UpdateTag 更新标签
func (h *TagsHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	tagID := tagIDFromPath(r.URL.Path)
	if tagID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		TagName string `json:"tag_name"`
		Color   string `json:"color"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.tagService.UpdateTag(ctx, service.UpdateTagRequest{
		TagID:   tagID,
		TagName: payload.TagName,
		Color:   payload.Color,
	}); err != nil {
		h.logger.Error("UpdateTag failed", zap.Error(err), zap.String("tag_id", tagID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// DeleteTag 删除标签（仍被人员引用时拒绝）
func (h *TagsHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	tagID := tagIDFromPath(r.URL.Path)
	if tagID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.tagService.DeleteTag(ctx, tagID); err != nil {
		h.logger.Error("DeleteTag failed", zap.Error(err), zap.String("tag_id", tagID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
}
