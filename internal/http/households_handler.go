package httpapi

import (
	"net/http"
	"strings"

	"parish-data/internal/service"

	"go.uber.org/zap"
)

// HouseholdsHandler 家庭管理 Handler
type HouseholdsHandler struct {
	householdService *service.HouseholdService
	logger           *zap.Logger
}

// NewHouseholdsHandler 创建家庭管理 Handler
func NewHouseholdsHandler(householdService *service.HouseholdService, logger *zap.Logger) *HouseholdsHandler {
	return &HouseholdsHandler{
		householdService: householdService,
		logger:           logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *HouseholdsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/households" && r.Method == http.MethodGet:
		h.ListHouseholds(w, r)
	case r.URL.Path == "/admin/api/v1/households" && r.Method == http.MethodPost:
		h.CreateHousehold(w, r)
	case strings.HasSuffix(r.URL.Path, "/members") && r.Method == http.MethodPost:
		h.AddMember(w, r)
	case strings.Contains(r.URL.Path, "/members/") && r.Method == http.MethodPut:
		h.UpdateMemberRelationship(w, r)
	case strings.Contains(r.URL.Path, "/members/") && r.Method == http.MethodDelete:
		h.RemoveMember(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/households/") && r.Method == http.MethodGet:
		h.GetHousehold(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/households/") && r.Method == http.MethodPut:
		h.UpdateHousehold(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// householdPathParts 解析 /admin/api/v1/households/{id}[/members[/{memberId}]]
func householdPathParts(path string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, "/admin/api/v1/households/"), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// ListHouseholds 查询家庭列表（含成员计数）
func (h *HouseholdsHandler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.householdService.ListHouseholds(ctx)
	if err != nil {
		h.logger.Error("ListHouseholds failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// CreateHousehold 创建家庭
func (h *HouseholdsHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.householdService.CreateHousehold(ctx, payload.Name)
	if err != nil {
		h.logger.Error("CreateHousehold failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetHousehold 查询家庭详情（含成员列表）
func (h *HouseholdsHandler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parts := householdPathParts(r.URL.Path)
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp, err := h.householdService.GetHousehold(ctx, parts[0])
	if err != nil {
		h.logger.Error("GetHousehold failed", zap.Error(err), zap.String("household_id", parts[0]))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// UpdateHousehold 更新家庭名称
func (h *HouseholdsHandler) UpdateHousehold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	parts := householdPathParts(r.URL.Path)
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.householdService.UpdateHousehold(ctx, parts[0], payload.Name); err != nil {
		h.logger.Error("UpdateHousehold failed", zap.Error(err), zap.String("household_id", parts[0]))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// AddMember 添加家庭成员
// POST /admin/api/v1/households/{id}/members
func (h *HouseholdsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	parts := householdPathParts(r.URL.Path)
	if len(parts) != 2 || parts[1] != "members" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		PersonID     string `json:"person_id"`
		Relationship string `json:"relationship"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.householdService.AddMember(ctx, service.AddMemberRequest{
		HouseholdID:  parts[0],
		PersonID:     payload.PersonID,
		Relationship: payload.Relationship,
	})
	if err != nil {
		h.logger.Error("AddMember failed", zap.Error(err), zap.String("household_id", parts[0]))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// UpdateMemberRelationship 更新成员关系
// PUT /admin/api/v1/households/{id}/members/{memberId}
func (h *HouseholdsHandler) UpdateMemberRelationship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	parts := householdPathParts(r.URL.Path)
	if len(parts) != 3 || parts[1] != "members" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		Relationship string `json:"relationship"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.householdService.UpdateMemberRelationship(ctx, parts[2], payload.Relationship); err != nil {
		h.logger.Error("UpdateMemberRelationship failed", zap.Error(err), zap.String("member_id", parts[2]))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// RemoveMember 移除家庭成员
// DELETE /admin/api/v1/households/{id}/members/{memberId}
func (h *HouseholdsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	parts := householdPathParts(r.URL.Path)
	if len(parts) != 3 || parts[1] != "members" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.householdService.RemoveMember(ctx, service.RemoveMemberRequest{
		HouseholdID: parts[0],
		MemberID:    parts[2],
	}); err != nil {
		h.logger.Error("RemoveMember failed", zap.Error(err), zap.String("member_id", parts[2]))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed": true}))
}
