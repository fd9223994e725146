package httpapi

import (
	"net/http"
	"strings"

	"parish-data/internal/service"

	"go.uber.org/zap"
)

// PeopleHandler 人员管理 Handler
type PeopleHandler struct {
	personService *service.PersonService
	noteService   *service.NoteService
	logger        *zap.Logger
}

// NewPeopleHandler 创建人员管理 Handler
func NewPeopleHandler(personService *service.PersonService, noteService *service.NoteService, logger *zap.Logger) *PeopleHandler {
	return &PeopleHandler{
		personService: personService,
		noteService:   noteService,
		logger:        logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *PeopleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/people" && r.Method == http.MethodGet:
		h.ListPeople(w, r)
	case r.URL.Path == "/admin/api/v1/people" && r.Method == http.MethodPost:
		h.CreatePerson(w, r)
	case strings.HasSuffix(r.URL.Path, "/form-schema") && r.Method == http.MethodGet:
		h.GetFormSchema(w, r)
	case strings.HasSuffix(r.URL.Path, "/notes") && r.Method == http.MethodGet:
		h.ListNotes(w, r)
	case strings.HasSuffix(r.URL.Path, "/notes") && r.Method == http.MethodPost:
		h.CreateNote(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/people/") && r.Method == http.MethodGet:
		h.GetPerson(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/people/") && r.Method == http.MethodPut:
		h.UpdatePerson(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// personIDFromPath 提取 /admin/api/v1/people/{id}[/suffix] 中的id
func personIDFromPath(path, suffix string) string {
	id := strings.TrimPrefix(path, "/admin/api/v1/people/")
	id = strings.TrimSuffix(id, suffix)
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// ListPeople 查询人员列表
func (h *PeopleHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. 参数解析
	q := r.URL.Query()
	role := roleFromReq(r)
	page := parseInt(q.Get("page"), 1)
	size := parseInt(q.Get("size"), 20)

	filter := service.PeopleFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.ToLower(strings.TrimSpace(q.Get("status"))),
	}
	if raw := strings.TrimSpace(q.Get("tag_ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.TagIDs = append(filter.TagIDs, id)
			}
		}
	}
	// field.<key>=<value> 形式的自定义字段过滤
	for key, values := range q {
		if strings.HasPrefix(key, "field.") && len(values) > 0 {
			if filter.FieldEquals == nil {
				filter.FieldEquals = map[string]any{}
			}
			filter.FieldEquals[strings.TrimPrefix(key, "field.")] = values[0]
		}
	}

	// 2. 调用 Service
	req := service.ListPeopleRequest{
		Role:   role,
		Filter: filter,
		Page:   page,
		Size:   size,
	}

	resp, err := h.personService.ListPeople(ctx, req)
	if err != nil {
		h.logger.Error("ListPeople failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	// 3. 返回响应
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetPerson 查询人员详情
func (h *PeopleHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID := personIDFromPath(r.URL.Path, "")
	if personID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp, err := h.personService.GetPerson(ctx, service.GetPersonRequest{
		PersonID: personID,
		Role:     roleFromReq(r),
	})
	if err != nil {
		h.logger.Error("GetPerson failed", zap.Error(err), zap.String("person_id", personID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// personPayload 创建/更新人员的请求体
type personPayload struct {
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	PreferredName string         `json:"preferred_name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Status        string         `json:"status"`
	TagIDs        []string       `json:"tag_ids"`
	Fields        map[string]any `json:"fields"`
}

// CreatePerson 创建人员
func (h *PeopleHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var payload personPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	req := service.SavePersonRequest{
		Role:          role,
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		PreferredName: payload.PreferredName,
		Email:         payload.Email,
		Phone:         payload.Phone,
		Status:        payload.Status,
		TagIDs:        payload.TagIDs,
		Fields:        payload.Fields,
	}

	resp, err := h.personService.CreatePerson(ctx, req)
	if err != nil {
		h.logger.Error("CreatePerson failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// UpdatePerson 更新人员
func (h *PeopleHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role, ok := requireStaff(w, r)
	if !ok {
		return
	}

	personID := personIDFromPath(r.URL.Path, "")
	if personID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload personPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	req := service.SavePersonRequest{
		Role:          role,
		PersonID:      personID,
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		PreferredName: payload.PreferredName,
		Email:         payload.Email,
		Phone:         payload.Phone,
		Status:        payload.Status,
		TagIDs:        payload.TagIDs,
		Fields:        payload.Fields,
	}

	if err := h.personService.UpdatePerson(ctx, req); err != nil {
		h.logger.Error("UpdatePerson failed", zap.Error(err), zap.String("person_id", personID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// GetFormSchema 获取人员详情页的动态表单schema
// GET /admin/api/v1/people/{id}/form-schema?read_only=true
// id为"new"时返回空白表单（创建场景）
func (h *PeopleHandler) GetFormSchema(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role := roleFromReq(r)
	readOnly := r.URL.Query().Get("read_only") == "true"
	personID := personIDFromPath(r.URL.Path, "/form-schema")
	if personID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var values map[string]any
	if personID != "new" {
		p, err := h.personService.GetPerson(ctx, service.GetPersonRequest{PersonID: personID, Role: role})
		if err != nil {
			h.logger.Error("GetFormSchema failed", zap.Error(err), zap.String("person_id", personID))
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		values = p.Fields
	}

	controls, err := h.personService.BuildPersonFormSchema(ctx, values, readOnly, role)
	if err != nil {
		h.logger.Error("BuildPersonFormSchema failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"controls": controls}))
}

// ListNotes 查询人员备注
func (h *PeopleHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID := personIDFromPath(r.URL.Path, "/notes")
	if personID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp, err := h.noteService.ListNotes(ctx, service.ListNotesRequest{
		PersonID: personID,
		Role:     roleFromReq(r),
	})
	if err != nil {
		h.logger.Error("ListNotes failed", zap.Error(err), zap.String("person_id", personID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// CreateNote 创建人员备注
func (h *PeopleHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	personID := personIDFromPath(r.URL.Path, "/notes")
	if personID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		Body       string `json:"body"`
		Visibility string `json:"visibility"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.noteService.CreateNote(ctx, service.CreateNoteRequest{
		PersonID:     personID,
		AuthorUserID: userIDFromReq(r),
		Body:         payload.Body,
		Visibility:   payload.Visibility,
	})
	if err != nil {
		h.logger.Error("CreateNote failed", zap.Error(err), zap.String("person_id", personID))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}
