package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parish-data/internal/domain"
	"parish-data/internal/models"
	"parish-data/internal/repository"

	"go.uber.org/zap"
)

// PersonService 人员服务
type PersonService struct {
	peopleRepo repository.PeopleRepository
	defService *FieldDefService
	logger     *zap.Logger
}

// NewPersonService 创建人员服务
func NewPersonService(peopleRepo repository.PeopleRepository, defService *FieldDefService, logger *zap.Logger) *PersonService {
	return &PersonService{
		peopleRepo: peopleRepo,
		defService: defService,
		logger:     logger,
	}
}

// PeopleFilter 人员组合过滤器
// 各谓词逻辑AND；全部为空时返回完整集合（保持原顺序）
type PeopleFilter struct {
	Search      string         // 大小写不敏感的子串匹配（姓名/曾用名/邮箱/电话）
	Status      string         // 状态相等
	TagIDs      []string       // 标签交集非空
	FieldEquals map[string]any // 自定义字段精确相等
}

// FilterPeople 纯函数：对集合应用组合过滤，保持顺序
func FilterPeople(people []*domain.Person, f PeopleFilter) []*domain.Person {
	out := make([]*domain.Person, 0, len(people))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, p := range people {
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if len(f.TagIDs) > 0 && !tagsIntersect(p.TagIDs, f.TagIDs) {
			continue
		}
		if !fieldsMatch(p.Fields, f.FieldEquals) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p *domain.Person, search string) bool {
	candidates := []string{
		p.FirstName + " " + p.LastName,
		p.PreferredName,
		p.Email,
		p.Phone,
	}
	for _, c := range candidates {
		if c != "" && strings.Contains(strings.ToLower(c), search) {
			return true
		}
	}
	return false
}

func tagsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func fieldsMatch(fields map[string]any, wanted map[string]any) bool {
	for key, want := range wanted {
		got, ok := fields[key]
		if !ok {
			return false
		}
		// 精确相等；数字经过JSON往返后都是float64，统一格式化比较
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// PersonItem 人员（前端格式）
type PersonItem struct {
	PersonID      string         `json:"person_id"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	PreferredName string         `json:"preferred_name,omitempty"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Status        string         `json:"status"`
	TagIDs        []string       `json:"tag_ids"`
	HouseholdID   string         `json:"household_id,omitempty"`
	Fields        map[string]any `json:"fields"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// toPersonItem 转换为前端格式；非staff角色剔除staff_only字段值
func toPersonItem(p *domain.Person, defs []*domain.FieldDef, role domain.Role) PersonItem {
	fields := make(map[string]any, len(p.Fields))
	for _, def := range defs {
		value, ok := p.Fields[def.Key]
		if !ok {
			continue
		}
		if def.Visibility == string(domain.FieldVisibilityStaffOnly) && !role.IsStaff() {
			continue
		}
		fields[def.Key] = value
	}
	return PersonItem{
		PersonID:      p.PersonID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PreferredName: p.PreferredName,
		Email:         p.Email,
		Phone:         p.Phone,
		Status:        p.Status,
		TagIDs:        p.TagIDs,
		HouseholdID:   p.HouseholdID,
		Fields:        fields,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ListPeopleRequest 查询人员列表请求
type ListPeopleRequest struct {
	Role   domain.Role
	Filter PeopleFilter
	Page   int
	Size   int
}

// ListPeopleResponse 查询人员列表响应
type ListPeopleResponse struct {
	Items      []PersonItem      `json:"items"`
	Total      int               `json:"total"`
	Pagination models.Pagination `json:"pagination"`
}

// ListPeople 查询人员列表（整表拉取后内存过滤，与前端行为一致）
func (s *PersonService) ListPeople(ctx context.Context, req ListPeopleRequest) (*ListPeopleResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = 50
	}

	people, err := s.peopleRepo.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}

	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}

	filtered := FilterPeople(people, req.Filter)
	total := len(filtered)

	start := (req.Page - 1) * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}

	items := make([]PersonItem, 0, end-start)
	for _, p := range filtered[start:end] {
		items = append(items, toPersonItem(p, defs, req.Role))
	}

	return &ListPeopleResponse{
		Items: items,
		Total: total,
		Pagination: models.Pagination{
			Size:  req.Size,
			Page:  req.Page,
			Count: total,
		},
	}, nil
}

// GetPersonRequest 查询人员详情请求
type GetPersonRequest struct {
	PersonID string
	Role     domain.Role
}

// GetPerson 查询人员详情
func (s *PersonService) GetPerson(ctx context.Context, req GetPersonRequest) (*PersonItem, error) {
	if req.PersonID == "" {
		return nil, fmt.Errorf("person_id is required")
	}

	p, err := s.peopleRepo.GetPerson(ctx, req.PersonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person not found")
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}

	item := toPersonItem(p, defs, req.Role)
	return &item, nil
}

// SavePersonRequest 创建/更新人员请求（表单提交语义）
type SavePersonRequest struct {
	Role          domain.Role
	PersonID      string // 更新时必填
	FirstName     string
	LastName      string
	PreferredName string
	Email         string
	Phone         string
	Status        string
	TagIDs        []string
	HouseholdID   string
	Fields        map[string]any
}

// CreatePersonResponse 创建人员响应
type CreatePersonResponse struct {
	PersonID string `json:"person_id"`
}

// CreatePerson 创建人员
func (s *PersonService) CreatePerson(ctx context.Context, req SavePersonRequest) (*CreatePersonResponse, error) {
	p, err := s.buildPerson(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	personID, err := s.peopleRepo.CreatePerson(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return &CreatePersonResponse{PersonID: personID}, nil
}

// UpdatePerson 更新人员
func (s *PersonService) UpdatePerson(ctx context.Context, req SavePersonRequest) error {
	if req.PersonID == "" {
		return fmt.Errorf("person_id is required")
	}

	existing, err := s.peopleRepo.GetPerson(ctx, req.PersonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("person not found")
		}
		return fmt.Errorf("failed to get person: %w", err)
	}

	p, err := s.buildPerson(ctx, req, existing)
	if err != nil {
		return err
	}

	if err := s.peopleRepo.UpdatePerson(ctx, req.PersonID, p); err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	return nil
}

// buildPerson 校验请求并组装领域对象
// existing非nil时为更新：archived字段和非本次提交的staff_only字段值保留原样
func (s *PersonService) buildPerson(ctx context.Context, req SavePersonRequest, existing *domain.Person) (*domain.Person, error) {
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return nil, fmt.Errorf("last_name is required")
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = string(domain.PersonStatusActive)
	}
	if !domain.IsValidPersonStatus(status) {
		return nil, fmt.Errorf("invalid status: %s", req.Status)
	}

	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("invalid email: %s", req.Email)
	}

	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}

	fields := make(map[string]any)
	if existing != nil {
		// 归档字段的历史数据原样保留
		activeKeys := make(map[string]bool, len(defs))
		for _, def := range defs {
			activeKeys[def.Key] = true
		}
		for k, v := range existing.Fields {
			if !activeKeys[k] {
				fields[k] = v
			}
		}
	}

	for _, def := range defs {
		raw, submitted := req.Fields[def.Key]

		// 非staff角色看不到staff_only字段，不允许它覆盖已有值
		if def.Visibility == string(domain.FieldVisibilityStaffOnly) && !req.Role.IsStaff() {
			if existing != nil {
				if v, ok := existing.Fields[def.Key]; ok {
					fields[def.Key] = v
				}
			}
			continue
		}

		if !submitted && existing != nil {
			// 表单整体提交：未出现的key视为清除；checkbox由Coerce归一为false
			raw = nil
		}
		value, err := CoerceFieldValue(def, raw)
		if err != nil {
			return nil, err
		}
		if value != nil {
			fields[def.Key] = value
		}
	}

	// household_id由HouseholdService随成员关系维护，人员表单提交不改动
	householdID := req.HouseholdID
	if existing != nil {
		householdID = existing.HouseholdID
	}

	// tag_ids去重，保持顺序
	tagIDs := make([]string, 0, len(req.TagIDs))
	seen := make(map[string]bool, len(req.TagIDs))
	for _, id := range req.TagIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		tagIDs = append(tagIDs, id)
	}

	return &domain.Person{
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		PreferredName: strings.TrimSpace(req.PreferredName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Status:        status,
		TagIDs:        tagIDs,
		HouseholdID:   householdID,
		Fields:        fields,
	}, nil
}

// BuildPersonFormSchema 按当前字段定义组装详情页表单schema
// values为nil时返回空白表单（创建场景）
func (s *PersonService) BuildPersonFormSchema(ctx context.Context, values map[string]any, readOnly bool, role domain.Role) ([]FormControl, error) {
	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}
	return BuildFormSchema(defs, values, readOnly, role), nil
}
