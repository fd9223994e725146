package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"parish-data/internal/domain"
	"parish-data/internal/repository"

	"go.uber.org/zap"
)

// 核心导出列
const (
	ExportColFirstName     = "firstName"
	ExportColLastName      = "lastName"
	ExportColPreferredName = "preferredName"
	ExportColEmail         = "email"
	ExportColPhone         = "phone"
	ExportColStatus        = "status"
	ExportColTags          = "tags"      // 标签名按"; "拼接
	ExportColHousehold     = "household" // 是否有家庭：Yes/No
	ExportColCreatedAt     = "createdAt"
	ExportColUpdatedAt     = "updatedAt"
)

// exportDateLayout 导出用日期显示格式
const exportDateLayout = "Jan 2, 2006"

// multiValueSeparator 多值单元格的拼接分隔符
const multiValueSeparator = "; "

// ExportService 人员CSV导出管线
type ExportService struct {
	peopleRepo repository.PeopleRepository
	tagsRepo   repository.TagsRepository
	defService *FieldDefService
	logger     *zap.Logger
}

// NewExportService 创建导出服务
func NewExportService(peopleRepo repository.PeopleRepository, tagsRepo repository.TagsRepository, defService *FieldDefService, logger *zap.Logger) *ExportService {
	return &ExportService{
		peopleRepo: peopleRepo,
		tagsRepo:   tagsRepo,
		defService: defService,
		logger:     logger,
	}
}

// ExportColumn 可导出列描述（供前端列选择界面使用）
type ExportColumn struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Custom bool   `json:"custom"`
}

var coreExportColumns = []ExportColumn{
	{Key: ExportColFirstName, Label: "First Name"},
	{Key: ExportColLastName, Label: "Last Name"},
	{Key: ExportColPreferredName, Label: "Preferred Name"},
	{Key: ExportColEmail, Label: "Email"},
	{Key: ExportColPhone, Label: "Phone"},
	{Key: ExportColStatus, Label: "Status"},
	{Key: ExportColTags, Label: "Tags"},
	{Key: ExportColHousehold, Label: "Household"},
	{Key: ExportColCreatedAt, Label: "Created"},
	{Key: ExportColUpdatedAt, Label: "Updated"},
}

// ListColumns 列出当前角色可导出的全部列：核心列 + 可见的自定义字段
func (s *ExportService) ListColumns(ctx context.Context, role domain.Role) ([]ExportColumn, error) {
	defs, err := s.visibleDefs(ctx, role)
	if err != nil {
		return nil, err
	}
	columns := make([]ExportColumn, 0, len(coreExportColumns)+len(defs))
	columns = append(columns, coreExportColumns...)
	for _, d := range defs {
		columns = append(columns, ExportColumn{Key: d.Key, Label: d.Label, Custom: true})
	}
	return columns, nil
}

// ExportRequest 导出请求
type ExportRequest struct {
	Role    domain.Role
	Columns []string     // 为空时导出全部可见列
	Filter  PeopleFilter // 与列表页相同的组合过滤
}

// ExportResult 导出结果
type ExportResult struct {
	Filename string
	Data     []byte // CSV内容
	Header   []string
	Rows     [][]string
}

// ExportPeople 按选定列导出人员CSV
// 引号与转义由标准CSV编码器按RFC 4180处理，内嵌逗号的值会被正确引起来
func (s *ExportService) ExportPeople(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	header, rows, err := s.BuildRows(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info("people export finished",
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(header)))

	return &ExportResult{
		Filename: ExportFilename(time.Now()),
		Data:     buf.Bytes(),
		Header:   header,
		Rows:     rows,
	}, nil
}

// ExportFilename 导出文件名：people-export-<日期>.csv
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("people-export-%s.csv", now.Format("2006-01-02"))
}

// BuildRows 组装表头与数据行（CSV与XLSX导出共用）
func (s *ExportService) BuildRows(ctx context.Context, req ExportRequest) ([]string, [][]string, error) {
	defs, err := s.visibleDefs(ctx, req.Role)
	if err != nil {
		return nil, nil, err
	}
	defsByKey := fieldDefsByKey(defs)

	columns := req.Columns
	if len(columns) == 0 {
		columns = make([]string, 0, len(coreExportColumns)+len(defs))
		for _, c := range coreExportColumns {
			columns = append(columns, c.Key)
		}
		for _, d := range defs {
			columns = append(columns, d.Key)
		}
	} else {
		for _, col := range columns {
			if isCoreExportColumn(col) {
				continue
			}
			if _, ok := defsByKey[col]; !ok {
				return nil, nil, fmt.Errorf("unknown export column: %s", col)
			}
		}
	}

	people, err := s.peopleRepo.ListPeople(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list people: %w", err)
	}
	people = FilterPeople(people, req.Filter)

	tagNames, err := s.tagNamesByID(ctx)
	if err != nil {
		return nil, nil, err
	}

	header := make([]string, 0, len(columns))
	for _, col := range columns {
		header = append(header, exportColumnLabel(col, defsByKey))
	}

	rows := make([][]string, 0, len(people))
	for _, p := range people {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, formatExportCell(p, col, defsByKey, tagNames))
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func isCoreExportColumn(key string) bool {
	for _, c := range coreExportColumns {
		if c.Key == key {
			return true
		}
	}
	return false
}

func exportColumnLabel(key string, defsByKey map[string]*domain.FieldDef) string {
	for _, c := range coreExportColumns {
		if c.Key == key {
			return c.Label
		}
	}
	if def, ok := defsByKey[key]; ok {
		return def.Label
	}
	return key
}

// formatExportCell 单元格格式化
// 标签名与多选值按"; "拼接，布尔显示Yes/No，日期用可读格式
func formatExportCell(p *domain.Person, col string, defsByKey map[string]*domain.FieldDef, tagNames map[string]string) string {
	switch col {
	case ExportColFirstName:
		return p.FirstName
	case ExportColLastName:
		return p.LastName
	case ExportColPreferredName:
		return p.PreferredName
	case ExportColEmail:
		return p.Email
	case ExportColPhone:
		return p.Phone
	case ExportColStatus:
		return p.Status
	case ExportColTags:
		names := make([]string, 0, len(p.TagIDs))
		for _, id := range p.TagIDs {
			if name, ok := tagNames[id]; ok {
				names = append(names, name)
			}
		}
		return strings.Join(names, multiValueSeparator)
	case ExportColHousehold:
		return formatYesNo(p.HouseholdID != "")
	case ExportColCreatedAt:
		return p.CreatedAt.Format(exportDateLayout)
	case ExportColUpdatedAt:
		return p.UpdatedAt.Format(exportDateLayout)
	}

	value, ok := p.Fields[col]
	if !ok || value == nil {
		return ""
	}
	def := defsByKey[col]
	if def == nil {
		return fmt.Sprint(value)
	}
	switch domain.FieldType(def.Type) {
	case domain.FieldTypeCheckbox:
		b, _ := value.(bool)
		return formatYesNo(b)
	case domain.FieldTypeMultiselect:
		return strings.Join(toStringSlice(value), multiValueSeparator)
	case domain.FieldTypeDate:
		if s, ok := value.(string); ok {
			if t, err := time.Parse(dateLayout, s); err == nil {
				return t.Format(exportDateLayout)
			}
			return s
		}
		return fmt.Sprint(value)
	default:
		return fmt.Sprint(value)
	}
}

func formatYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return []string{fmt.Sprint(value)}
}

func (s *ExportService) visibleDefs(ctx context.Context, role domain.Role) ([]*domain.FieldDef, error) {
	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}
	if role.IsStaff() {
		return defs, nil
	}
	visible := make([]*domain.FieldDef, 0, len(defs))
	for _, d := range defs {
		if d.Visibility != string(domain.FieldVisibilityStaffOnly) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

func (s *ExportService) tagNamesByID(ctx context.Context) (map[string]string, error) {
	tags, err := s.tagsRepo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	names := make(map[string]string, len(tags))
	for _, t := range tags {
		names[t.TagID] = t.TagName
	}
	return names, nil
}
