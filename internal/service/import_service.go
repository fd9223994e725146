package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"parish-data/internal/domain"
	"parish-data/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 核心字段映射目标（与前端的列映射约定一致）
const (
	TargetFirstName     = "firstName"
	TargetLastName      = "lastName"
	TargetPreferredName = "preferredName"
	TargetEmail         = "email"
	TargetPhone         = "phone"
	TargetStatus        = "status"
	TargetUnmapped      = "" // 不导入该列
)

var coreTargets = map[string]bool{
	TargetFirstName:     true,
	TargetLastName:      true,
	TargetPreferredName: true,
	TargetEmail:         true,
	TargetPhone:         true,
	TargetStatus:        true,
}

// validatePreviewRows 校验只看前N行数据
const validatePreviewRows = 5

// importSessionKeyPrefix 导入会话的KV键前缀
const importSessionKeyPrefix = "parish-data:import:"

// ImportSession 导入会话（Upload → Map → Validate/Import 三步之间的状态）
// 存储在KV里，按session_id引用，避免每一步都重传整个文件
type ImportSession struct {
	SessionID string              `json:"session_id"`
	Headers   []string            `json:"headers"`
	Rows      []map[string]string `json:"rows"`    // header -> 原始字符串值
	Mapping   map[string]string   `json:"mapping"` // header -> 目标（核心字段/自定义字段key/空串）
	CreatedAt time.Time           `json:"created_at"`
}

// ImportService CSV导入管线
type ImportService struct {
	personService *PersonService
	defService    *FieldDefService
	kv            store.KV
	webhook       *WebhookClient // 可选，导入完成后推送结果摘要
	sessionTTL    time.Duration
	logger        *zap.Logger
}

// NewImportService 创建导入服务
func NewImportService(personService *PersonService, defService *FieldDefService, kv store.KV, webhook *WebhookClient, sessionTTL time.Duration, logger *zap.Logger) *ImportService {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &ImportService{
		personService: personService,
		defService:    defService,
		kv:            kv,
		webhook:       webhook,
		sessionTTL:    sessionTTL,
		logger:        logger,
	}
}

// ParseCSV 解析CSV文本为记录
// 使用标准CSV解析器：带引号的逗号、转义引号按RFC 4180处理
// （前端版本按逗号硬切并无条件剥引号，内嵌逗号会被切坏）
func ParseCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records := make([][]string, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// AutoMapColumns 为每个表头提议映射目标
// 启发式：小写后的子串匹配（"first"+"name"→firstName 等），匹配不上默认不导入
func AutoMapColumns(headers []string) map[string]string {
	mapping := make(map[string]string, len(headers))
	for _, header := range headers {
		h := strings.ToLower(header)
		switch {
		case strings.Contains(h, "first") && strings.Contains(h, "name"):
			mapping[header] = TargetFirstName
		case strings.Contains(h, "last") && strings.Contains(h, "name"):
			mapping[header] = TargetLastName
		case strings.Contains(h, "email"):
			mapping[header] = TargetEmail
		case strings.Contains(h, "phone"):
			mapping[header] = TargetPhone
		case strings.Contains(h, "status"):
			mapping[header] = TargetStatus
		default:
			mapping[header] = TargetUnmapped
		}
	}
	return mapping
}

// BeginSessionResponse Upload步骤响应
type BeginSessionResponse struct {
	SessionID       string              `json:"session_id"`
	Headers         []string            `json:"headers"`
	RowCount        int                 `json:"row_count"`
	Preview         []map[string]string `json:"preview"` // 前5行
	ProposedMapping map[string]string   `json:"proposed_mapping"`
}

// BeginSession Upload步骤：记录按表头展开，建立会话并提议自动映射
// 第一条非空记录作为表头行
func (s *ImportService) BeginSession(ctx context.Context, records [][]string) (*BeginSessionResponse, error) {
	// 跳过空行找表头
	start := 0
	for start < len(records) && isBlankRecord(records[start]) {
		start++
	}
	if start >= len(records) {
		return nil, fmt.Errorf("file has no header row")
	}

	headers := make([]string, 0, len(records[start]))
	for _, h := range records[start] {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows := make([]map[string]string, 0, len(records)-start-1)
	for _, record := range records[start+1:] {
		if isBlankRecord(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}

	session := &ImportSession{
		SessionID: uuid.NewString(),
		Headers:   headers,
		Rows:      rows,
		Mapping:   AutoMapColumns(headers),
		CreatedAt: time.Now(),
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	preview := rows
	if len(preview) > validatePreviewRows {
		preview = preview[:validatePreviewRows]
	}

	return &BeginSessionResponse{
		SessionID:       session.SessionID,
		Headers:         headers,
		RowCount:        len(rows),
		Preview:         preview,
		ProposedMapping: session.Mapping,
	}, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// SetMappingRequest Map步骤请求
type SetMappingRequest struct {
	SessionID string
	Mapping   map[string]string // header -> 目标
}

// SetMappingResponse Map步骤响应（附带样本校验结果）
type SetMappingResponse struct {
	Errors []string `json:"errors"`
	Valid  bool     `json:"valid"`
}

// SetMapping Map步骤：覆盖列映射并对样本行校验
// 目标只允许核心字段、活跃自定义字段key或空串（不导入）
func (s *ImportService) SetMapping(ctx context.Context, req SetMappingRequest) (*SetMappingResponse, error) {
	session, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}
	defsByKey := fieldDefsByKey(defs)

	headerSet := make(map[string]bool, len(session.Headers))
	for _, h := range session.Headers {
		headerSet[h] = true
	}
	for header, target := range req.Mapping {
		if !headerSet[header] {
			return nil, fmt.Errorf("unknown csv header: %s", header)
		}
		if target == TargetUnmapped || coreTargets[target] {
			continue
		}
		if _, ok := defsByKey[target]; !ok {
			return nil, fmt.Errorf("unknown mapping target: %s", target)
		}
	}

	// 未提及的表头保持原映射
	for header, target := range req.Mapping {
		session.Mapping[header] = target
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	errs := validateSample(session, defs)
	return &SetMappingResponse{Errors: errs, Valid: len(errs) == 0}, nil
}

// validateSample Validate步骤：对前5行数据做轻量校验
// (a) 必填字段（核心及自定义）有映射列 (b) status取值合法（大小写不敏感） (c) email包含"@"
func validateSample(session *ImportSession, defs []*domain.FieldDef) []string {
	errs := make([]string, 0)

	mappedTargets := make(map[string]string) // target -> header
	for header, target := range session.Mapping {
		if target != TargetUnmapped {
			mappedTargets[target] = header
		}
	}
	if _, ok := mappedTargets[TargetFirstName]; !ok {
		errs = append(errs, "required field firstName has no mapped column")
	}
	if _, ok := mappedTargets[TargetLastName]; !ok {
		errs = append(errs, "required field lastName has no mapped column")
	}
	// 必填自定义字段没有映射列时，导入必然整批失败，提前在Map步骤暴露
	// checkbox缺失归一为false，不算缺列
	for _, def := range defs {
		if !def.Required || domain.FieldType(def.Type) == domain.FieldTypeCheckbox {
			continue
		}
		if _, ok := mappedTargets[def.Key]; !ok {
			errs = append(errs, fmt.Sprintf("required field %s has no mapped column", def.Key))
		}
	}

	rows := session.Rows
	if len(rows) > validatePreviewRows {
		rows = rows[:validatePreviewRows]
	}
	for i, row := range rows {
		rowNum := i + 2 // 第1行是表头

		if header, ok := mappedTargets[TargetStatus]; ok {
			if v := row[header]; v != "" && !domain.IsValidPersonStatus(strings.ToLower(v)) {
				errs = append(errs, fmt.Sprintf("row %d: invalid status %q (expected active, inactive or visitor)", rowNum, v))
			}
		}
		if header, ok := mappedTargets[TargetEmail]; ok {
			if v := row[header]; v != "" && !strings.Contains(v, "@") {
				errs = append(errs, fmt.Sprintf("row %d: invalid email %q", rowNum, v))
			}
		}
	}
	return errs
}

// RunImportRequest Import步骤请求
type RunImportRequest struct {
	SessionID string
	Role      domain.Role
}

// RunImportResponse Import步骤响应（聚合计数）
type RunImportResponse struct {
	Total        int      `json:"total"`
	SuccessCount int      `json:"success_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors"`
}

// maxReportedErrors 返回给前端的错误明细上限（计数不受影响）
const maxReportedErrors = 20

// RunImport Import步骤：对全部数据行（不只样本）逐行创建
// 尽力而为：单行失败计数后继续，不中断后续行
func (s *ImportService) RunImport(ctx context.Context, req RunImportRequest) (*RunImportResponse, error) {
	session, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	defs, err := s.defService.ListActiveFieldDefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field defs: %w", err)
	}
	defsByKey := fieldDefsByKey(defs)

	if errs := validateSample(session, defs); len(errs) > 0 {
		return nil, fmt.Errorf("import blocked by validation errors: %s", strings.Join(errs, "; "))
	}

	resp := &RunImportResponse{Total: len(session.Rows), Errors: []string{}}
	for i, row := range session.Rows {
		rowNum := i + 2

		personReq := buildImportPerson(session.Mapping, row, defsByKey, req.Role)
		if _, err := s.personService.CreatePerson(ctx, personReq); err != nil {
			resp.FailedCount++
			if len(resp.Errors) < maxReportedErrors {
				resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			}
			continue
		}
		resp.SuccessCount++
	}

	// 会话用完即焚
	if err := s.kv.Del(ctx, importSessionKeyPrefix+session.SessionID); err != nil {
		s.logger.Warn("failed to delete import session", zap.Error(err))
	}

	s.logger.Info("csv import finished",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.SuccessCount),
		zap.Int("failed", resp.FailedCount))

	if s.webhook != nil {
		s.webhook.NotifyImportResult(resp.Total, resp.SuccessCount, resp.FailedCount)
	}
	return resp, nil
}

// buildImportPerson 应用最终映射组装创建请求
// 核心字段目标成为顶层属性，其余映射目标进入fields；status缺省为active
func buildImportPerson(mapping map[string]string, row map[string]string, defsByKey map[string]*domain.FieldDef, role domain.Role) SavePersonRequest {
	req := SavePersonRequest{
		Role:   role,
		Fields: map[string]any{},
	}
	for header, target := range mapping {
		value := row[header]
		switch target {
		case TargetUnmapped:
			// 该列不导入
		case TargetFirstName:
			req.FirstName = value
		case TargetLastName:
			req.LastName = value
		case TargetPreferredName:
			req.PreferredName = value
		case TargetEmail:
			req.Email = value
		case TargetPhone:
			req.Phone = value
		case TargetStatus:
			req.Status = strings.ToLower(value)
		default:
			if value == "" {
				continue
			}
			// checkbox列接受Yes/No等写法，multiselect列按"; "切分
			if def, ok := defsByKey[target]; ok {
				switch domain.FieldType(def.Type) {
				case domain.FieldTypeCheckbox:
					req.Fields[target] = parseBoolCell(value)
					continue
				case domain.FieldTypeMultiselect:
					req.Fields[target] = splitMultiValueCell(value)
					continue
				}
			}
			req.Fields[target] = value
		}
	}
	if req.Status == "" {
		req.Status = string(domain.PersonStatusActive)
	}
	return req
}

func parseBoolCell(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

func splitMultiValueCell(value string) []string {
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fieldDefsByKey(defs []*domain.FieldDef) map[string]*domain.FieldDef {
	byKey := make(map[string]*domain.FieldDef, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}
	return byKey
}

var errSessionNotFound = errors.New("import session not found or expired")

func (s *ImportService) saveSession(ctx context.Context, session *ImportSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal import session: %w", err)
	}
	if err := s.kv.Set(ctx, importSessionKeyPrefix+session.SessionID, string(raw), s.sessionTTL); err != nil {
		return fmt.Errorf("failed to save import session: %w", err)
	}
	return nil
}

func (s *ImportService) loadSession(ctx context.Context, sessionID string) (*ImportSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	raw, err := s.kv.Get(ctx, importSessionKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, errSessionNotFound
		}
		return nil, fmt.Errorf("failed to load import session: %w", err)
	}
	var session ImportSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import session: %w", err)
	}
	return &session, nil
}
