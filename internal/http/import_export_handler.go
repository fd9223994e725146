package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parish-data/internal/service"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// maxUploadBytes 上传文件大小上限
const maxUploadBytes = 10 << 20 // 10MB

// ImportExportHandler 人员CSV/Excel导入导出 Handler
type ImportExportHandler struct {
	importService *service.ImportService
	exportService *service.ExportService
	logger        *zap.Logger
}

// NewImportExportHandler 创建导入导出 Handler
func NewImportExportHandler(importService *service.ImportService, exportService *service.ExportService, logger *zap.Logger) *ImportExportHandler {
	return &ImportExportHandler{
		importService: importService,
		exportService: exportService,
		logger:        logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ImportExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/people/import/upload" && r.Method == http.MethodPost:
		h.Upload(w, r)
	case r.URL.Path == "/admin/api/v1/people/import/mapping" && r.Method == http.MethodPut:
		h.SetMapping(w, r)
	case r.URL.Path == "/admin/api/v1/people/import/run" && r.Method == http.MethodPost:
		h.RunImport(w, r)
	case r.URL.Path == "/admin/api/v1/people/import/template" && r.Method == http.MethodGet:
		h.DownloadTemplate(w, r)
	case r.URL.Path == "/admin/api/v1/people/export/columns" && r.Method == http.MethodGet:
		h.ListExportColumns(w, r)
	case r.URL.Path == "/admin/api/v1/people/export" && r.Method == http.MethodPost:
		h.ExportCSV(w, r)
	case r.URL.Path == "/admin/api/v1/people/export/xlsx" && r.Method == http.MethodPost:
		h.ExportXLSX(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Upload 上传CSV/XLSX文件，建立导入会话
// multipart form，字段名 file；按文件名后缀区分格式
func (h *ImportExportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to parse form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file not found in request"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file"))
		return
	}

	var records [][]string
	if strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		records, err = readXLSXRecords(fileBytes)
	} else {
		records, err = service.ParseCSV(fileBytes)
	}
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to parse file: %v", err)))
		return
	}

	resp, err := h.importService.BeginSession(ctx, records)
	if err != nil {
		h.logger.Error("BeginSession failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// readXLSXRecords 读取XLSX第一个sheet的全部行
func readXLSXRecords(fileBytes []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

// SetMapping 更新列映射并返回样本校验结果
func (h *ImportExportHandler) SetMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var payload struct {
		SessionID string            `json:"session_id"`
		Mapping   map[string]string `json:"mapping"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.importService.SetMapping(ctx, service.SetMappingRequest{
		SessionID: payload.SessionID,
		Mapping:   payload.Mapping,
	})
	if err != nil {
		h.logger.Error("SetMapping failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// RunImport 执行导入
func (h *ImportExportHandler) RunImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	resp, err := h.importService.RunImport(ctx, service.RunImportRequest{
		SessionID: payload.SessionID,
		Role:      role,
	})
	if err != nil {
		h.logger.Error("RunImport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// DownloadTemplate 下载导入模板（XLSX，只含核心列表头）
func (h *ImportExportHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := GeneratePeopleImportTemplate()
	if err != nil {
		h.logger.Error("GeneratePeopleImportTemplate failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate template: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=people-import-template.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListExportColumns 查询当前角色可导出列
func (h *ImportExportHandler) ListExportColumns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	columns, err := h.exportService.ListColumns(ctx, roleFromReq(r))
	if err != nil {
		h.logger.Error("ListExportColumns failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"columns": columns}))
}

// exportPayload 导出请求体（列选择 + 列表页同款过滤）
type exportPayload struct {
	Columns []string          `json:"columns"`
	Search  string            `json:"search"`
	Status  string            `json:"status"`
	TagIDs  []string          `json:"tag_ids"`
	Fields  map[string]string `json:"fields"`
}

func (p exportPayload) toExportRequest(r *http.Request) service.ExportRequest {
	filter := service.PeopleFilter{
		Search: p.Search,
		Status: strings.ToLower(strings.TrimSpace(p.Status)),
		TagIDs: p.TagIDs,
	}
	for k, v := range p.Fields {
		if filter.FieldEquals == nil {
			filter.FieldEquals = map[string]any{}
		}
		filter.FieldEquals[k] = v
	}
	return service.ExportRequest{
		Role:    roleFromReq(r),
		Columns: p.Columns,
		Filter:  filter,
	}
}

// ExportCSV 导出人员CSV
func (h *ImportExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload exportPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	result, err := h.exportService.ExportPeople(ctx, payload.toExportRequest(r))
	if err != nil {
		h.logger.Error("ExportCSV failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

// ExportXLSX 导出人员Excel（与CSV同一套行组装）
func (h *ImportExportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload exportPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	header, rows, err := h.exportService.BuildRows(ctx, payload.toExportRequest(r))
	if err != nil {
		h.logger.Error("ExportXLSX failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	data, err := GeneratePeopleExport(header, rows)
	if err != nil {
		h.logger.Error("GeneratePeopleExport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	filename := strings.TrimSuffix(service.ExportFilename(time.Now()), ".csv") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
