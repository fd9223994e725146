package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// PeopleImportTemplateHeader 导入模板表头（核心字段，自定义字段通过映射步骤对接）
var PeopleImportTemplateHeader = []string{
	"First Name",
	"Last Name",
	"Preferred Name",
	"Email",
	"Phone",
	"Status",
}

// GeneratePeopleImportTemplate 生成导入模板 Excel 文件（只含表头）
func GeneratePeopleImportTemplate() ([]byte, error) {
	return generatePeopleExcel(PeopleImportTemplateHeader, nil)
}

// GeneratePeopleExport 生成人员导出 Excel 文件
// header/rows 与CSV导出共用同一套行组装逻辑
func GeneratePeopleExport(header []string, rows [][]string) ([]byte, error) {
	return generatePeopleExcel(header, rows)
}

// generatePeopleExcel 生成人员 Excel 文件的通用函数
func generatePeopleExcel(headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "People"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 统一列宽
	if len(headers) > 0 {
		lastCol, err := excelize.ColumnNumberToName(len(headers))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, "A", lastCol, 20); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 写入数据（第1行是表头，从第2行开始）
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value %s: %w", cell, err)
			}
		}
	}

	// 冻结表头行
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}
