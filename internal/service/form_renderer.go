package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"parish-data/internal/domain"
)

// ControlType 表单控件类型（类型到控件的映射是固定的）
type ControlType string

const (
	ControlTextInput   ControlType = "text_input"   // text/email/phone/url
	ControlTextarea    ControlType = "textarea"     // textarea
	ControlNumberInput ControlType = "number_input" // number
	ControlDatePicker  ControlType = "date_picker"  // date
	ControlToggle      ControlType = "toggle"       // checkbox
	ControlSelect      ControlType = "select"       // select
	ControlMultiSelect ControlType = "multi_select" // multiselect
)

// dateLayout 自定义date字段的存储格式（ISO-8601日期）
const dateLayout = "2006-01-02"

// FormControl 渲染后的表单控件描述
// 创建表单和只读档案展示使用同一份描述
type FormControl struct {
	Key      string               `json:"key"`
	Label    string               `json:"label"`
	Control  ControlType          `json:"control"`
	Options  []domain.FieldOption `json:"options,omitempty"`
	Required bool                 `json:"required"`
	ReadOnly bool                 `json:"read_only"`
	Value    any                  `json:"value"`
}

// RenderControl 纯函数：(字段定义, 当前值, 只读) → 控件描述
func RenderControl(def *domain.FieldDef, currentValue any, readOnly bool) FormControl {
	c := FormControl{
		Key:      def.Key,
		Label:    def.Label,
		Required: def.Required,
		ReadOnly: readOnly,
		Value:    currentValue,
	}

	switch domain.FieldType(def.Type) {
	case domain.FieldTypeTextarea:
		c.Control = ControlTextarea
	case domain.FieldTypeNumber:
		c.Control = ControlNumberInput
	case domain.FieldTypeDate:
		c.Control = ControlDatePicker
	case domain.FieldTypeCheckbox:
		c.Control = ControlToggle
		// 布尔值没有"缺失"一说，不参与required校验
		c.Required = false
		if currentValue == nil {
			c.Value = false
		}
	case domain.FieldTypeSelect:
		c.Control = ControlSelect
		c.Options = def.Options
	case domain.FieldTypeMultiselect:
		c.Control = ControlMultiSelect
		c.Options = def.Options
	default:
		// text/email/phone/url 均为单行输入
		c.Control = ControlTextInput
	}
	return c
}

// BuildFormSchema 按字段定义顺序生成表单描述
// visibility=staff_only 的字段对非staff角色整体隐藏（角色来自本地上下文，不做二次校验）
func BuildFormSchema(defs []*domain.FieldDef, values map[string]any, readOnly bool, role domain.Role) []FormControl {
	controls := make([]FormControl, 0, len(defs))
	for _, def := range defs {
		if def.Visibility == string(domain.FieldVisibilityStaffOnly) && !role.IsStaff() {
			continue
		}
		var value any
		if values != nil {
			value = values[def.Key]
		}
		controls = append(controls, RenderControl(def, value, readOnly))
	}
	return controls
}

// CoerceFieldValue 按字段声明的类型校验并规范化提交值
// 返回写入people.fields的规范值；nil表示该字段应被省略
func CoerceFieldValue(def *domain.FieldDef, raw any) (any, error) {
	missing := raw == nil
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		missing = true
	}

	if missing {
		if domain.FieldType(def.Type) == domain.FieldTypeCheckbox {
			return false, nil
		}
		if def.Required {
			return nil, fmt.Errorf("field %q is required", def.Key)
		}
		return nil, nil
	}

	switch domain.FieldType(def.Type) {
	case domain.FieldTypeText, domain.FieldTypeTextarea, domain.FieldTypePhone:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string", def.Key)
		}
		return s, nil

	case domain.FieldTypeEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string", def.Key)
		}
		if !strings.Contains(s, "@") {
			return nil, fmt.Errorf("field %q is not a valid email: %q", def.Key, s)
		}
		return s, nil

	case domain.FieldTypeURL:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string", def.Key)
		}
		if !strings.Contains(s, "://") {
			return nil, fmt.Errorf("field %q is not a valid url: %q", def.Key, s)
		}
		return s, nil

	case domain.FieldTypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("field %q is not a number: %q", def.Key, v)
			}
			return f, nil
		}
		return nil, fmt.Errorf("field %q expects a number", def.Key)

	case domain.FieldTypeDate:
		// 存储值是ISO-8601字符串；编辑端的日期对象在提交时转回字符串
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects an ISO-8601 date string", def.Key)
		}
		s = strings.TrimSpace(s)
		if t, err := time.Parse(dateLayout, s); err == nil {
			return t.Format(dateLayout), nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format(dateLayout), nil
		}
		return nil, fmt.Errorf("field %q is not a valid date: %q", def.Key, s)

	case domain.FieldTypeCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q expects a boolean", def.Key)
		}
		return b, nil

	case domain.FieldTypeSelect:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string", def.Key)
		}
		if !def.HasOption(s) {
			return nil, fmt.Errorf("field %q has no option %q", def.Key, s)
		}
		return s, nil

	case domain.FieldTypeMultiselect:
		var values []string
		switch v := raw.(type) {
		case []string:
			values = v
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("field %q expects a list of strings", def.Key)
				}
				values = append(values, s)
			}
		default:
			return nil, fmt.Errorf("field %q expects a list of strings", def.Key)
		}
		for _, s := range values {
			if !def.HasOption(s) {
				return nil, fmt.Errorf("field %q has no option %q", def.Key, s)
			}
		}
		return values, nil
	}

	return nil, fmt.Errorf("unsupported field type: %s", def.Type)
}
