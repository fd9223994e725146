package domain

import (
	"strings"
	"time"
)

// FieldType 自定义字段类型
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeURL         FieldType = "url"
)

// IsValidFieldType 判断是否为支持的字段类型
func IsValidFieldType(s string) bool {
	switch FieldType(s) {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeDate,
		FieldTypeCheckbox, FieldTypeSelect, FieldTypeMultiselect,
		FieldTypeEmail, FieldTypePhone, FieldTypeURL:
		return true
	}
	return false
}

// RequiresOptions select/multiselect 必须带选项
func (t FieldType) RequiresOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiselect
}

// FieldVisibility 字段可见性
type FieldVisibility string

const (
	FieldVisibilityPublic    FieldVisibility = "public"
	FieldVisibilityStaffOnly FieldVisibility = "staff_only"
)

// FieldOption select/multiselect 选项
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDef 自定义字段定义（对应 field_defs 表）
// archived=true 为软删除：不再出现在表单/列表中，但 people.fields 中已有的数据保留
type FieldDef struct {
	FieldID    string        `db:"field_id"`    // UUID, PRIMARY KEY
	Key        string        `db:"field_key"`   // VARCHAR(100), NOT NULL, UNIQUE, slug 形式
	Label      string        `db:"label"`       // VARCHAR(200), NOT NULL
	Type       string        `db:"field_type"`  // VARCHAR(20), NOT NULL
	Options    []FieldOption `db:"options"`     // JSONB, select/multiselect 必填
	Required   bool          `db:"required"`    // BOOLEAN, NOT NULL, DEFAULT FALSE
	Visibility string        `db:"visibility"`  // VARCHAR(20), NOT NULL (public/staff_only)
	OrderIndex int           `db:"order_index"` // INT, NOT NULL, 展示/表单顺序（1..N，唯一）
	Archived   bool          `db:"archived"`    // BOOLEAN, NOT NULL, DEFAULT FALSE
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

// HasOption 判断 value 是否在选项中
func (d *FieldDef) HasOption(value string) bool {
	for _, opt := range d.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// SlugifyKey 由 label 派生字段 key：
// 小写，连续的非 [a-z0-9] 字符压缩为单个下划线，去掉首尾下划线
func SlugifyKey(label string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
