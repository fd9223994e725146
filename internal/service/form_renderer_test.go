package service

import (
	"testing"

	"parish-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderControl_TypeMapping(t *testing.T) {
	cases := map[string]ControlType{
		"text":        ControlTextInput,
		"email":       ControlTextInput,
		"phone":       ControlTextInput,
		"url":         ControlTextInput,
		"textarea":    ControlTextarea,
		"number":      ControlNumberInput,
		"date":        ControlDatePicker,
		"checkbox":    ControlToggle,
		"select":      ControlSelect,
		"multiselect": ControlMultiSelect,
	}
	for fieldType, want := range cases {
		c := RenderControl(&domain.FieldDef{Key: "k", Type: fieldType}, nil, false)
		assert.Equal(t, want, c.Control, "type=%s", fieldType)
	}
}

func TestRenderControl_CheckboxNeverRequired(t *testing.T) {
	def := &domain.FieldDef{Key: "volunteer", Type: "checkbox", Required: true}

	c := RenderControl(def, nil, false)
	assert.False(t, c.Required)
	assert.Equal(t, false, c.Value) // nil → false

	c = RenderControl(def, true, false)
	assert.Equal(t, true, c.Value)
}

func TestRenderControl_SelectCarriesOptions(t *testing.T) {
	def := &domain.FieldDef{
		Key:     "campus",
		Type:    "select",
		Options: []domain.FieldOption{{Value: "north", Label: "North"}, {Value: "south", Label: "South"}},
	}
	c := RenderControl(def, "north", true)
	assert.Equal(t, ControlSelect, c.Control)
	assert.Len(t, c.Options, 2)
	assert.True(t, c.ReadOnly)
	assert.Equal(t, "north", c.Value)
}

func TestBuildFormSchema_HidesStaffOnlyForMembers(t *testing.T) {
	defs := []*domain.FieldDef{
		{Key: "birthday", Type: "date", Visibility: "public"},
		{Key: "pastoral_notes", Type: "textarea", Visibility: "staff_only"},
	}
	values := map[string]any{"birthday": "1990-05-01", "pastoral_notes": "sensitive"}

	controls := BuildFormSchema(defs, values, false, domain.RoleMember)
	require.Len(t, controls, 1)
	assert.Equal(t, "birthday", controls[0].Key)

	controls = BuildFormSchema(defs, values, false, domain.RoleAdmin)
	require.Len(t, controls, 2)
}

func TestCoerceFieldValue_Date(t *testing.T) {
	def := &domain.FieldDef{Key: "baptism_date", Type: "date"}

	v, err := CoerceFieldValue(def, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", v)

	// RFC3339时间戳规范化为纯日期
	v, err = CoerceFieldValue(def, "2024-03-10T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", v)

	_, err = CoerceFieldValue(def, "10/03/2024")
	require.Error(t, err)
}

func TestCoerceFieldValue_Number(t *testing.T) {
	def := &domain.FieldDef{Key: "children", Type: "number"}

	v, err := CoerceFieldValue(def, float64(3))
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)

	// 导入路径里数字以字符串出现
	v, err = CoerceFieldValue(def, "2")
	require.NoError(t, err)
	assert.Equal(t, float64(2), v)

	_, err = CoerceFieldValue(def, "two")
	require.Error(t, err)
}

func TestCoerceFieldValue_SelectMembership(t *testing.T) {
	def := &domain.FieldDef{
		Key:     "campus",
		Type:    "select",
		Options: []domain.FieldOption{{Value: "north", Label: "North"}},
	}

	v, err := CoerceFieldValue(def, "north")
	require.NoError(t, err)
	assert.Equal(t, "north", v)

	_, err = CoerceFieldValue(def, "east")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no option")
}

func TestCoerceFieldValue_RequiredAndMissing(t *testing.T) {
	required := &domain.FieldDef{Key: "emergency_contact", Type: "text", Required: true}
	_, err := CoerceFieldValue(required, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	optional := &domain.FieldDef{Key: "website", Type: "url"}
	v, err := CoerceFieldValue(optional, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	// checkbox缺省为false，不报required
	checkbox := &domain.FieldDef{Key: "volunteer", Type: "checkbox", Required: true}
	v, err = CoerceFieldValue(checkbox, nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestCoerceFieldValue_Multiselect(t *testing.T) {
	def := &domain.FieldDef{
		Key:     "ministries",
		Type:    "multiselect",
		Options: []domain.FieldOption{{Value: "choir", Label: "Choir"}, {Value: "ushers", Label: "Ushers"}},
	}

	// JSON解码后是[]any
	v, err := CoerceFieldValue(def, []any{"choir", "ushers"})
	require.NoError(t, err)
	assert.Equal(t, []string{"choir", "ushers"}, v)

	_, err = CoerceFieldValue(def, []any{"choir", "band"})
	require.Error(t, err)
}
