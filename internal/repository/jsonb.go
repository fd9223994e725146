package repository

import (
	"encoding/json"

	"parish-data/internal/domain"
)

// marshalJSONB 序列化为JSONB参数；nil/空值写入合法的空JSON而不是NULL，
// 避免读取端区分NULL和空集合
func marshalStringSlice(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}
	return json.Marshal(v)
}

func marshalFieldValues(v map[string]any) ([]byte, error) {
	if v == nil {
		v = map[string]any{}
	}
	return json.Marshal(v)
}

func marshalOptions(v []domain.FieldOption) ([]byte, error) {
	if v == nil {
		v = []domain.FieldOption{}
	}
	return json.Marshal(v)
}

func unmarshalStringSlice(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return []string{}
	}
	return out
}

func unmarshalFieldValues(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func unmarshalOptions(raw []byte) []domain.FieldOption {
	if len(raw) == 0 {
		return nil
	}
	var out []domain.FieldOption
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
