package repository

import (
	"context"

	"parish-data/internal/domain"
)

// PeopleRepository 人员Repository接口
// 使用强类型领域模型，不使用map[string]any
// 设计原则：Repository层只负责数据访问，过滤/组合逻辑在Service层
type PeopleRepository interface {
	// ========== 查询（单个）==========
	// GetPerson 根据person_id获取人员
	GetPerson(ctx context.Context, personID string) (*domain.Person, error)

	// ========== 查询（列表）==========
	// ListPeople 返回全部人员（稳定排序：last_name, first_name, person_id）
	// 注意：组合过滤（搜索/状态/标签/自定义字段）由Service层的纯函数完成，
	// 与前端行为一致（整表拉取后内存过滤）
	ListPeople(ctx context.Context) ([]*domain.Person, error)

	// ListPeopleByHousehold 按household_id查询成员（反向引用）
	ListPeopleByHousehold(ctx context.Context, householdID string) ([]*domain.Person, error)

	// ========== 创建/更新 ==========
	// CreatePerson 创建人员，返回person_id
	CreatePerson(ctx context.Context, p *domain.Person) (string, error)

	// UpdatePerson 整体更新人员（表单提交语义）
	UpdatePerson(ctx context.Context, personID string, p *domain.Person) error

	// SetHouseholdID 仅更新household_id（成员增删时由Service同步调用）
	// householdID为空串表示清除引用
	SetHouseholdID(ctx context.Context, personID, householdID string) error

	// 注意：没有DeletePerson——人员记录不做硬删除，只有状态变更
}
