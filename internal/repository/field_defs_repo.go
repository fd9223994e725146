package repository

import (
	"context"

	"parish-data/internal/domain"
)

// FieldDefsRepository 自定义字段定义Repository接口
type FieldDefsRepository interface {
	// GetFieldDef 根据field_id获取字段定义
	GetFieldDef(ctx context.Context, fieldID string) (*domain.FieldDef, error)

	// GetFieldDefByKey 根据field_key获取字段定义（含archived）
	GetFieldDefByKey(ctx context.Context, key string) (*domain.FieldDef, error)

	// ListFieldDefs 查询字段定义（order_index升序）
	// includeArchived=false 时只返回active字段
	ListFieldDefs(ctx context.Context, includeArchived bool) ([]*domain.FieldDef, error)

	// CreateFieldDef 创建字段定义，返回field_id
	// order_index 由Repository分配：COALESCE(MAX(order_index), 0) + 1
	CreateFieldDef(ctx context.Context, def *domain.FieldDef) (string, error)

	// UpdateFieldDef 更新label/options/required/visibility（key/type创建后不可变）
	UpdateFieldDef(ctx context.Context, fieldID string, def *domain.FieldDef) error

	// SetArchived 软删除/恢复
	// 注意：不迁移people.fields中已有的数据，归档只影响渲染
	SetArchived(ctx context.Context, fieldID string, archived bool) error

	// ReorderFieldDefs 按orderedIDs的顺序重写order_index为1..N
	// 单个事务内完成——N条独立更新没有事务保证，部分失败会留下新旧混合的顺序
	ReorderFieldDefs(ctx context.Context, orderedIDs []string) error
}
