package domain

import "time"

// Tag 标签领域模型（对应 tags_catalog 表）
// 使用计数是派生值（统计 people.tag_ids），不落库
type Tag struct {
	TagID     string    `db:"tag_id"`   // UUID, PRIMARY KEY
	TagName   string    `db:"tag_name"` // VARCHAR(100), NOT NULL, UNIQUE
	Color     string    `db:"color"`    // VARCHAR(7), hex 颜色（如 "#3B82F6"）
	CreatedAt time.Time `db:"created_at"`
}
