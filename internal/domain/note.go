package domain

import "time"

// NoteVisibility 备注可见性
type NoteVisibility string

const (
	NoteVisibilityOrg       NoteVisibility = "org"        // 所有角色可见
	NoteVisibilityStaffOnly NoteVisibility = "staff_only" // 仅 admin/owner 可见
)

// Note 人员备注（对应 notes 表）
type Note struct {
	NoteID       string    `db:"note_id"`        // UUID, PRIMARY KEY
	PersonID     string    `db:"person_id"`      // UUID, NOT NULL
	AuthorUserID string    `db:"author_user_id"` // VARCHAR(100), NOT NULL（外部认证系统的用户标识）
	Body         string    `db:"body"`           // TEXT, NOT NULL
	Visibility   string    `db:"visibility"`     // VARCHAR(20), NOT NULL (org/staff_only)
	CreatedAt    time.Time `db:"created_at"`
}
