package domain

// Role 操作角色（由外部认证上下文提供，本服务不做二次校验）
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// IsStaff admin/owner 视为 staff，可见 staff_only 字段与备注
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleOwner
}

// CanMutate 是否允许调用变更类接口
func (r Role) CanMutate() bool {
	return r == RoleAdmin || r == RoleOwner
}
