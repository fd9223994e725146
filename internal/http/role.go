package httpapi

import (
	"net/http"
	"strings"

	"parish-data/internal/domain"
)

// roleFromReq 从请求头取当前用户角色
// 鉴权由前置网关完成，这里信任 X-User-Role；缺省按最低权限viewer处理
func roleFromReq(r *http.Request) domain.Role {
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role")))
	if role == "" {
		return domain.RoleViewer
	}
	return domain.Role(role)
}

// requireStaff 写操作的角色门禁：仅admin/owner可变更数据
// 权限不足时已写出响应，调用方直接return
func requireStaff(w http.ResponseWriter, r *http.Request) (domain.Role, bool) {
	role := roleFromReq(r)
	if !role.CanMutate() {
		writeJSON(w, http.StatusForbidden, Fail("permission denied: staff role required"))
		return role, false
	}
	return role, true
}

// userIDFromReq 从请求头取当前用户ID（备注作者等场景使用）
func userIDFromReq(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}
