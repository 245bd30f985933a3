package shared

import (
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextKeyTableSession = "table_session"
	ContextKeyStaff        = "staff"
	ContextKeyStaffID      = "staff_id"
	ContextKeyStaffRole    = "staff_role"
)

// SetTableSession 写入已校验的桌台会话
func SetTableSession(c *gin.Context, session *service.ActiveSession) {
	c.Set(ContextKeyTableSession, session)
}

// GetTableSession 读取桌台会话，员工请求返回 false
func GetTableSession(c *gin.Context) (*service.ActiveSession, bool) {
	value, exists := c.Get(ContextKeyTableSession)
	if !exists {
		return nil, false
	}
	session, ok := value.(*service.ActiveSession)
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}

// SetStaff 标记请求为员工流量
func SetStaff(c *gin.Context, claims *service.StaffClaims) {
	c.Set(ContextKeyStaff, true)
	if claims != nil {
		c.Set(ContextKeyStaffID, claims.Subject)
		c.Set(ContextKeyStaffRole, claims.Role)
	}
}

// IsStaff 请求是否携带有效的员工令牌
func IsStaff(c *gin.Context) bool {
	return c.GetBool(ContextKeyStaff)
}

// GetStaffRole 读取员工角色
func GetStaffRole(c *gin.Context) string {
	return c.GetString(ContextKeyStaffRole)
}
