package public

import (
	"strings"

	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func requestUserAgent(c *gin.Context) string {
	return strings.TrimSpace(c.Request.UserAgent())
}

// resolveCartTable 解析路径中的桌号并校验调用方有权访问
// 员工请求直接使用路径桌号；桌台会话只能访问自己的桌
func resolveCartTable(c *gin.Context) (string, bool) {
	tableID := strings.TrimSpace(c.Param("tableId"))
	if tableID == "" {
		respondError(c, response.CodeBadRequest, "error.cart_table_required", nil)
		return "", false
	}
	if handlershared.IsStaff(c) {
		return tableID, true
	}
	session, ok := handlershared.GetTableSession(c)
	if !ok {
		handlershared.RespondSessionError(c, service.ErrSessionRequired)
		return "", false
	}
	if session.TableID != tableID {
		handlershared.RequestLog(c).Warnw("table_session_mismatch",
			"session_table_id", session.TableID,
			"path_table_id", tableID,
		)
		handlershared.RespondSessionError(c, service.ErrTableSessionMismatch)
		return "", false
	}
	return tableID, true
}
