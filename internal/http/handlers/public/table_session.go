package public

import (
	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

// TableSessionResponse 当前桌台会话
type TableSessionResponse struct {
	SessionID   string `json:"sessionId"`
	TableID     string `json:"tableId"`
	TableNumber string `json:"tableNumber"`
	CreatedAt   int64  `json:"createdAt"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// GetTableSession 返回当前请求的桌台会话
func (h *Handler) GetTableSession(c *gin.Context) {
	session, ok := handlershared.GetTableSession(c)
	if !ok {
		handlershared.RespondSessionError(c, service.ErrSessionRequired)
		return
	}
	response.Success(c, TableSessionResponse{
		SessionID:   session.SessionID,
		TableID:     session.TableID,
		TableNumber: session.TableNumber,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.ExpiresAt,
	})
}

// LogoutTableSession 注销桌台会话并清除 Cookie
func (h *Handler) LogoutTableSession(c *gin.Context) {
	session, ok := handlershared.GetTableSession(c)
	if !ok {
		handlershared.RespondSessionError(c, service.ErrSessionRequired)
		return
	}
	if err := h.TableSessionService.InvalidateActiveSession(c.Request.Context(), session.SessionID); err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	h.setSessionCookie(c, "", -1)
	response.Success(c, gin.H{"sessionId": session.SessionID})
}
