package public

import (
	"context"
	"strings"
	"time"

	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/realtime"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

// ServeRealtime 升级为 websocket 连接，连接身份取自已校验的桌台会话或员工令牌
func (h *Handler) ServeRealtime(c *gin.Context) {
	identity := realtime.Identity{Staff: handlershared.IsStaff(c)}
	if !identity.Staff {
		session, ok := handlershared.GetTableSession(c)
		if !ok {
			handlershared.RespondSessionError(c, service.ErrSessionRequired)
			return
		}
		identity.TableID = session.TableID
		identity.SessionID = session.SessionID
		identity.ExpiresAt = time.UnixMilli(session.ExpiresAt)
		sessionID, ip, userAgent := session.SessionID, c.ClientIP(), strings.TrimSpace(c.Request.UserAgent())
		identity.Revalidate = func(ctx context.Context) error {
			_, err := h.TableSessionService.ValidateActiveSession(ctx, sessionID, ip, userAgent)
			return err
		}
	}
	if err := h.RealtimeGateway.Serve(c.Writer, c.Request, identity); err != nil {
		// Upgrade 失败时 gorilla 已写回 HTTP 错误，这里只记录
		handlershared.RequestLog(c).Warnw("realtime_upgrade_failed", "error", err)
	}
}
