package public

import (
	"net/http"
	"strings"

	"github.com/dujiao-next/tableside/internal/constants"
	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"

	"github.com/gin-gonic/gin"
)

// IssueQRToken 为桌贴签发一次性令牌并返回深链
func (h *Handler) IssueQRToken(c *gin.Context) {
	result, err := h.TableSessionService.IssueToken(c.Request.Context(), c.Param("tableStaticId"), c.ClientIP(), requestUserAgent(c))
	if err != nil {
		handlershared.RespondSessionError(c, err)
		return
	}
	response.Success(c, result)
}

// RedirectQRToken 签发令牌后 302 跳转到深链（桌贴二维码直接指向该地址）
func (h *Handler) RedirectQRToken(c *gin.Context) {
	result, err := h.TableSessionService.IssueToken(c.Request.Context(), c.Param("tableStaticId"), c.ClientIP(), requestUserAgent(c))
	if err != nil {
		handlershared.RespondSessionError(c, err)
		return
	}
	c.Redirect(http.StatusFound, result.DeepLink)
}

// ConsumeQRToken 消费一次性令牌，建立桌台会话并写入 Cookie
func (h *Handler) ConsumeQRToken(c *gin.Context) {
	result, err := h.TableSessionService.ConsumeToken(c.Request.Context(), strings.TrimSpace(c.Param("token")), c.ClientIP(), requestUserAgent(c))
	if err != nil {
		handlershared.RespondSessionError(c, err)
		return
	}
	h.setSessionCookie(c, result.SessionID, result.SessionTTLSeconds)
	response.Success(c, result)
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.TableSessionCookie, value, maxAge, "/", "", h.Config.Server.IsRelease(), true)
}
