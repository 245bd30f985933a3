package admin

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/tableside/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetQRStats 扫码签发/消费统计，hours 默认 24，最大 720
func (h *Handler) GetQRStats(c *gin.Context) {
	hours := 0
	if raw := strings.TrimSpace(c.Query("hours")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, response.CodeBadRequest, "error.session_stats_hours_invalid", nil)
			return
		}
		hours = parsed
	}
	stats, err := h.SessionAuditService.Stats(hours)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, stats)
}
