package admin

import (
	"strings"

	"github.com/dujiao-next/tableside/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetRealtimeRoom 查看桌台实时连接情况（排查用）
func (h *Handler) GetRealtimeRoom(c *gin.Context) {
	tableID := strings.TrimSpace(c.Param("tableId"))
	if tableID == "" {
		respondError(c, response.CodeBadRequest, "error.cart_table_required", nil)
		return
	}
	response.Success(c, h.RealtimeHub.Room(tableID))
}
