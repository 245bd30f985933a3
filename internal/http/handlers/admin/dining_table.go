package admin

import (
	"errors"
	"strconv"

	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/repository"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

// DiningTableCreateRequest 新建餐桌请求
type DiningTableCreateRequest struct {
	StaticID  string `json:"static_id" binding:"required"`
	Name      string `json:"name"`
	IsActive  *bool  `json:"is_active"`
	SortOrder int    `json:"sort_order"`
}

// GetAdminDiningTables 获取餐桌列表
func (h *Handler) GetAdminDiningTables(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		isActive = &parsed
	}

	tables, total, err := h.DiningTableService.List(repository.DiningTableListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		IsActive: isActive,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	response.SuccessWithPage(c, tables, response.NewPagination(page, pageSize, total))
}

// CreateAdminDiningTable 新建餐桌
func (h *Handler) CreateAdminDiningTable(c *gin.Context) {
	var req DiningTableCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	table, err := h.DiningTableService.Create(service.CreateDiningTableInput{
		StaticID:  req.StaticID,
		Name:      req.Name,
		IsActive:  req.IsActive,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTableStaticIDRequired):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		case errors.Is(err, service.ErrTableStaticIDExists):
			respondError(c, response.CodeConflict, "error.table_static_id_exists", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal_error", err)
		}
		return
	}
	requestLog(c).Infow("admin_dining_table_created", "static_id", table.StaticID, "staff_id", c.GetString(handlershared.ContextKeyStaffID))
	response.Success(c, table)
}

// GetAdminTableSessionLogs 查看某张桌最近的扫码审计日志
func (h *Handler) GetAdminTableSessionLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.SessionAuditService.RecentLogs(c.Param("tableId"), limit)
	if err != nil {
		if errors.Is(err, service.ErrTableStaticIDRequired) {
			respondError(c, response.CodeBadRequest, "error.cart_table_required", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, logs)
}
