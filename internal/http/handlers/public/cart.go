package public

import (
	"encoding/json"
	"strings"

	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/service"

	"github.com/gin-gonic/gin"
)

// SharedCartItemRequest 加购请求
type SharedCartItemRequest struct {
	ProductID       string          `json:"productId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       *models.Money   `json:"unitPrice"`
	BaseUnitPrice   *models.Money   `json:"baseUnitPrice"`
	OptionsSubtotal *models.Money   `json:"optionsSubtotal"`
	Options         json.RawMessage `json:"options"`
}

// SharedCartQuantityRequest 修改数量请求
type SharedCartQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetSharedCart 获取桌台共享购物车，不存在时创建
func (h *Handler) GetSharedCart(c *gin.Context) {
	tableID, ok := resolveCartTable(c)
	if !ok {
		return
	}
	cart, err := h.SharedCartService.GetOrCreateCart(tableID)
	if err != nil {
		respondSharedCartError(c, err)
		return
	}
	response.Success(c, cart)
}

// ensureSharedCart 写操作前确保购物车存在，首次写入时创建
func (h *Handler) ensureSharedCart(c *gin.Context, tableID string) bool {
	if _, err := h.SharedCartService.GetOrCreateCart(tableID); err != nil {
		respondSharedCartError(c, err)
		return false
	}
	return true
}

// AddSharedCartItem 加购商品
func (h *Handler) AddSharedCartItem(c *gin.Context) {
	tableID, ok := resolveCartTable(c)
	if !ok {
		return
	}
	var req SharedCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" || req.Quantity <= 0 || req.UnitPrice == nil {
		respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
		return
	}

	if !h.ensureSharedCart(c, tableID) {
		return
	}
	cart, err := h.SharedCartService.AddItem(c.Request.Context(), tableID, service.AddCartItemInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		UnitPrice:       *req.UnitPrice,
		BaseUnitPrice:   req.BaseUnitPrice,
		OptionsSubtotal: req.OptionsSubtotal,
		Options:         req.Options,
	})
	if err != nil {
		respondSharedCartError(c, err)
		return
	}
	response.Success(c, cart)
}

// UpdateSharedCartItem 设置明细数量，0 表示删除
func (h *Handler) UpdateSharedCartItem(c *gin.Context) {
	tableID, ok := resolveCartTable(c)
	if !ok {
		return
	}
	var req SharedCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil || *req.Quantity < 0 {
		respondError(c, response.CodeBadRequest, "error.cart_quantity_invalid", nil)
		return
	}
	if !h.ensureSharedCart(c, tableID) {
		return
	}
	cart, err := h.SharedCartService.UpdateItemQuantity(c.Request.Context(), tableID, c.Param("itemId"), *req.Quantity)
	if err != nil {
		respondSharedCartError(c, err)
		return
	}
	response.Success(c, cart)
}

// RemoveSharedCartItem 删除明细
func (h *Handler) RemoveSharedCartItem(c *gin.Context) {
	tableID, ok := resolveCartTable(c)
	if !ok {
		return
	}
	if !h.ensureSharedCart(c, tableID) {
		return
	}
	cart, err := h.SharedCartService.RemoveItem(c.Request.Context(), tableID, c.Param("itemId"))
	if err != nil {
		respondSharedCartError(c, err)
		return
	}
	response.Success(c, cart)
}

// ClearSharedCart 清空购物车
func (h *Handler) ClearSharedCart(c *gin.Context) {
	tableID, ok := resolveCartTable(c)
	if !ok {
		return
	}
	if !h.ensureSharedCart(c, tableID) {
		return
	}
	cart, err := h.SharedCartService.ClearCart(c.Request.Context(), tableID)
	if err != nil {
		respondSharedCartError(c, err)
		return
	}
	response.Success(c, cart)
}
