package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"
	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/metrics"
	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartPublisher 购物车变更通知发布
type CartPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// CartItemView 购物车明细（用于响应与推送）
type CartItemView struct {
	ID              string             `json:"id"`
	ProductID       string             `json:"productId"`
	Quantity        int                `json:"quantity"`
	UnitPrice       models.Money       `json:"unitPrice"`
	BaseUnitPrice   models.Money       `json:"baseUnitPrice"`
	OptionsSubtotal models.Money       `json:"optionsSubtotal"`
	Options         models.CartOptions `json:"options"`
}

// CartView 共享购物车快照
type CartView struct {
	ID          string         `json:"id"`
	TableID     string         `json:"tableId"`
	Items       []CartItemView `json:"items"`
	TotalItems  int            `json:"totalItems"`
	TotalAmount models.Money   `json:"totalAmount"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CartUpdateMessage 发布到 cart:<tableId> 的消息体
type CartUpdateMessage struct {
	TableID string    `json:"tableId"`
	Cart    *CartView `json:"cart"`
}

// AddCartItemInput 加购输入
type AddCartItemInput struct {
	ProductID       string
	Quantity        int
	UnitPrice       models.Money
	BaseUnitPrice   *models.Money
	OptionsSubtotal *models.Money
	Options         json.RawMessage
}

// SharedCartService 桌台共享购物车服务
type SharedCartService struct {
	repo      repository.SharedCartRepository
	publisher CartPublisher
	now       func() time.Time
}

// NewSharedCartService 创建共享购物车服务
func NewSharedCartService(repo repository.SharedCartRepository, publisher CartPublisher) *SharedCartService {
	return &SharedCartService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// GetOrCreateCart 获取桌台购物车，不存在时创建空购物车
func (s *SharedCartService) GetOrCreateCart(tableID string) (*CartView, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return nil, ErrCartTableRequired
	}
	cart, err := s.repo.GetByTable(tableID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return buildCartView(cart), nil
	}

	now := s.now()
	if err := s.repo.CreateIfAbsent(&models.SharedCart{
		ID:          uuid.NewString(),
		TableID:     tableID,
		TotalItems:  0,
		TotalAmount: models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return nil, err
	}
	// 并发创建时以先写入的一条为准
	cart, err = s.repo.GetByTable(tableID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrSharedCartMissing
	}
	logger.Infow("shared_cart_created", "table_id", tableID, "cart_id", cart.ID)
	return buildCartView(cart), nil
}

// AddItem 加购，同一商品+规格合并数量
func (s *SharedCartService) AddItem(ctx context.Context, tableID string, input AddCartItemInput) (*CartView, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" || !input.UnitPrice.GreaterThan(decimal.Zero) {
		return nil, ErrCartItemInvalid
	}
	if input.Quantity <= 0 {
		return nil, ErrCartQuantityInvalid
	}
	baseUnitPrice := input.UnitPrice
	if input.BaseUnitPrice != nil && input.BaseUnitPrice.GreaterThan(decimal.Zero) {
		baseUnitPrice = *input.BaseUnitPrice
	}
	optionsSubtotal := models.NewMoneyFromDecimal(decimal.Zero)
	if input.OptionsSubtotal != nil {
		optionsSubtotal = *input.OptionsSubtotal
	}
	options := NormalizeCartOptions(input.Options)
	itemID := BuildCartItemID(productID, options)

	return s.mutate(ctx, tableID, "add_item", func(repo repository.SharedCartRepository, cart *models.SharedCart, now time.Time) error {
		return repo.UpsertItem(&models.SharedCartItem{
			CartID:          cart.ID,
			ID:              itemID,
			ProductID:       productID,
			Quantity:        input.Quantity,
			UnitPrice:       input.UnitPrice,
			BaseUnitPrice:   baseUnitPrice,
			OptionsSubtotal: optionsSubtotal,
			Options:         options,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	})
}

// UpdateItemQuantity 设置明细数量（绝对值），小于等于 0 视为删除
func (s *SharedCartService) UpdateItemQuantity(ctx context.Context, tableID, itemID string, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, tableID, itemID)
	}
	return s.mutate(ctx, tableID, "update_quantity", func(repo repository.SharedCartRepository, cart *models.SharedCart, _ time.Time) error {
		hit, err := repo.SetItemQuantity(cart.ID, itemID, quantity)
		if err != nil {
			return err
		}
		if !hit {
			return ErrCartItemNotFound
		}
		return nil
	})
}

// RemoveItem 删除明细，明细不存在也视为成功
func (s *SharedCartService) RemoveItem(ctx context.Context, tableID, itemID string) (*CartView, error) {
	return s.mutate(ctx, tableID, "remove_item", func(repo repository.SharedCartRepository, cart *models.SharedCart, _ time.Time) error {
		return repo.DeleteItem(cart.ID, itemID)
	})
}

// ClearCart 清空购物车，保留购物车本身
func (s *SharedCartService) ClearCart(ctx context.Context, tableID string) (*CartView, error) {
	return s.mutate(ctx, tableID, "clear", func(repo repository.SharedCartRepository, cart *models.SharedCart, _ time.Time) error {
		return repo.DeleteAllItems(cart.ID)
	})
}

type cartMutation func(repo repository.SharedCartRepository, cart *models.SharedCart, now time.Time) error

// mutate 在事务内执行变更并按明细重新计算合计，提交后发布快照
func (s *SharedCartService) mutate(ctx context.Context, tableID, action string, fn cartMutation) (*CartView, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return nil, ErrCartTableRequired
	}

	var updated *models.SharedCart
	err := s.repo.Transaction(func(repo repository.SharedCartRepository) error {
		cart, err := repo.GetByTableForUpdate(tableID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrSharedCartMissing
		}
		now := s.now()
		if err := fn(repo, cart, now); err != nil {
			return err
		}
		items, err := repo.ListItems(cart.ID)
		if err != nil {
			return err
		}
		totalItems, totalAmount := computeCartTotals(items)
		if err := repo.UpdateTotals(cart.ID, totalItems, totalAmount, now); err != nil {
			return err
		}
		cart.Items = items
		cart.TotalItems = totalItems
		cart.TotalAmount = totalAmount
		cart.UpdatedAt = now
		updated = cart
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSharedCartMissing) {
			logger.Errorw("shared_cart_missing", "table_id", tableID, "action", action)
		}
		return nil, err
	}

	metrics.ObserveCartMutation(action)
	view := buildCartView(updated)
	logger.Debugw("shared_cart_mutated",
		"table_id", tableID,
		"action", action,
		"total_items", view.TotalItems,
		"total_amount", view.TotalAmount.String(),
	)
	s.publish(ctx, view)
	return view, nil
}

// publish 推送失败只记录日志，购物车写入以数据库为准
func (s *SharedCartService) publish(ctx context.Context, view *CartView) {
	if s.publisher == nil || view == nil {
		return
	}
	payload, err := json.Marshal(CartUpdateMessage{TableID: view.TableID, Cart: view})
	if err != nil {
		logger.Warnw("shared_cart_publish_encode_failed", "table_id", view.TableID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, constants.ChannelPrefixCart+view.TableID, payload); err != nil {
		logger.Warnw("shared_cart_publish_failed", "table_id", view.TableID, "error", err)
	}
}

func computeCartTotals(items []models.SharedCartItem) (int, models.Money) {
	totalItems := 0
	totalAmount := models.NewMoneyFromDecimal(decimal.Zero)
	for _, item := range items {
		totalItems += item.Quantity
		totalAmount = totalAmount.Add(item.UnitPrice.Mul(item.Quantity))
	}
	return totalItems, totalAmount
}

func buildCartView(cart *models.SharedCart) *CartView {
	items := make([]CartItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		options := item.Options
		if options == nil {
			options = models.CartOptions{}
		}
		items = append(items, CartItemView{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			BaseUnitPrice:   item.BaseUnitPrice,
			OptionsSubtotal: item.OptionsSubtotal,
			Options:         options,
		})
	}
	return &CartView{
		ID:          cart.ID,
		TableID:     cart.TableID,
		Items:       items,
		TotalItems:  cart.TotalItems,
		TotalAmount: cart.TotalAmount,
		UpdatedAt:   cart.UpdatedAt,
	}
}
