package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/tableside/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SharedCartRepository 共享购物车数据访问接口
type SharedCartRepository interface {
	GetByTable(tableID string) (*models.SharedCart, error)
	GetByTableForUpdate(tableID string) (*models.SharedCart, error)
	CreateIfAbsent(cart *models.SharedCart) error
	ListItems(cartID string) ([]models.SharedCartItem, error)
	UpsertItem(item *models.SharedCartItem) error
	SetItemQuantity(cartID, itemID string, quantity int) (bool, error)
	DeleteItem(cartID, itemID string) error
	DeleteAllItems(cartID string) error
	UpdateTotals(cartID string, totalItems int, totalAmount models.Money, updatedAt time.Time) error
	Transaction(fn func(repo SharedCartRepository) error) error
}

// GormSharedCartRepository GORM 实现
type GormSharedCartRepository struct {
	db *gorm.DB
}

// NewSharedCartRepository 创建共享购物车仓库
func NewSharedCartRepository(db *gorm.DB) *GormSharedCartRepository {
	return &GormSharedCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSharedCartRepository) WithTx(tx *gorm.DB) *GormSharedCartRepository {
	if tx == nil {
		return r
	}
	return &GormSharedCartRepository{db: tx}
}

// Transaction 在事务内执行
func (r *GormSharedCartRepository) Transaction(fn func(repo SharedCartRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// GetByTable 根据桌贴编号获取购物车及明细，不存在时返回 nil
func (r *GormSharedCartRepository) GetByTable(tableID string) (*models.SharedCart, error) {
	var cart models.SharedCart
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc, id asc")
	}).Where("table_id = ?", tableID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// GetByTableForUpdate 加行锁获取购物车（不含明细），需在事务内调用
// 同一购物车的变更因此串行执行，合计始终基于完整明细计算
func (r *GormSharedCartRepository) GetByTableForUpdate(tableID string) (*models.SharedCart, error) {
	var cart models.SharedCart
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("table_id = ?", tableID).
		First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// CreateIfAbsent 创建空购物车，同桌已存在时忽略
func (r *GormSharedCartRepository) CreateIfAbsent(cart *models.SharedCart) error {
	if cart == nil {
		return nil
	}
	return r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_id"}},
		DoNothing: true,
	}).Create(cart).Error
}

// ListItems 获取购物车明细
func (r *GormSharedCartRepository) ListItems(cartID string) ([]models.SharedCartItem, error) {
	var items []models.SharedCartItem
	if err := r.db.Where("cart_id = ?", cartID).Order("created_at asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertItem 原子写入明细，同一标识已存在时在数据库侧累加数量
func (r *GormSharedCartRepository) UpsertItem(item *models.SharedCartItem) error {
	if item == nil {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("shared_cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(item).Error
}

// SetItemQuantity 设置明细数量（绝对值），返回是否命中
func (r *GormSharedCartRepository) SetItemQuantity(cartID, itemID string, quantity int) (bool, error) {
	result := r.db.Model(&models.SharedCartItem{}).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteItem 删除明细，不存在时也视为成功
func (r *GormSharedCartRepository) DeleteItem(cartID, itemID string) error {
	return r.db.Where("cart_id = ? AND id = ?", cartID, itemID).Delete(&models.SharedCartItem{}).Error
}

// DeleteAllItems 清空购物车明细
func (r *GormSharedCartRepository) DeleteAllItems(cartID string) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&models.SharedCartItem{}).Error
}

// UpdateTotals 写入重新计算后的合计
func (r *GormSharedCartRepository) UpdateTotals(cartID string, totalItems int, totalAmount models.Money, updatedAt time.Time) error {
	return r.db.Model(&models.SharedCart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"total_items":  totalItems,
			"total_amount": totalAmount,
			"updated_at":   updatedAt,
		}).Error
}
