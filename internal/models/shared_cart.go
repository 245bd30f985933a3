package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SharedCart 桌台共享购物车，每张桌一条
// TotalItems 与 TotalAmount 始终由当前明细重新计算得出。
type SharedCart struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`                 // 主键（UUID）
	TableID     string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"table_id"` // 桌贴编号
	TotalItems  int       `gorm:"not null;default:0" json:"total_items"`                 // 商品总件数
	TotalAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Items []SharedCartItem `gorm:"foreignKey:CartID;references:ID" json:"items"`
}

// TableName 指定表名
func (SharedCart) TableName() string {
	return "shared_carts"
}

// SharedCartItem 共享购物车明细
// ID 由商品与规格签名确定，同一购物车内相同商品+规格只会有一行。
type SharedCartItem struct {
	CartID          string      `gorm:"primaryKey;type:varchar(36)" json:"cart_id"`
	ID              string      `gorm:"primaryKey;type:varchar(512)" json:"id"`
	ProductID       string      `gorm:"type:varchar(64);index;not null" json:"product_id"`
	Quantity        int         `gorm:"not null" json:"quantity"`
	UnitPrice       Money       `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	BaseUnitPrice   Money       `gorm:"type:decimal(20,2);not null" json:"base_unit_price"`
	OptionsSubtotal Money       `gorm:"type:decimal(20,2);not null;default:0" json:"options_subtotal"`
	Options         CartOptions `gorm:"type:json" json:"options"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName 指定表名
func (SharedCartItem) TableName() string {
	return "shared_cart_items"
}

// CartOption 已选规格快照
type CartOption struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	AdditionalPrice Money  `json:"additionalPrice"`
}

// CartOptions 规格快照列表
type CartOptions []CartOption

// Value 实现 driver.Valuer 接口
func (o CartOptions) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (o *CartOptions) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*o = CartOptions{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported cart options column type")
	}
	if len(raw) == 0 {
		*o = CartOptions{}
		return nil
	}
	return json.Unmarshal(raw, o)
}
