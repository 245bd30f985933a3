package models

import "time"

// DiningTable 餐桌
// StaticID 为桌贴二维码上印刷的短编号，对外只暴露该编号。
type DiningTable struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                   // 主键
	StaticID  string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"static_id"` // 桌贴编号
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`                 // 展示名称
	IsActive  bool      `gorm:"index;not null" json:"is_active"`                        // 是否启用
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`                   // 排序
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                             // 更新时间
}

// TableName 指定表名
func (DiningTable) TableName() string {
	return "dining_tables"
}
