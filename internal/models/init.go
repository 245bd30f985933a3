package models

import (
	"errors"
	"strings"

	"github.com/dujiao-next/tableside/internal/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableSeed 初始化餐桌参数
type TableSeed struct {
	StaticID string
	Name     string
}

// InitDefaultTables 按桌贴编号补齐餐桌，已存在的不覆盖
func InitDefaultTables(db *gorm.DB, seeds []TableSeed) (int, error) {
	if db == nil {
		return 0, errors.New("db is nil")
	}
	created := 0
	for i, seed := range seeds {
		staticID := strings.TrimSpace(seed.StaticID)
		if staticID == "" {
			continue
		}
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			name = staticID
		}
		table := DiningTable{
			StaticID:  staticID,
			Name:      name,
			IsActive:  true,
			SortOrder: i,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "static_id"}},
			DoNothing: true,
		}).Create(&table)
		if result.Error != nil {
			return created, result.Error
		}
		created += int(result.RowsAffected)
	}
	if created > 0 {
		logger.Infow("dining_tables_seeded", "created", created, "total", len(seeds))
	}
	return created, nil
}
