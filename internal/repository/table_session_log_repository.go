package repository

import (
	"time"

	"github.com/dujiao-next/tableside/internal/models"

	"gorm.io/gorm"
)

// TableSessionLogRepository 扫码入座审计日志数据访问接口
type TableSessionLogRepository interface {
	Create(log *models.TableSessionLog) error
	CountGroupedSince(since time.Time) ([]SessionLogStat, error)
	ListByTable(tableID string, limit int) ([]models.TableSessionLog, error)
}

// SessionLogStat 按动作与结果聚合的计数
type SessionLogStat struct {
	Action string `json:"action"`
	Result string `json:"result"`
	Count  int64  `json:"count"`
}

// GormTableSessionLogRepository GORM 实现
type GormTableSessionLogRepository struct {
	db *gorm.DB
}

// NewTableSessionLogRepository 创建审计日志仓库
func NewTableSessionLogRepository(db *gorm.DB) *GormTableSessionLogRepository {
	return &GormTableSessionLogRepository{db: db}
}

// Create 追加审计日志
func (r *GormTableSessionLogRepository) Create(log *models.TableSessionLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// CountGroupedSince 统计 since 之后按 (action, result) 分组的次数
func (r *GormTableSessionLogRepository) CountGroupedSince(since time.Time) ([]SessionLogStat, error) {
	var stats []SessionLogStat
	err := r.db.Model(&models.TableSessionLog{}).
		Select("action, result, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("action, result").
		Order("action asc, result asc").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListByTable 查询某张桌最近的审计日志
func (r *GormTableSessionLogRepository) ListByTable(tableID string, limit int) ([]models.TableSessionLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.TableSessionLog
	if err := r.db.Where("table_id = ?", tableID).Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
