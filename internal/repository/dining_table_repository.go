package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/tableside/internal/models"

	"gorm.io/gorm"
)

// DiningTableRepository 餐桌数据访问接口
type DiningTableRepository interface {
	ListActive() ([]models.DiningTable, error)
	List(filter DiningTableListFilter) ([]models.DiningTable, int64, error)
	GetByStaticID(staticID string) (*models.DiningTable, error)
	Create(table *models.DiningTable) error
}

// GormDiningTableRepository GORM 实现
type GormDiningTableRepository struct {
	db *gorm.DB
}

// NewDiningTableRepository 创建餐桌仓库
func NewDiningTableRepository(db *gorm.DB) *GormDiningTableRepository {
	return &GormDiningTableRepository{db: db}
}

// ListActive 获取全部启用的餐桌
func (r *GormDiningTableRepository) ListActive() ([]models.DiningTable, error) {
	var tables []models.DiningTable
	if err := r.db.Where("is_active = ?", true).Order("sort_order asc, id asc").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// List 管理端分页查询餐桌
func (r *GormDiningTableRepository) List(filter DiningTableListFilter) ([]models.DiningTable, int64, error) {
	query := r.db.Model(&models.DiningTable{})
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	query = query.Scopes(likeSearch(filter.Search, "static_id", "name"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tables []models.DiningTable
	if err := query.Order("sort_order asc, id asc").Scopes(paginate(filter.Page, filter.PageSize)).Find(&tables).Error; err != nil {
		return nil, 0, err
	}
	return tables, total, nil
}

// GetByStaticID 根据桌贴编号获取餐桌（含未启用）
func (r *GormDiningTableRepository) GetByStaticID(staticID string) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.Where("static_id = ?", strings.TrimSpace(staticID)).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

// Create 创建餐桌
func (r *GormDiningTableRepository) Create(table *models.DiningTable) error {
	if table == nil {
		return nil
	}
	return r.db.Create(table).Error
}
