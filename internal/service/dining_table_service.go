package service

import (
	"errors"
	"strings"

	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/repository"
)

// ErrTableStaticIDExists 桌贴编号已存在
var ErrTableStaticIDExists = errors.New("table static id already exists")

const maxStaticIDLength = 32

// CreateDiningTableInput 新建餐桌参数
type CreateDiningTableInput struct {
	StaticID  string
	Name      string
	IsActive  *bool
	SortOrder int
}

// DiningTableService 餐桌管理服务
type DiningTableService struct {
	repo     repository.DiningTableRepository
	registry *TableRegistry
}

// NewDiningTableService 创建餐桌管理服务
func NewDiningTableService(repo repository.DiningTableRepository, registry *TableRegistry) *DiningTableService {
	return &DiningTableService{repo: repo, registry: registry}
}

// List 分页查询餐桌
func (s *DiningTableService) List(filter repository.DiningTableListFilter) ([]models.DiningTable, int64, error) {
	tables, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	if tables == nil {
		tables = []models.DiningTable{}
	}
	return tables, total, nil
}

// Create 新建餐桌，成功后刷新桌台缓存
func (s *DiningTableService) Create(input CreateDiningTableInput) (*models.DiningTable, error) {
	staticID := strings.TrimSpace(input.StaticID)
	if staticID == "" || len(staticID) > maxStaticIDLength {
		return nil, ErrTableStaticIDRequired
	}
	existing, err := s.repo.GetByStaticID(staticID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTableStaticIDExists
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = staticID
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	table := &models.DiningTable{
		StaticID:  staticID,
		Name:      name,
		IsActive:  isActive,
		SortOrder: input.SortOrder,
	}
	if err := s.repo.Create(table); err != nil {
		return nil, err
	}
	if s.registry != nil {
		s.registry.Invalidate()
	}
	logger.Infow("dining_table_created", "static_id", staticID, "is_active", isActive)
	return table, nil
}
