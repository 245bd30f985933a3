package service

import (
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/tableside/internal/logger"
	"github.com/dujiao-next/tableside/internal/repository"

	"golang.org/x/sync/singleflight"
)

const defaultTableCacheTTL = 5 * time.Minute

// TableSnapshot 签发时使用的餐桌快照
type TableSnapshot struct {
	ID       uint   `json:"id"`
	StaticID string `json:"staticId"`
	Name     string `json:"name"`
}

// TableRegistry 按桌贴编号查询启用中的餐桌，带进程内缓存
// 缓存过期或未命中时整体重新加载全部启用餐桌，并发加载合并为一次。
type TableRegistry struct {
	repo repository.DiningTableRepository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	tables   map[string]TableSnapshot
	loadedAt time.Time
	loads    singleflight.Group
}

// NewTableRegistry 创建餐桌注册表
func NewTableRegistry(repo repository.DiningTableRepository, ttl time.Duration) *TableRegistry {
	if ttl <= 0 {
		ttl = defaultTableCacheTTL
	}
	return &TableRegistry{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// FindActiveByStaticID 根据桌贴编号查找启用中的餐桌
func (r *TableRegistry) FindActiveByStaticID(staticID string) (TableSnapshot, error) {
	normalized := strings.TrimSpace(staticID)
	if normalized == "" {
		return TableSnapshot{}, ErrTableStaticIDRequired
	}

	if table, ok, fresh := r.lookup(normalized); fresh && ok {
		return table, nil
	}

	if err := r.reload(); err != nil {
		return TableSnapshot{}, err
	}
	table, ok, _ := r.lookup(normalized)
	if !ok {
		logger.Warnw("table_registry_miss", "static_id", normalized, "cached", r.Size())
		return TableSnapshot{}, ErrTableNotFound
	}
	return table, nil
}

// Invalidate 使缓存失效，下次查询时重新加载
func (r *TableRegistry) Invalidate() {
	r.mu.Lock()
	r.loadedAt = time.Time{}
	r.mu.Unlock()
}

// Size 当前缓存的餐桌数量
func (r *TableRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

func (r *TableRegistry) lookup(staticID string) (TableSnapshot, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fresh := !r.loadedAt.IsZero() && r.now().Sub(r.loadedAt) < r.ttl
	table, ok := r.tables[staticID]
	return table, ok, fresh
}

func (r *TableRegistry) reload() error {
	_, err, _ := r.loads.Do("reload", func() (interface{}, error) {
		rows, err := r.repo.ListActive()
		if err != nil {
			return nil, err
		}
		tables := make(map[string]TableSnapshot, len(rows))
		for _, row := range rows {
			key := strings.TrimSpace(row.StaticID)
			tables[key] = TableSnapshot{ID: row.ID, StaticID: key, Name: row.Name}
		}
		r.mu.Lock()
		r.tables = tables
		r.loadedAt = r.now()
		r.mu.Unlock()
		logger.Debugw("table_registry_reloaded", "count", len(tables))
		return nil, nil
	})
	return err
}
