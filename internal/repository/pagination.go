package repository

import "gorm.io/gorm"

const maxPageSize = 100

// paginate 返回分页 scope：页码小于 1 按第一页处理，页大小超过上限时截断，pageSize<=0 不分页。
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}
