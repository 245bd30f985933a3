package repository

// DiningTableListFilter 查询餐桌列表的过滤条件
type DiningTableListFilter struct {
	Page     int
	PageSize int
	Search   string
	IsActive *bool
}
