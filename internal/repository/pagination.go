package repository

import "gorm.io/gorm"

// maxPageSize 单页上限，后台看板与商品列表共用
const maxPageSize = 100

// countAndPaginate 统计总数后返回带分页的查询
// pageSize <= 0 时不分页，超过 maxPageSize 时截断
func countAndPaginate(query *gorm.DB, page, pageSize int) (*gorm.DB, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pageSize <= 0 {
		return query, total, nil
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize), total, nil
}
