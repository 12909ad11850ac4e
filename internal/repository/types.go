package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	Category   string // 分类 slug
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	OnlyActive bool
	WithColors bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page             int
	PageSize         int
	UserID           uint
	PaymentMethod    string
	PaymentStatus    string
	ShippingStatuses []string
	OrderNo          string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// CouponListFilter 优惠券列表筛选
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	Active   *bool
}
