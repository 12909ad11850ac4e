package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem 购物车项，数量以套为单位
type CartItem struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                               // 主键
	UserID        uint      `gorm:"not null;uniqueIndex:idx_cart_user_product_color" json:"user_id"`    // 用户ID
	ProductID     uint      `gorm:"not null;uniqueIndex:idx_cart_user_product_color" json:"product_id"` // 商品ID
	ColorID       uint      `gorm:"not null;uniqueIndex:idx_cart_user_product_color" json:"color_id"`   // 颜色款ID
	Quantity      int       `gorm:"not null" json:"quantity"`                                           // 套数
	ProductName   string    `gorm:"type:varchar(200);not null" json:"product_name"`                     // 商品名称快照
	Image         string    `gorm:"type:varchar(500)" json:"image"`                                     // 图片快照
	ActualPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"actual_price"`          // 原价快照
	DiscountPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_price"`        // 折扣价快照
	Sizes         string    `gorm:"type:varchar(255)" json:"sizes"`                                     // 尺码组合快照
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                            // 创建时间
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`                                            // 更新时间

	Product *Product      `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
	Color   *ProductColor `gorm:"foreignKey:ColorID" json:"color,omitempty"`     // 关联颜色款
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}

// UnitPrice 购物车单价，取快照折扣价或原价
func (c CartItem) UnitPrice() Money {
	if c.DiscountPrice.GreaterThan(decimal.Zero) {
		return c.DiscountPrice
	}
	return c.ActualPrice
}

// LineTotal 行小计
func (c CartItem) LineTotal() Money {
	return NewMoneyFromDecimal(c.UnitPrice().Mul(decimal.NewFromInt(int64(c.Quantity))))
}

// PieceCount 按快照尺码组合计算该行件数
func (c CartItem) PieceCount() int {
	return Product{Sizes: c.Sizes}.PieceCount() * c.Quantity
}
