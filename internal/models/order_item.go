package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem 订单项，下单时快照商品信息
type OrderItem struct {
	ID                         uint            `gorm:"primarykey" json:"id"`                                                     // 主键
	OrderID                    uint            `gorm:"index;not null" json:"order_id"`                                           // 订单ID
	ProductID                  *uint           `gorm:"index" json:"product_id"`                                                  // 商品ID（商品删除后为空）
	ColorID                    *uint           `gorm:"index" json:"color_id"`                                                    // 颜色款ID
	ProductName                string          `gorm:"type:varchar(255);not null" json:"product_name"`                           // 商品名称快照
	ColorName                  string          `gorm:"type:varchar(100)" json:"color_name"`                                      // 颜色名称快照
	Image                      string          `gorm:"type:varchar(500)" json:"image"`                                           // 图片快照
	SKU                        string          `gorm:"column:sku;type:varchar(120)" json:"sku"`                                  // SKU（slug-颜色）
	Quantity                   int             `gorm:"not null" json:"quantity"`                                                 // 套数
	ActualPrice                Money           `gorm:"type:decimal(20,2);not null;default:0" json:"actual_price"`                // 原价快照
	DiscountPrice              Money           `gorm:"type:decimal(20,2);not null;default:0" json:"discount_price"`              // 折扣价快照
	PricePerPieceAtPurchase    Money           `gorm:"type:decimal(20,2);not null;default:0" json:"price_per_piece_at_purchase"` // 下单时单件价
	TotalPiecesInSetAtPurchase int             `gorm:"not null;default:0" json:"total_pieces_in_set_at_purchase"`                // 下单时每套件数
	WeightKg                   decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"weight_kg"`                   // 单套重量快照
	LengthCm                   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"length_cm"`                   // 长快照
	WidthCm                    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"width_cm"`                    // 宽快照
	HeightCm                   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"height_cm"`                   // 高快照
	CreatedAt                  time.Time       `gorm:"index" json:"created_at"`                                                  // 创建时间

	Product *Product `gorm:"foreignKey:ProductID" json:"-"` // 关联商品（用于读取最新尺寸）
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// UnitPrice 成交单价
func (i OrderItem) UnitPrice() Money {
	if i.DiscountPrice.GreaterThan(decimal.Zero) {
		return i.DiscountPrice
	}
	return i.ActualPrice
}

// LineTotal 行小计
func (i OrderItem) LineTotal() Money {
	return NewMoneyFromDecimal(i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity))))
}
