package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// sizeCompositionPattern 尺码组合中的单项，如 2M、XL、28
var sizeCompositionPattern = regexp.MustCompile(`(\d+)?([A-Z]{1,3}|\d{2})`)

// Product 商品表（按套销售）
type Product struct {
	ID            uint            `gorm:"primarykey" json:"id"`                                        // 主键
	Name          string          `gorm:"type:varchar(200);not null" json:"name"`                      // 商品名称
	Slug          string          `gorm:"uniqueIndex;not null" json:"slug"`                            // 唯一标识
	Description   string          `gorm:"type:text" json:"description"`                                // 描述
	Image         string          `gorm:"type:varchar(500)" json:"image"`                              // 主图
	Images        StringArray     `gorm:"type:json" json:"images"`                                     // 图集
	Price         Money           `gorm:"type:decimal(20,2);not null;default:0" json:"price"`          // 每套价格
	DiscountPrice Money           `gorm:"type:decimal(20,2);not null;default:0" json:"discount_price"` // 每套折扣价（0 表示无折扣）
	Sizes         string          `gorm:"type:varchar(255);not null" json:"sizes"`                     // 尺码组合，如 1S,2M,1L
	WeightKg      decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"weight_kg"`      // 单套重量（kg）
	LengthCm      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"length_cm"`      // 长（cm）
	WidthCm       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"width_cm"`       // 宽（cm）
	HeightCm      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"height_cm"`      // 高（cm）
	IsActive      bool            `gorm:"not null;index" json:"is_active"`                             // 是否上架
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt     time.Time       `json:"updated_at"`                                                  // 更新时间

	Colors     []ProductColor `gorm:"foreignKey:ProductID" json:"colors,omitempty"`              // 颜色款
	Categories []Category     `gorm:"many2many:product_categories;" json:"categories,omitempty"` // 所属分类
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// PieceCount 根据尺码组合计算每套件数，缺省数量按 1 计
func (p Product) PieceCount() int {
	composition := strings.ReplaceAll(p.Sizes, " ", "")
	total := 0
	for _, match := range sizeCompositionPattern.FindAllStringSubmatch(composition, -1) {
		count := 1
		if match[1] != "" {
			parsed, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			count = parsed
		}
		total += count
	}
	return total
}

// HasDiscount 是否设置了有效折扣价
func (p Product) HasDiscount() bool {
	return p.DiscountPrice.GreaterThan(decimal.Zero)
}

// EffectivePrice 当前每套售价
func (p Product) EffectivePrice() Money {
	if p.HasDiscount() {
		return p.DiscountPrice
	}
	return p.Price
}

// PricePerPiece 当前单件价格，件数为 0 时返回 0
func (p Product) PricePerPiece() Money {
	return perPiece(p.EffectivePrice(), p.PieceCount())
}

// OriginalPricePerPiece 原价单件价格
func (p Product) OriginalPricePerPiece() Money {
	return perPiece(p.Price, p.PieceCount())
}

func perPiece(setPrice Money, pieces int) Money {
	if pieces <= 0 {
		return NewMoneyFromDecimal(decimal.Zero)
	}
	return NewMoneyFromDecimal(setPrice.Div(decimal.NewFromInt(int64(pieces))))
}
