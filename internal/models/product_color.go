package models

import "time"

// ProductColor 商品颜色款，库存以套为单位
type ProductColor struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                      // 主键
	ProductID uint      `gorm:"not null;uniqueIndex:idx_product_color_slug" json:"product_id"`             // 商品ID
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`                                    // 颜色名称
	Slug      string    `gorm:"type:varchar(120);not null;uniqueIndex:idx_product_color_slug" json:"slug"` // 商品内唯一标识
	HexCode   string    `gorm:"type:varchar(7)" json:"hex_code"`                                           // 色值
	Image     string    `gorm:"type:varchar(500)" json:"image"`                                            // 颜色图
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`                                  // 是否主色
	Stock     int       `gorm:"not null;default:0;check:chk_product_colors_stock,stock >= 0" json:"stock"` // 可售套数
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                                // 更新时间
}

// TableName 指定表名
func (ProductColor) TableName() string {
	return "product_colors"
}
