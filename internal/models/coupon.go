package models

import "time"

// Coupon 优惠券（只读校验，不记录核销次数）
type Coupon struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                          // 主键
	Code           string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`             // 优惠码（大写）
	DiscountType   string     `gorm:"type:varchar(10);not null" json:"discount_type"`                // 类型（PERCENT/FLAT）
	DiscountValue  Money      `gorm:"type:decimal(20,2);not null" json:"discount_value"`             // 数值（百分比或固定金额）
	MinOrderAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"` // 使用门槛
	Active         bool       `gorm:"not null;index" json:"active"`                                  // 是否启用
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at"`                                       // 过期时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}
