package models

import "time"

// Order 订单表，支付状态与发货状态分两条轴记录
type Order struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo             string     `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	UserID              uint       `gorm:"index;not null" json:"user_id"`                                // 用户ID
	FullName            string     `gorm:"type:varchar(100);not null" json:"full_name"`                  // 收件人
	Phone               string     `gorm:"type:varchar(15);not null" json:"phone"`                       // 手机号
	Email               string     `gorm:"type:varchar(255)" json:"email"`                               // 邮箱
	Address             string     `gorm:"type:text;not null" json:"address"`                            // 详细地址
	City                string     `gorm:"type:varchar(100);not null" json:"city"`                       // 城市
	State               string     `gorm:"type:varchar(100);not null" json:"state"`                      // 邦
	Pincode             string     `gorm:"type:varchar(10);not null" json:"pincode"`                     // 邮编
	PaymentMethod       string     `gorm:"type:varchar(10);not null;index" json:"payment_method"`        // 支付方式（COD/RZP）
	PaymentStatus       string     `gorm:"type:varchar(32);not null;index" json:"payment_status"`        // 支付状态
	ShippingStatus      string     `gorm:"type:varchar(32);not null;index" json:"shipping_status"`       // 发货状态
	PaymentID           string     `gorm:"type:varchar(100)" json:"payment_id"`                          // 网关支付单号（pay_...）
	RazorpayOrderID     string     `gorm:"type:varchar(100);index" json:"razorpay_order_id"`             // 网关订单号（order_...）
	Subtotal            Money      `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`        // 商品小计
	ShippingCharge      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_charge"` // 收取运费
	CarrierCharge       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"carrier_charge"`  // 快递报价
	FallbackCharge      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"fallback_charge"` // 按重兜底运费
	CouponCode          string     `gorm:"type:varchar(50)" json:"coupon_code"`                          // 优惠码
	DiscountAmount      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	GrandTotal          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"grand_total"`     // 订单总额
	AmountDueNow        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount_due_now"`  // 线上应付金额
	ShippingServiceName string     `gorm:"type:varchar(100)" json:"shipping_service_name"`               // 物流服务名称
	Courier             string     `gorm:"type:varchar(32)" json:"courier"`                              // 快递平台
	TrackingID          string     `gorm:"type:varchar(100);index" json:"tracking_id"`                   // 运单号
	ShippingLabelURL    string     `gorm:"type:varchar(500)" json:"shipping_label_url"`                  // 面单地址
	ShipmentError       string     `gorm:"type:text" json:"shipment_error"`                              // 最近一次失败原因
	LastTrackingStatus  string     `gorm:"type:varchar(255)" json:"last_tracking_status"`                // 最近一次轨迹状态
	PaidAt              *time.Time `gorm:"index" json:"paid_at"`                                         // 支付时间
	ShippedAt           *time.Time `gorm:"index" json:"shipped_at"`                                      // 发货时间
	DeliveredAt         *time.Time `gorm:"index" json:"delivered_at"`                                    // 签收时间
	DispatchingAt       *time.Time `gorm:"index" json:"dispatching_at"`                                  // 发货占用时间，非空表示正在向快递商建单
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt           time.Time  `gorm:"index" json:"updated_at"`                                      // 更新时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
