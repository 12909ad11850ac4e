package models

import "time"

// ShipmentAttempt 发货尝试记录，保存脱敏后的请求与响应
type ShipmentAttempt struct {
	ID           uint      `gorm:"primarykey" json:"id"`                              // 主键
	OrderID      uint      `gorm:"index;not null" json:"order_id"`                    // 订单ID
	Courier      string    `gorm:"type:varchar(32)" json:"courier"`                   // 快递平台
	ServiceName  string    `gorm:"type:varchar(100)" json:"service_name"`             // 物流服务名称
	Rate         Money     `gorm:"type:decimal(20,2);not null;default:0" json:"rate"` // 报价
	Outcome      string    `gorm:"type:varchar(16);not null;index" json:"outcome"`    // 结果（succeeded/failed）
	TrackingID   string    `gorm:"type:varchar(100)" json:"tracking_id"`              // 运单号
	ErrorMessage string    `gorm:"type:text" json:"error_message"`                    // 失败原因
	RequestJSON  JSON      `gorm:"type:json" json:"request"`                          // 请求载荷（脱敏）
	ResponseJSON JSON      `gorm:"type:json" json:"response"`                         // 响应载荷（脱敏）
	OperatorID   *uint     `gorm:"index" json:"operator_id,omitempty"`                // 操作员ID
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                           // 创建时间
}

// TableName 指定表名
func (ShipmentAttempt) TableName() string {
	return "shipment_attempts"
}
