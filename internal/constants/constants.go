package constants

// 支付方式常量
const (
	PaymentMethodCOD = "COD" // 货到付款，线上仅预付运费
	PaymentMethodRZP = "RZP" // Razorpay 在线全额支付
)

// 支付状态常量（订单支付维度）
const (
	PaymentStatusUnpaid          = "UNPAID"
	PaymentStatusPaid            = "PAID"
	PaymentStatusShippingFeePaid = "SHIPPING_FEE_PAID"
	PaymentStatusFailed          = "FAILED"
)

// 发货状态常量（订单物流维度）
const (
	ShippingStatusPending        = "PENDING"
	ShippingStatusReadyToShip    = "READY_TO_SHIP"
	ShippingStatusShipped        = "SHIPPED"
	ShippingStatusDelivered      = "DELIVERED"
	ShippingStatusShipmentFailed = "SHIPMENT_FAILED"
	ShippingStatusCancelled      = "CANCELLED"
)

// 后台发货看板筛选
const (
	ShipmentFilterPending   = "pending" // READY_TO_SHIP + SHIPMENT_FAILED
	ShipmentFilterShipped   = "shipped"
	ShipmentFilterDelivered = "delivered"
	ShipmentFilterFailed    = "failed"
	ShipmentFilterCancelled = "cancelled"
	ShipmentFilterAll       = "all"
)

// 快递商标识
const (
	CourierIThink  = "ithink"
	CourierShiport = "shiport"
)

// 快递计费支付模式
const (
	ShippingPaymentModePrepaid = "prepaid"
	ShippingPaymentModeCOD     = "cod"
)

// 优惠券类型
const (
	CouponTypePercent = "PERCENT"
	CouponTypeFlat    = "FLAT"
)

// 支付确认来源
const (
	PaymentSourceCallback = "callback"
	PaymentSourceWebhook  = "webhook"
)

// Razorpay webhook 事件
const (
	RazorpayEventPaymentCaptured = "payment.captured"
	RazorpayEventPaymentFailed   = "payment.failed"
)

// 发货尝试结果
const (
	ShipmentAttemptSucceeded = "succeeded"
	ShipmentAttemptFailed    = "failed"
)

// 标签纸张尺寸
const (
	LabelPageA4 = "A4"
	LabelPageA5 = "A5"
	LabelPageA6 = "A6"
)

// 异步任务
const (
	QueueDefault          = "default"
	QueueShipping         = "shipping"
	TaskShipmentDispatch  = "shipment:dispatch"
	TaskShipmentTrackSync = "shipment:track_sync"
)

// 员工内置角色
const (
	StaffRoleViewer           = "viewer"
	StaffRoleShippingOperator = "shipping_operator"
	StaffRoleCatalogManager   = "catalog_manager"
)
