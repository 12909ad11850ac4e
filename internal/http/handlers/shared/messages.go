package shared

// messages 接口错误文案，key 与响应中的业务含义一一对应
var messages = map[string]string{
	"error.bad_request":               "invalid request",
	"error.unauthorized":              "unauthorized",
	"error.forbidden":                 "forbidden",
	"error.not_found":                 "resource not found",
	"error.internal":                  "internal server error",
	"error.auth_header_missing":       "authorization header missing",
	"error.auth_header_invalid":       "authorization header must be a bearer token",
	"error.jwt_secret_missing":        "token secret not configured",
	"error.token_invalid":             "token invalid or expired",
	"error.user_id_invalid":           "user id invalid",
	"error.user_id_type_invalid":      "user id type invalid",
	"error.staff_id_invalid":          "staff id invalid",
	"error.staff_id_type_invalid":     "staff id type invalid",
	"error.id_invalid":                "id invalid",
	"error.rate_limited":              "too many requests, retry in %d seconds",
	"error.rate_limit_unavailable":    "rate limiter unavailable",
	"error.product_not_found":         "product not found",
	"error.product_invalid":           "product data invalid",
	"error.product_slug_exists":       "product slug already exists",
	"error.product_fetch_failed":      "failed to fetch products",
	"error.product_save_failed":       "failed to save product",
	"error.category_not_found":        "category not found",
	"error.category_invalid":          "category data invalid",
	"error.category_name_exists":      "category name already exists",
	"error.category_slug_exists":      "category slug already exists",
	"error.category_in_use":           "category still has products",
	"error.category_fetch_failed":     "failed to fetch categories",
	"error.category_save_failed":      "failed to save category",
	"error.color_not_found":           "color not found",
	"error.color_invalid":             "color data invalid",
	"error.stock_invalid":             "stock must be zero or positive",
	"error.stock_insufficient":        "insufficient stock",
	"error.cart_empty":                "cart is empty",
	"error.cart_item_not_found":       "cart item not found",
	"error.cart_quantity_invalid":     "quantity must be at least 1",
	"error.cart_minimum_quantity":     "minimum quantity for this set is 1",
	"error.cart_action_invalid":       "action must be increase, decrease or set",
	"error.cart_fetch_failed":         "failed to fetch cart",
	"error.cart_update_failed":        "failed to update cart",
	"error.pincode_invalid":           "pincode must be 6 digits",
	"error.phone_invalid":             "phone must be 10 digits",
	"error.email_invalid":             "email invalid",
	"error.address_invalid":           "address incomplete",
	"error.payment_method_invalid":    "payment method must be COD or RZP",
	"error.shipping_quote_failed":     "shipping rate unavailable for this pincode",
	"error.coupon_not_found":          "coupon not found",
	"error.coupon_expired":            "coupon expired",
	"error.coupon_min_amount":         "order amount below coupon minimum",
	"error.coupon_invalid":            "coupon invalid",
	"error.coupon_code_exists":        "coupon code already exists",
	"error.coupon_fetch_failed":       "failed to fetch coupons",
	"error.coupon_save_failed":        "failed to save coupon",
	"error.order_not_found":           "order not found",
	"error.order_status_invalid":      "order status does not allow this operation",
	"error.order_create_failed":       "failed to create order",
	"error.order_fetch_failed":        "failed to fetch orders",
	"error.order_update_failed":       "failed to update order",
	"error.payment_gateway_failed":    "payment gateway unavailable, please retry",
	"error.payment_signature":         "payment signature invalid",
	"error.payment_invalid":           "payment request invalid",
	"error.payment_callback_failed":   "payment confirmation failed",
	"error.shipment_failed":           "shipment failed",
	"error.dispatch_in_progress":      "shipment dispatch already in progress",
	"error.tracking_unavailable":      "tracking unavailable",
	"error.label_unavailable":         "shipping label unavailable",
	"error.courier_unavailable":       "courier not configured",
	"error.queue_unavailable":         "queue unavailable",
	"error.warehouse_fetch_failed":    "failed to fetch warehouses",
	"error.attempt_fetch_failed":      "failed to fetch shipment attempts",
	"error.webhook_signature_missing": "missing signature",
}

// Message 按 key 获取文案，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
