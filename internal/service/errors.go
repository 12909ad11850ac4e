package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductSlugExists    = errors.New("product slug already exists")
	ErrProductInvalid       = errors.New("product invalid")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryInvalid      = errors.New("category invalid")
	ErrCategoryNameExists   = errors.New("category name already exists")
	ErrCategorySlugExists   = errors.New("category slug already exists")
	ErrCategoryInUse        = errors.New("category still has products")
	ErrColorNotFound        = errors.New("product color not found")
	ErrColorInvalid         = errors.New("product color invalid")
	ErrStockInvalid         = errors.New("stock must be zero or positive")
	ErrStockInsufficient    = errors.New("insufficient stock")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartQuantityInvalid  = errors.New("cart quantity invalid")
	ErrCartMinimumQuantity  = errors.New("minimum quantity for this set is 1")
	ErrCartActionInvalid    = errors.New("cart action invalid")
	ErrInvalidPincode       = errors.New("pincode must be 6 digits")
	ErrInvalidPhone         = errors.New("phone must be 10 digits")
	ErrInvalidEmail         = errors.New("email invalid")
	ErrAddressInvalid       = errors.New("address incomplete")
	ErrPaymentMethodInvalid = errors.New("payment method invalid")
	ErrShippingQuoteFailed  = errors.New("shipping quote unavailable")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponExpired        = errors.New("coupon expired")
	ErrCouponMinAmount      = errors.New("order amount below coupon minimum")
	ErrCouponInvalid        = errors.New("coupon invalid")
	ErrCouponCodeExists     = errors.New("coupon code already exists")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderStateInvalid    = errors.New("order state invalid")
	ErrOrderStatusInvalid   = errors.New("order status does not allow this operation")
	ErrPaymentGatewayFailed = errors.New("payment gateway failed")
	ErrPaymentSignature     = errors.New("payment signature invalid")
	ErrPaymentInvalid       = errors.New("payment request invalid")
	ErrShipmentFailed       = errors.New("shipment failed")
	ErrDispatchInProgress   = errors.New("shipment dispatch already in progress")
	ErrTrackingUnavailable  = errors.New("tracking unavailable")
	ErrLabelUnavailable     = errors.New("shipping label unavailable")
	ErrQueueUnavailable     = errors.New("queue unavailable")
	ErrCourierUnavailable   = errors.New("courier not configured")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenSecretMissing   = errors.New("token secret missing")
)

// StockShortfallError 库存不足，记录缺货明细
type StockShortfallError struct {
	ProductName string
	ColorName   string
	Wanted      int
	Available   int
}

func (e *StockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): wanted %d, only %d sets available", e.ProductName, e.ColorName, e.Wanted, e.Available)
}

// Unwrap 支持 errors.Is(err, ErrStockInsufficient)
func (e *StockShortfallError) Unwrap() error {
	return ErrStockInsufficient
}

// ShipmentError 发货失败，携带上游原因
type ShipmentError struct {
	OrderID uint
	Courier string
	Cause   error
}

func (e *ShipmentError) Error() string {
	if e.Courier == "" {
		return fmt.Sprintf("shipment for order %d failed: %v", e.OrderID, e.Cause)
	}
	return fmt.Sprintf("shipment for order %d via %s failed: %v", e.OrderID, e.Courier, e.Cause)
}

// Unwrap 返回底层原因
func (e *ShipmentError) Unwrap() []error {
	return []error{ErrShipmentFailed, e.Cause}
}
