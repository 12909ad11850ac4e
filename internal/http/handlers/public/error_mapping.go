package public

import (
	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError = handlershared.MappedError

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackKey)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	return handlershared.ConcatMappedErrors(groups...)
}

var cartErrorRules = []mappedHandlerError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrColorNotFound, Code: response.CodeNotFound, Key: "error.color_not_found"},
	{Target: service.ErrCartItemNotFound, Code: response.CodeNotFound, Key: "error.cart_item_not_found"},
	{Target: service.ErrCartQuantityInvalid, Code: response.CodeBadRequest, Key: "error.cart_quantity_invalid"},
	{Target: service.ErrCartMinimumQuantity, Code: response.CodeBadRequest, Key: "error.cart_minimum_quantity"},
	{Target: service.ErrCartActionInvalid, Code: response.CodeBadRequest, Key: "error.cart_action_invalid"},
	{Target: service.ErrStockInsufficient, Code: response.CodeConflict, Key: "error.stock_insufficient", Expose: true},
}

var checkoutInputErrorRules = []mappedHandlerError{
	{Target: service.ErrCartEmpty, Code: response.CodeBadRequest, Key: "error.cart_empty"},
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrInvalidPincode, Code: response.CodeBadRequest, Key: "error.pincode_invalid"},
	{Target: service.ErrInvalidPhone, Code: response.CodeBadRequest, Key: "error.phone_invalid"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrAddressInvalid, Code: response.CodeBadRequest, Key: "error.address_invalid"},
	{Target: service.ErrPaymentMethodInvalid, Code: response.CodeBadRequest, Key: "error.payment_method_invalid"},
}

var shippingQuoteErrorRules = []mappedHandlerError{
	{Target: service.ErrShippingQuoteFailed, Code: response.CodeUpstream, Key: "error.shipping_quote_failed", Expose: true},
}

var couponErrorRules = []mappedHandlerError{
	{Target: service.ErrCouponNotFound, Code: response.CodeBadRequest, Key: "error.coupon_not_found"},
	{Target: service.ErrCouponExpired, Code: response.CodeBadRequest, Key: "error.coupon_expired"},
	{Target: service.ErrCouponMinAmount, Code: response.CodeBadRequest, Key: "error.coupon_min_amount"},
	{Target: service.ErrCouponInvalid, Code: response.CodeBadRequest, Key: "error.coupon_invalid"},
}

var orderCreateExtraErrorRules = []mappedHandlerError{
	{Target: service.ErrStockInsufficient, Code: response.CodeConflict, Key: "error.stock_insufficient", Expose: true},
	{Target: service.ErrPaymentGatewayFailed, Code: response.CodeUpstream, Key: "error.payment_gateway_failed"},
}

var orderQueryErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
}

var paymentCallbackErrorRules = []mappedHandlerError{
	{Target: service.ErrPaymentInvalid, Code: response.CodeBadRequest, Key: "error.payment_invalid"},
	{Target: service.ErrPaymentSignature, Code: response.CodeBadRequest, Key: "error.payment_signature"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrPaymentGatewayFailed, Code: response.CodeUpstream, Key: "error.payment_gateway_failed"},
}

func respondCartError(c *gin.Context, err error, fallbackKey string) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, fallbackKey)
}

func respondShippingQuoteError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(checkoutInputErrorRules, shippingQuoteErrorRules), response.CodeInternal, "error.shipping_quote_failed")
}

func respondCouponPreviewError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(checkoutInputErrorRules, couponErrorRules), response.CodeInternal, "error.coupon_invalid")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(checkoutInputErrorRules, shippingQuoteErrorRules, couponErrorRules, orderCreateExtraErrorRules), response.CodeInternal, "error.order_create_failed")
}

func respondOrderQueryError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderQueryErrorRules, response.CodeInternal, "error.order_fetch_failed")
}

func respondPaymentCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCallbackErrorRules, response.CodeInternal, "error.payment_callback_failed")
}
