package admin

import (
	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError = handlershared.MappedError

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackKey)
}

var orderErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeConflict, Key: "error.order_status_invalid", Expose: true},
	{Target: service.ErrOrderStateInvalid, Code: response.CodeConflict, Key: "error.order_status_invalid"},
}

var shipmentErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeConflict, Key: "error.order_status_invalid", Expose: true},
	{Target: service.ErrDispatchInProgress, Code: response.CodeConflict, Key: "error.dispatch_in_progress"},
	{Target: service.ErrShipmentFailed, Code: response.CodeUpstream, Key: "error.shipment_failed", Expose: true},
	{Target: service.ErrQueueUnavailable, Code: response.CodeUnavailable, Key: "error.queue_unavailable"},
	{Target: service.ErrCourierUnavailable, Code: response.CodeUnavailable, Key: "error.courier_unavailable"},
	{Target: service.ErrTrackingUnavailable, Code: response.CodeUpstream, Key: "error.tracking_unavailable", Expose: true},
	{Target: service.ErrLabelUnavailable, Code: response.CodeUpstream, Key: "error.label_unavailable", Expose: true},
}

var catalogErrorRules = []mappedHandlerError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrProductSlugExists, Code: response.CodeConflict, Key: "error.product_slug_exists"},
	{Target: service.ErrProductInvalid, Code: response.CodeBadRequest, Key: "error.product_invalid", Expose: true},
	{Target: service.ErrColorNotFound, Code: response.CodeNotFound, Key: "error.color_not_found"},
	{Target: service.ErrColorInvalid, Code: response.CodeBadRequest, Key: "error.color_invalid", Expose: true},
	{Target: service.ErrStockInvalid, Code: response.CodeBadRequest, Key: "error.stock_invalid"},
	{Target: service.ErrCategoryNotFound, Code: response.CodeBadRequest, Key: "error.category_not_found", Expose: true},
}

var categoryErrorRules = []mappedHandlerError{
	{Target: service.ErrCategoryNotFound, Code: response.CodeNotFound, Key: "error.category_not_found"},
	{Target: service.ErrCategoryInvalid, Code: response.CodeBadRequest, Key: "error.category_invalid", Expose: true},
	{Target: service.ErrCategoryNameExists, Code: response.CodeConflict, Key: "error.category_name_exists"},
	{Target: service.ErrCategorySlugExists, Code: response.CodeConflict, Key: "error.category_slug_exists"},
	{Target: service.ErrCategoryInUse, Code: response.CodeConflict, Key: "error.category_in_use", Expose: true},
}

var couponErrorRules = []mappedHandlerError{
	{Target: service.ErrCouponNotFound, Code: response.CodeNotFound, Key: "error.coupon_not_found"},
	{Target: service.ErrCouponCodeExists, Code: response.CodeConflict, Key: "error.coupon_code_exists"},
	{Target: service.ErrCouponInvalid, Code: response.CodeBadRequest, Key: "error.coupon_invalid", Expose: true},
}
