package public

import (
	"io"
	"net/http"
	"strings"

	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes webhook 请求体上限
const maxWebhookBodyBytes = 1 << 20

// RazorpayCallbackRequest Checkout 成功回调参数
type RazorpayCallbackRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" form:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature" form:"razorpay_signature"`
}

// RazorpayCallback 顾客端支付完成回调，验签后确认支付
func (h *Handler) RazorpayCallback(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req RazorpayCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.payment_invalid", err)
		return
	}
	result, err := h.PaymentService.HandleCheckoutCallback(c.Request.Context(), service.CheckoutCallbackInput{
		UserID:            uid,
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
	})
	if err != nil {
		respondPaymentCallbackError(c, err)
		return
	}
	if result.StockFailed {
		// 款项已收但库存不足，订单已取消，保留原因供顾客与客服查看
		msg := handlershared.Message("error.stock_insufficient")
		if result.Shortfall != nil {
			msg = result.Shortfall.Error()
		}
		response.ErrorWithData(c, response.CodeConflict, msg, gin.H{"order": result.Order})
		return
	}
	response.Success(c, gin.H{
		"order":             result.Order,
		"already_processed": result.AlreadyProcessed,
	})
}

// RazorpayWebhook Razorpay 服务端通知，HTTP 状态码为网关重试依据
func (h *Handler) RazorpayWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warnw("razorpay_webhook_body_read_failed", "error", err)
		response.WithHTTPStatus(c, http.StatusBadRequest, "invalid payload")
		return
	}
	signature := strings.TrimSpace(c.GetHeader("X-Razorpay-Signature"))
	log.Infow("razorpay_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"event_id", strings.TrimSpace(c.GetHeader("X-Razorpay-Event-Id")),
		"signed", signature != "",
	)
	outcome := h.PaymentService.HandleWebhook(c.Request.Context(), signature, body)
	log.Infow("razorpay_webhook_handled",
		"event", outcome.Event,
		"status", outcome.Status,
		"message", outcome.Message,
	)
	response.WithHTTPStatus(c, outcome.Status, outcome.Message)
}
