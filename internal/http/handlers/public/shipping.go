package public

import (
	"github.com/setwear/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ShippingQuoteRequest 运费询价请求
type ShippingQuoteRequest struct {
	Pincode       string `json:"pincode" binding:"required"`
	PaymentMethod string `json:"payment_method"`
}

// QuoteShipping 对当前购物车询价
func (h *Handler) QuoteShipping(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ShippingQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.pincode_invalid", err)
		return
	}
	quote, err := h.ShippingService.QuoteCart(c.Request.Context(), uid, req.Pincode, req.PaymentMethod)
	if err != nil {
		respondShippingQuoteError(c, err)
		return
	}
	response.Success(c, gin.H{
		"pincode":        quote.Pincode,
		"payment_method": quote.PaymentMethod,
		"charge":         quote.Charge.StringFixed(2),
		"service":        quote.Service,
		"courier":        quote.Courier,
	})
}
