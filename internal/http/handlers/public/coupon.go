package public

import (
	"github.com/setwear/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CouponPreviewRequest 优惠码预览请求
type CouponPreviewRequest struct {
	Code string `json:"code" binding:"required"`
}

// PreviewCoupon 按当前购物车校验优惠码
func (h *Handler) PreviewCoupon(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CouponPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.coupon_invalid", err)
		return
	}
	cart, err := h.cartView(uid)
	if err != nil {
		respondCouponPreviewError(c, err)
		return
	}
	result, err := h.CouponService.Apply(req.Code, cart.Subtotal.Decimal)
	if err != nil {
		respondCouponPreviewError(c, err)
		return
	}
	response.Success(c, result)
}
