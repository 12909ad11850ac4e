package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Code           string          `json:"code" binding:"required"`
	DiscountType   string          `json:"discount_type" binding:"required"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	Active         *bool           `json:"active"`
	ExpiresAt      string          `json:"expires_at"`
}

func (r CouponRequest) toInput() (service.CouponInput, error) {
	expiresAt, err := parseTimeNullable(r.ExpiresAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Code:           r.Code,
		DiscountType:   r.DiscountType,
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		Active:         r.Active,
		ExpiresAt:      expiresAt,
	}, nil
}

// GetCoupons 优惠券列表
func (h *Handler) GetCoupons(c *gin.Context) {
	page, pageSize := pagination(c)
	filter := repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	coupons, total, err := h.CouponService.ListCoupons(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, coupons, handlershared.BuildPagination(page, pageSize, total))
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.CreateCoupon(input)
	if err != nil {
		respondWithMappedError(c, err, couponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	couponID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.UpdateCoupon(couponID, input)
	if err != nil {
		respondWithMappedError(c, err, couponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 停用优惠券，历史订单仍引用其编码
func (h *Handler) DeleteCoupon(c *gin.Context) {
	couponID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.CouponService.DeleteCoupon(couponID); err != nil {
		respondWithMappedError(c, err, couponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, gin.H{"deactivated": true})
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
