package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"

	"github.com/shopspring/decimal"
)

var percentCap = decimal.NewFromInt(100)

// CouponService 优惠券服务（只校验不核销）
type CouponService struct {
	couponRepo repository.CouponRepository
	now        func() time.Time
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo, now: time.Now}
}

// CouponInput 创建/更新优惠券输入
type CouponInput struct {
	Code           string
	DiscountType   string
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	Active         *bool
	ExpiresAt      *time.Time
}

// CouponResult 优惠券校验结果
type CouponResult struct {
	Code           string       `json:"code"`
	DiscountType   string       `json:"discount_type"`
	DiscountAmount models.Money `json:"discount_amount"`
	Subtotal       models.Money `json:"subtotal"`
	Total          models.Money `json:"total"`
}

// Apply 校验优惠码并计算优惠金额，优惠金额不超过小计
func (s *CouponService) Apply(code string, subtotal decimal.Decimal) (*CouponResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if coupon == nil || !coupon.Active {
		return nil, ErrCouponNotFound
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(s.now()) {
		return nil, ErrCouponExpired
	}
	if subtotal.LessThan(coupon.MinOrderAmount.Decimal) {
		return nil, fmt.Errorf("%w: minimum %s", ErrCouponMinAmount, coupon.MinOrderAmount.String())
	}

	discount := CouponDiscount(coupon, subtotal)
	return &CouponResult{
		Code:           coupon.Code,
		DiscountType:   coupon.DiscountType,
		DiscountAmount: models.NewMoneyFromDecimal(discount),
		Subtotal:       models.NewMoneyFromDecimal(subtotal),
		Total:          models.NewMoneyFromDecimal(subtotal.Sub(discount)),
	}, nil
}

// CouponDiscount 计算优惠金额
func CouponDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil || subtotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case constants.CouponTypePercent:
		discount = subtotal.Mul(coupon.DiscountValue.Decimal).Div(percentCap)
	case constants.CouponTypeFlat:
		discount = coupon.DiscountValue.Decimal
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount.Round(2)
}

func normalizeCouponInput(input *CouponInput) error {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.DiscountType = strings.ToUpper(strings.TrimSpace(input.DiscountType))
	if input.Code == "" {
		return fmt.Errorf("%w: code is required", ErrCouponInvalid)
	}
	switch input.DiscountType {
	case constants.CouponTypePercent:
		if input.DiscountValue.LessThanOrEqual(decimal.Zero) || input.DiscountValue.GreaterThan(percentCap) {
			return fmt.Errorf("%w: percent must be within (0, 100]", ErrCouponInvalid)
		}
	case constants.CouponTypeFlat:
		if input.DiscountValue.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: flat value must be positive", ErrCouponInvalid)
		}
	default:
		return fmt.Errorf("%w: discount type %q", ErrCouponInvalid, input.DiscountType)
	}
	if input.MinOrderAmount.IsNegative() {
		return fmt.Errorf("%w: min order amount must not be negative", ErrCouponInvalid)
	}
	return nil
}

// CreateCoupon 创建优惠券
func (s *CouponService) CreateCoupon(input CouponInput) (*models.Coupon, error) {
	if err := normalizeCouponInput(&input); err != nil {
		return nil, err
	}
	existing, err := s.couponRepo.GetByCode(input.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCouponCodeExists
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	coupon := &models.Coupon{
		Code:           input.Code,
		DiscountType:   input.DiscountType,
		DiscountValue:  models.NewMoneyFromDecimal(input.DiscountValue),
		MinOrderAmount: models.NewMoneyFromDecimal(input.MinOrderAmount),
		Active:         active,
		ExpiresAt:      input.ExpiresAt,
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// UpdateCoupon 更新优惠券
func (s *CouponService) UpdateCoupon(id uint, input CouponInput) (*models.Coupon, error) {
	if err := normalizeCouponInput(&input); err != nil {
		return nil, err
	}
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if input.Code != coupon.Code {
		existing, err := s.couponRepo.GetByCode(input.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrCouponCodeExists
		}
	}
	coupon.Code = input.Code
	coupon.DiscountType = input.DiscountType
	coupon.DiscountValue = models.NewMoneyFromDecimal(input.DiscountValue)
	coupon.MinOrderAmount = models.NewMoneyFromDecimal(input.MinOrderAmount)
	coupon.ExpiresAt = input.ExpiresAt
	if input.Active != nil {
		coupon.Active = *input.Active
	}
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// DeleteCoupon 停用优惠券，历史订单仍引用优惠码
func (s *CouponService) DeleteCoupon(id uint) error {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	if !coupon.Active {
		return nil
	}
	coupon.Active = false
	return s.couponRepo.Update(coupon)
}

// ListCoupons 优惠券列表
func (s *CouponService) ListCoupons(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}
