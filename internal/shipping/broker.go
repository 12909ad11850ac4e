package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// FallbackRule 按重量计算的兜底运费
type FallbackRule struct {
	PerKg     decimal.Decimal
	MinCharge decimal.Decimal
}

// BrokerConfig 比价配置
type BrokerConfig struct {
	OriginPincode string
	Fallback      FallbackRule
	Defaults      Dimensions
}

// QuoteInput 询价输入
type QuoteInput struct {
	Pincode     string
	Subtotal    decimal.Decimal
	Lines       []Line
	PaymentMode string
	Courier     string // 非空时只询该快递商
}

// DeclaredValue 申报货值，结账询价与发货建单统一按优惠前商品小计申报
func DeclaredValue(goodsSubtotal decimal.Decimal) decimal.Decimal {
	if goodsSubtotal.IsNegative() {
		return decimal.Zero
	}
	return goodsSubtotal
}

// Quote 比价结果
type Quote struct {
	Courier        string          `json:"courier"`
	ServiceName    string          `json:"service_name"`
	CarrierCharge  decimal.Decimal `json:"carrier_charge"`
	FallbackCharge decimal.Decimal `json:"fallback_charge"`
	TotalCharge    decimal.Decimal `json:"total_charge"`
	Option         RateOption      `json:"option"`
	Package        Package         `json:"package"`
}

// Broker 多快递商比价
type Broker struct {
	cfg      BrokerConfig
	couriers []Courier
}

// NewBroker 创建比价器，couriers 的顺序决定同价时的优先级
func NewBroker(cfg BrokerConfig, couriers ...Courier) *Broker {
	list := make([]Courier, 0, len(couriers))
	for _, courier := range couriers {
		if courier != nil {
			list = append(list, courier)
		}
	}
	return &Broker{cfg: cfg, couriers: list}
}

// Courier 按名称查找快递商客户端
func (b *Broker) Courier(name string) (Courier, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, courier := range b.couriers {
		if courier.Name() == name {
			return courier, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCourierNotFound, name)
}

// Defaults 返回默认包裹参数
func (b *Broker) Defaults() Dimensions {
	return b.cfg.Defaults
}

// Quote 结账询价，叠加按重兜底运费，收取 max(快递报价, 兜底运费)
func (b *Broker) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	quote, err := b.QuoteWithoutFallback(ctx, input)
	if err != nil {
		return nil, err
	}
	quote.FallbackCharge = b.FallbackCharge(quote.Package.ActualWeightKg)
	quote.TotalCharge = decimal.Max(quote.CarrierCharge, quote.FallbackCharge)
	return quote, nil
}

// QuoteWithoutFallback 发货时询价，收取的就是快递报价
func (b *Broker) QuoteWithoutFallback(ctx context.Context, input QuoteInput) (*Quote, error) {
	if err := ValidatePincode(input.Pincode); err != nil {
		return nil, err
	}
	pkg, err := BuildPackage(input.Lines, b.cfg.Defaults)
	if err != nil {
		return nil, err
	}

	couriers := b.couriers
	if strings.TrimSpace(input.Courier) != "" {
		courier, err := b.Courier(input.Courier)
		if err != nil {
			return nil, err
		}
		couriers = []Courier{courier}
	}
	if len(couriers) == 0 {
		return nil, fmt.Errorf("%w: no courier configured", ErrCourierNotFound)
	}

	req := RateRequest{
		FromPincode:   b.cfg.OriginPincode,
		ToPincode:     strings.TrimSpace(input.Pincode),
		Package:       pkg,
		DeclaredValue: input.Subtotal,
		PaymentMode:   normalizePaymentMode(input.PaymentMode),
	}
	options, err := b.collectRates(ctx, couriers, req)
	if err != nil {
		return nil, err
	}
	best, err := SelectCheapest(options)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Courier:       best.Courier,
		ServiceName:   best.ServiceName,
		CarrierCharge: best.Rate,
		TotalCharge:   best.Rate,
		Option:        best,
		Package:       pkg,
	}, nil
}

// collectRates 并发询价，单个快递商失败只记录日志，全部失败才返回错误
func (b *Broker) collectRates(ctx context.Context, couriers []Courier, req RateRequest) ([]RateOption, error) {
	results := make([][]RateOption, len(couriers))
	errs := make([]error, len(couriers))

	var g errgroup.Group
	for idx, courier := range couriers {
		g.Go(func() error {
			options, err := courier.Rates(ctx, req)
			if err != nil {
				errs[idx] = err
				logger.SW("courier", courier.Name(), "to_pincode", req.ToPincode).Warnw("shipping_rate_courier_failed", "error", err)
				return nil
			}
			results[idx] = options
			return nil
		})
	}
	_ = g.Wait()

	var merged []RateOption
	var firstErr error
	failed := 0
	for idx := range couriers {
		if errs[idx] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[idx]
			}
			continue
		}
		merged = append(merged, results[idx]...)
	}
	if failed == len(couriers) {
		return nil, fmt.Errorf("%w: %w", ErrRateUnavailable, firstErr)
	}
	return merged, nil
}

// FallbackCharge 兜底运费 max(重量×每公斤单价, 最低收费)，保留两位小数
func (b *Broker) FallbackCharge(weightKg decimal.Decimal) decimal.Decimal {
	perWeight := weightKg.Mul(b.cfg.Fallback.PerKg)
	return decimal.Max(perWeight, b.cfg.Fallback.MinCharge).RoundBank(2)
}

// SelectCheapest 取价格大于 0 的最低报价，同价保留先出现的
func SelectCheapest(options []RateOption) (RateOption, error) {
	var best RateOption
	found := false
	for _, option := range options {
		if !option.Rate.GreaterThan(decimal.Zero) {
			continue
		}
		if !found || option.Rate.LessThan(best.Rate) {
			best = option
			found = true
		}
	}
	if !found {
		return RateOption{}, ErrNoValidRate
	}
	return best, nil
}

// ValidatePincode 校验 6 位数字邮编
func ValidatePincode(pincode string) error {
	pincode = strings.TrimSpace(pincode)
	if len(pincode) != 6 {
		return ErrInvalidPincode
	}
	for _, r := range pincode {
		if r < '0' || r > '9' {
			return ErrInvalidPincode
		}
	}
	return nil
}

// SanitizePhone 只保留数字并截取后 10 位
func SanitizePhone(raw string) string {
	digits := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return string(digits)
}

// PaymentModeFor 把订单支付方式映射为快递计费模式
func PaymentModeFor(paymentMethod string) string {
	if strings.EqualFold(strings.TrimSpace(paymentMethod), constants.PaymentMethodRZP) {
		return constants.ShippingPaymentModePrepaid
	}
	return constants.ShippingPaymentModeCOD
}

func normalizePaymentMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), constants.ShippingPaymentModePrepaid) {
		return constants.ShippingPaymentModePrepaid
	}
	return constants.ShippingPaymentModeCOD
}
