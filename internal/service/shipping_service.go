package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/setwear/internal/cache"
	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/shipping"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultQuoteTTL = 30 * time.Minute

// ShippingService 结账运费报价
type ShippingService struct {
	cartRepo repository.CartRepository
	broker   *shipping.Broker
	quotes   cache.QuoteStore
	quoteTTL time.Duration
}

// NewShippingService 创建运费服务
func NewShippingService(cartRepo repository.CartRepository, broker *shipping.Broker, quotes cache.QuoteStore, quoteTTL time.Duration) *ShippingService {
	if quoteTTL <= 0 {
		quoteTTL = defaultQuoteTTL
	}
	if quotes == nil {
		quotes = cache.RedisQuoteStore{}
	}
	return &ShippingService{cartRepo: cartRepo, broker: broker, quotes: quotes, quoteTTL: quoteTTL}
}

func shippingLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(kv...)
}

// NormalizePaymentMethod 规范化支付方式，非法值返回空串
func NormalizePaymentMethod(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case constants.PaymentMethodCOD:
		return constants.PaymentMethodCOD
	case constants.PaymentMethodRZP:
		return constants.PaymentMethodRZP
	default:
		return ""
	}
}

// QuoteCart 对当前购物车询价并缓存报价
func (s *ShippingService) QuoteCart(ctx context.Context, userID uint, pincode, paymentMethod string) (*cache.ShippingQuote, error) {
	pincode = strings.TrimSpace(pincode)
	if err := shipping.ValidatePincode(pincode); err != nil {
		return nil, ErrInvalidPincode
	}
	method := NormalizePaymentMethod(paymentMethod)
	if method == "" {
		method = constants.PaymentMethodCOD
	}
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	lines, err := cartShippingLines(items)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteLines(ctx, pincode, method, lines, NewCartView(items).Subtotal.Decimal)
	if err != nil {
		shippingLogger("user_id", userID, "pincode", pincode).Warnw("shipping_quote_failed", "error", err)
		return nil, err
	}
	quote.CartFingerprint = CartFingerprint(items)
	if err := s.quotes.SaveQuote(ctx, userID, quote, s.quoteTTL); err != nil {
		shippingLogger("user_id", userID).Warnw("shipping_quote_cache_failed", "error", err)
	}
	return quote, nil
}

// CachedQuote 读取缓存的报价，不存在时返回 nil
func (s *ShippingService) CachedQuote(ctx context.Context, userID uint) (*cache.ShippingQuote, error) {
	return s.quotes.LoadQuote(ctx, userID)
}

// ForgetQuote 下单后清除缓存报价
func (s *ShippingService) ForgetQuote(ctx context.Context, userID uint) {
	if err := s.quotes.DeleteQuote(ctx, userID); err != nil {
		shippingLogger("user_id", userID).Warnw("shipping_quote_delete_failed", "error", err)
	}
}

// quoteForOrder 下单时取运费：缓存报价的邮编、支付方式与购物车指纹都一致时直接使用，否则实时询价
func (s *ShippingService) quoteForOrder(ctx context.Context, userID uint, pincode, method string, items []models.CartItem, subtotal models.Money) (*cache.ShippingQuote, error) {
	lines, err := cartShippingLines(items)
	if err != nil {
		return nil, err
	}
	fingerprint := CartFingerprint(items)
	cached, err := s.quotes.LoadQuote(ctx, userID)
	if err != nil {
		shippingLogger("user_id", userID).Warnw("shipping_quote_cache_read_failed", "error", err)
	}
	if cached != nil && cached.Pincode == pincode && cached.PaymentMethod == method &&
		cached.CartFingerprint == fingerprint && cached.Charge.IsPositive() {
		return cached, nil
	}
	if cached != nil {
		shippingLogger("user_id", userID).Debugw("shipping_quote_cache_stale", "pincode", pincode, "payment_method", method)
	}
	quote, err := s.quoteLines(ctx, pincode, method, lines, subtotal.Decimal)
	if err != nil {
		return nil, err
	}
	quote.CartFingerprint = fingerprint
	return quote, nil
}

// CartFingerprint 购物车计费指纹，覆盖商品、颜色、套数与当前重量尺寸
func CartFingerprint(items []models.CartItem) string {
	rows := make([]string, 0, len(items))
	for _, item := range items {
		row := fmt.Sprintf("%d:%d:%d", item.ProductID, item.ColorID, item.Quantity)
		if item.Product != nil {
			row += fmt.Sprintf(":%s:%s:%s:%s", item.Product.WeightKg, item.Product.LengthCm, item.Product.WidthCm, item.Product.HeightCm)
		}
		rows = append(rows, row)
	}
	sort.Strings(rows)
	sum := sha256.Sum256([]byte(strings.Join(rows, "|")))
	return hex.EncodeToString(sum[:])
}

func (s *ShippingService) quoteLines(ctx context.Context, pincode, method string, lines []shipping.Line, subtotal decimal.Decimal) (*cache.ShippingQuote, error) {
	if s.broker == nil {
		return nil, fmt.Errorf("%w: no broker configured", ErrShippingQuoteFailed)
	}
	quote, err := s.broker.Quote(ctx, shipping.QuoteInput{
		Pincode:     pincode,
		Subtotal:    shipping.DeclaredValue(subtotal),
		Lines:       lines,
		PaymentMode: shipping.PaymentModeFor(method),
	})
	if err != nil {
		if errors.Is(err, shipping.ErrInvalidPincode) {
			return nil, ErrInvalidPincode
		}
		if errors.Is(err, shipping.ErrEmptyShipment) {
			return nil, ErrCartEmpty
		}
		return nil, fmt.Errorf("%w: %w", ErrShippingQuoteFailed, err)
	}
	return &cache.ShippingQuote{
		Pincode:        pincode,
		PaymentMethod:  method,
		Charge:         quote.TotalCharge,
		CarrierCharge:  quote.CarrierCharge,
		FallbackCharge: quote.FallbackCharge,
		Service:        quote.ServiceName,
		Courier:        quote.Courier,
		QuotedAt:       time.Now().Unix(),
	}, nil
}

// cartShippingLines 购物车行转为计费行，重量尺寸取商品当前值，商品缺失时报错
func cartShippingLines(items []models.CartItem) ([]shipping.Line, error) {
	lines := make([]shipping.Line, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			return nil, fmt.Errorf("%w: cart item %d references product %d", ErrProductNotFound, item.ID, item.ProductID)
		}
		lines = append(lines, shipping.Line{
			Name:      item.ProductName,
			SKU:       cartItemSKU(item),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice().Decimal,
			WeightKg:  item.Product.WeightKg,
			LengthCm:  item.Product.LengthCm,
			WidthCm:   item.Product.WidthCm,
			HeightCm:  item.Product.HeightCm,
		})
	}
	return lines, nil
}

func cartItemSKU(item models.CartItem) string {
	parts := make([]string, 0, 2)
	if item.Product != nil && item.Product.Slug != "" {
		parts = append(parts, item.Product.Slug)
	} else {
		parts = append(parts, fmt.Sprintf("p%d", item.ProductID))
	}
	if item.Color != nil && item.Color.Slug != "" {
		parts = append(parts, item.Color.Slug)
	}
	return strings.Join(parts, "-")
}
