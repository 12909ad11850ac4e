package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ShippingQuote 结账运费报价快照，同时保留快递报价与兜底运费用于审计
type ShippingQuote struct {
	Pincode         string          `json:"pincode"`
	PaymentMethod   string          `json:"payment_method"`
	Charge          decimal.Decimal `json:"charge"`
	CarrierCharge   decimal.Decimal `json:"carrier_charge"`
	FallbackCharge  decimal.Decimal `json:"fallback_charge"`
	Service         string          `json:"service"`
	Courier         string          `json:"courier"`
	CartFingerprint string          `json:"cart_fingerprint"` // 询价时的购物车指纹，下单时不一致则重新询价
	QuotedAt        int64           `json:"quoted_at"`
}

// QuoteStore 报价存取
type QuoteStore interface {
	SaveQuote(ctx context.Context, userID uint, quote *ShippingQuote, ttl time.Duration) error
	LoadQuote(ctx context.Context, userID uint) (*ShippingQuote, error)
	DeleteQuote(ctx context.Context, userID uint) error
}

// RedisQuoteStore 基于 Redis 的报价存储，未启用 Redis 时读写均为空操作
type RedisQuoteStore struct{}

func quoteKey(userID uint) string {
	return fmt.Sprintf("quote:%d", userID)
}

// SaveQuote 写入报价
func (RedisQuoteStore) SaveQuote(ctx context.Context, userID uint, quote *ShippingQuote, ttl time.Duration) error {
	if userID == 0 || quote == nil {
		return nil
	}
	return SetJSON(ctx, quoteKey(userID), quote, ttl)
}

// LoadQuote 读取报价，不存在时返回 nil
func (RedisQuoteStore) LoadQuote(ctx context.Context, userID uint) (*ShippingQuote, error) {
	if userID == 0 {
		return nil, nil
	}
	var quote ShippingQuote
	hit, err := GetJSON(ctx, quoteKey(userID), &quote)
	if err != nil || !hit {
		return nil, err
	}
	return &quote, nil
}

// DeleteQuote 删除报价
func (RedisQuoteStore) DeleteQuote(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, quoteKey(userID))
}
