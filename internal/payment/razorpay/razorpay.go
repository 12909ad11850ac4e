package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/setwear/internal/logger"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("razorpay config invalid")
	ErrRequestFailed    = errors.New("razorpay request failed")
	ErrResponseInvalid  = errors.New("razorpay response invalid")
	ErrSignatureMissing = errors.New("razorpay signature missing")
	ErrSignatureInvalid = errors.New("razorpay signature invalid")
)

const (
	defaultAPIBaseURL = "https://api.razorpay.com"
	defaultCurrency   = "INR"
	defaultTimeout    = 15 * time.Second

	// SignatureHeader webhook 签名头
	SignatureHeader = "X-Razorpay-Signature"
)

// Config Razorpay 配置
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Currency      string
	Timeout       time.Duration
}

// Client Razorpay API 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// CreateOrderInput 创建网关订单输入
type CreateOrderInput struct {
	Amount   decimal.Decimal // 卢比
	Currency string
	Receipt  string
	Notes    map[string]string
}

// CreateOrderResult 创建网关订单返回
type CreateOrderResult struct {
	OrderID     string
	AmountPaise int64
	Currency    string
	Receipt     string
	Status      string
	Raw         map[string]interface{}
}

// WebhookEvent webhook 事件
type WebhookEvent struct {
	Event     string
	OrderID   string
	PaymentID string
	Status    string
	Amount    int64
	ErrorDesc string
	Raw       map[string]interface{}
}

// New 创建客户端
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// KeyID 前端结账使用的公钥
func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

// Currency 默认币种
func (c *Client) Currency() string {
	return c.cfg.Currency
}

// ValidateConfig 校验 API 凭据
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.KeyID) == "" {
		return fmt.Errorf("%w: key_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	return nil
}

// ToPaise 卢比转为最小货币单位
func ToPaise(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: amount is negative", ErrConfigInvalid)
	}
	paise := amount.Shift(2).Round(0)
	if !paise.IsInteger() {
		return 0, fmt.Errorf("%w: amount is invalid", ErrConfigInvalid)
	}
	return paise.IntPart(), nil
}

// CreateOrder 创建网关订单 POST /v1/orders
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	amountPaise, err := ToPaise(input.Amount)
	if err != nil {
		return nil, err
	}
	if amountPaise <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = c.cfg.Currency
	}
	payload := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  strings.TrimSpace(input.Receipt),
	}
	if len(input.Notes) > 0 {
		payload["notes"] = input.Notes
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBody, &raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.SW("receipt", input.Receipt, "status", resp.StatusCode).Warnw("razorpay_create_order_failed", "payload", raw)
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, firstNonEmpty(readString(raw, "error", "description"), string(respBody)))
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body is not json", ErrResponseInvalid)
	}
	result := &CreateOrderResult{
		OrderID:     readString(raw, "id"),
		AmountPaise: readInt64(raw, "amount"),
		Currency:    strings.ToUpper(readString(raw, "currency")),
		Receipt:     readString(raw, "receipt"),
		Status:      readString(raw, "status"),
		Raw:         raw,
	}
	if result.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	if result.AmountPaise == 0 {
		result.AmountPaise = amountPaise
	}
	if result.Currency == "" {
		result.Currency = currency
	}
	return result, nil
}

// VerifyPaymentSignature 校验结账回调签名 HMAC_SHA256(order_id|payment_id, key_secret)
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if strings.TrimSpace(c.cfg.KeySecret) == "" {
		return fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(signature) == "" {
		return ErrSignatureMissing
	}
	expected := Sign(c.cfg.KeySecret, []byte(strings.TrimSpace(orderID)+"|"+strings.TrimSpace(paymentID)))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyWebhookSignature 校验 webhook 原始请求体签名
func (c *Client) VerifyWebhookSignature(body []byte, signature string) error {
	if strings.TrimSpace(c.cfg.WebhookSecret) == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(signature) == "" {
		return ErrSignatureMissing
	}
	expected := Sign(c.cfg.WebhookSecret, body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign 计算十六进制 HMAC-SHA256
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook 解析 webhook 事件，payload.payment.entity 中取订单号与支付号
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: malformed webhook body", ErrResponseInvalid)
	}
	event := &WebhookEvent{
		Event: readString(raw, "event"),
		Raw:   raw,
	}
	if event.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrResponseInvalid)
	}
	event.OrderID = readString(raw, "payload", "payment", "entity", "order_id")
	event.PaymentID = readString(raw, "payload", "payment", "entity", "id")
	event.Status = readString(raw, "payload", "payment", "entity", "status")
	event.Amount = readInt64(raw, "payload", "payment", "entity", "amount")
	event.ErrorDesc = readString(raw, "payload", "payment", "entity", "error_description")
	return event, nil
}

func readValue(raw map[string]interface{}, path ...string) interface{} {
	var current interface{} = raw
	for _, seg := range path {
		next, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = next[seg]
	}
	return current
}

func readString(raw map[string]interface{}, path ...string) string {
	switch value := readValue(raw, path...).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return decimal.NewFromFloat(value).String()
	default:
		return fmt.Sprintf("%v", value)
	}
}

func readInt64(raw map[string]interface{}, path ...string) int64 {
	switch value := readValue(raw, path...).(type) {
	case float64:
		return int64(value)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return parsed.IntPart()
	default:
		return 0
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
