package shiport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/shipping"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("shiport config invalid")
	ErrRequestFailed   = errors.New("shiport request failed")
	ErrResponseInvalid = errors.New("shiport response invalid")
	ErrAPIRejected     = errors.New("shiport api rejected")
)

const (
	defaultTimeout       = 60 * time.Second
	defaultCreateTimeout = 300 * time.Second
	countryCode          = "IN"
	countryName          = "India"
	parcelType           = "Parcel"
	modeDomestic         = "Domestic"
)

// ReturnAddress 退货地址
type ReturnAddress struct {
	Name    string
	Phone   string
	Email   string
	Address string
	City    string
	State   string
	Pincode string
}

// Config Shiport 接入配置
type Config struct {
	BaseURL       string
	SecretKey     string
	CustomerID    string
	WarehouseName string
	AddressID     string
	Return        ReturnAddress
	Timeout       time.Duration
	CreateTimeout time.Duration
}

// Client Shiport API 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New 创建客户端
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = defaultCreateTimeout
	}
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

// ValidateConfig 校验凭据
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" || strings.TrimSpace(cfg.CustomerID) == "" {
		return fmt.Errorf("%w: secret_key and customer_id are required", ErrConfigInvalid)
	}
	return nil
}

// Name 快递商标识
func (c *Client) Name() string {
	return constants.CourierShiport
}

type rateRequest struct {
	FromPostalCode  string  `json:"from_postal_code"`
	FromCountryCode string  `json:"from_country_code"`
	ToPostalCode    string  `json:"to_postal_code"`
	ToCountryCode   string  `json:"to_country_code"`
	Weight          float64 `json:"weight"`
	Length          float64 `json:"length"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	SortBy          string  `json:"sort_by"`
	ParcelType      string  `json:"parcel_type"`
	Mode            string  `json:"mode"`
	PaymentMode     string  `json:"payment_mode"`
}

type rateResponse struct {
	Status   bool        `json:"status"`
	Message  string      `json:"message"`
	RateList []rateEntry `json:"rate_list"`
}

type rateEntry struct {
	TotalCharges      decimal.Decimal `json:"total_charges"`
	CarrierID         json.RawMessage `json:"carrier_id"`
	CourierID         json.RawMessage `json:"courier_id"`
	ServiceName       string          `json:"service_name"`
	ProductTypeName   string          `json:"product_type_name"`
	ServiceProviderID json.RawMessage `json:"service_provider_id"`
}

// Rates 询价 shipment_rate_time
func (c *Client) Rates(ctx context.Context, req shipping.RateRequest) ([]shipping.RateOption, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	body := rateRequest{
		FromPostalCode:  req.FromPincode,
		FromCountryCode: countryCode,
		ToPostalCode:    req.ToPincode,
		ToCountryCode:   countryCode,
		Weight:          req.Package.WeightKg.InexactFloat64(),
		Length:          req.Package.LengthCm.InexactFloat64(),
		Width:           req.Package.WidthCm.InexactFloat64(),
		Height:          req.Package.HeightCm.InexactFloat64(),
		SortBy:          "price",
		ParcelType:      parcelType,
		Mode:            modeDomestic,
		PaymentMode:     paymentMode(req.PaymentMode),
	}
	resp, err := c.post(ctx, c.cfg.Timeout, "/shipment_rate_time", body)
	if err != nil {
		return nil, err
	}
	var parsed rateResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode rate response failed", ErrResponseInvalid)
	}
	if !parsed.Status {
		return nil, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(parsed.Message, "rate check failed"))
	}

	options := make([]shipping.RateOption, 0, len(parsed.RateList))
	for _, entry := range parsed.RateList {
		options = append(options, shipping.RateOption{
			Courier:           constants.CourierShiport,
			ServiceName:       strings.TrimSpace(entry.ServiceName),
			Rate:              entry.TotalCharges,
			CarrierID:         rawID(entry.CarrierID),
			CourierID:         rawID(entry.CourierID),
			ProductType:       strings.TrimSpace(entry.ProductTypeName),
			ServiceProviderID: rawID(entry.ServiceProviderID),
		})
	}
	return options, nil
}

type shipmentItem struct {
	ItemName     string  `json:"item_name"`
	ItemValue    float64 `json:"item_value"`
	ItemQuantity int     `json:"item_quantity"`
	Weight       float64 `json:"weight"`
	Length       float64 `json:"length"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
}

type createRequest struct {
	WarehouseName       string         `json:"warehouse_name"`
	AddressID           string         `json:"address_id"`
	CarrierID           string         `json:"carrier_id"`
	CourierID           string         `json:"courier_id,omitempty"`
	CompanyName         string         `json:"company_name"`
	Mode                string         `json:"mode"`
	PaymentMode         string         `json:"payment_mode"`
	CODAmount           float64        `json:"cod_amount"`
	ProductTypeName     string         `json:"product_type_name"`
	ReceiverAddress     string         `json:"receiver_address"`
	ReceiverCity        string         `json:"receiver_city"`
	ReceiverCountryCode string         `json:"receiver_country_code"`
	ReceiverCountryName string         `json:"receiver_country_name"`
	ReceiverEmail       string         `json:"receiver_email"`
	ReceiverMobile      string         `json:"receiver_mobile"`
	ReceiverName        string         `json:"receiver_name"`
	ReceiverPincode     string         `json:"receiver_pincode"`
	ReceiverStateName   string         `json:"receiver_state_name"`
	ReturnAddress       string         `json:"return_address"`
	ReturnCity          string         `json:"return_city"`
	ReturnCountryCode   string         `json:"return_country_code"`
	ReturnCountryName   string         `json:"return_country_name"`
	ReturnEmail         string         `json:"return_email"`
	ReturnMobile        string         `json:"return_mobile"`
	ReturnName          string         `json:"return_name"`
	ReturnPincode       string         `json:"return_pincode"`
	ReturnStateName     string         `json:"return_state_name"`
	ServiceName         string         `json:"service_name"`
	ShipmentType        string         `json:"shipment_type"`
	Type                string         `json:"type"`
	TotalAmount         float64        `json:"total_amount"`
	TotalWeight         float64        `json:"total_weight"`
	Weight              float64        `json:"weight"`
	Length              float64        `json:"length"`
	Width               float64        `json:"width"`
	Height              float64        `json:"height"`
	OrderNumber         string         `json:"order_number"`
	ProductID           string         `json:"product_id"`
	Items               []shipmentItem `json:"items"`
}

// CreateShipment 建单 new_shipment_create
func (c *Client) CreateShipment(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, shipping.ErrEmptyShipment
	}

	items := make([]shipmentItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, shipmentItem{
			ItemName:     item.Name,
			ItemValue:    item.UnitPrice.InexactFloat64(),
			ItemQuantity: item.Quantity,
			Weight:       item.WeightKg.InexactFloat64(),
			Length:       item.LengthCm.InexactFloat64(),
			Width:        item.WidthCm.InexactFloat64(),
			Height:       item.HeightCm.InexactFloat64(),
		})
	}
	weight := req.Package.WeightKg.InexactFloat64()
	body := createRequest{
		WarehouseName:       c.cfg.WarehouseName,
		AddressID:           c.cfg.AddressID,
		CarrierID:           req.Option.CarrierID,
		CourierID:           req.Option.CourierID,
		CompanyName:         req.Option.ServiceName,
		Mode:                modeDomestic,
		PaymentMode:         paymentMode(req.PaymentMode),
		CODAmount:           req.CODAmount.InexactFloat64(),
		ProductTypeName:     req.Option.ProductType,
		ReceiverAddress:     req.Receiver.Address,
		ReceiverCity:        req.Receiver.City,
		ReceiverCountryCode: countryCode,
		ReceiverCountryName: countryName,
		ReceiverEmail:       req.Receiver.Email,
		ReceiverMobile:      req.Receiver.Phone,
		ReceiverName:        req.Receiver.Name,
		ReceiverPincode:     req.Receiver.Pincode,
		ReceiverStateName:   req.Receiver.State,
		ReturnAddress:       c.cfg.Return.Address,
		ReturnCity:          c.cfg.Return.City,
		ReturnCountryCode:   countryCode,
		ReturnCountryName:   countryName,
		ReturnEmail:         c.cfg.Return.Email,
		ReturnMobile:        c.cfg.Return.Phone,
		ReturnName:          c.cfg.Return.Name,
		ReturnPincode:       c.cfg.Return.Pincode,
		ReturnStateName:     c.cfg.Return.State,
		ServiceName:         req.Option.ServiceName,
		ShipmentType:        parcelType,
		Type:                parcelType,
		TotalAmount:         req.DeclaredValue.InexactFloat64(),
		TotalWeight:         weight,
		Weight:              weight,
		Length:              req.Package.LengthCm.InexactFloat64(),
		Width:               req.Package.WidthCm.InexactFloat64(),
		Height:              req.Package.HeightCm.InexactFloat64(),
		OrderNumber:         req.OrderRef,
		ProductID:           req.Option.ServiceProviderID,
		Items:               items,
	}

	result := &shipping.ShipmentResult{
		Courier:     constants.CourierShiport,
		ServiceName: req.Option.ServiceName,
		Request:     toMap(body),
	}
	resp, err := c.post(ctx, c.cfg.CreateTimeout, "/new_shipment_create", body)
	if resp != nil {
		result.Response = resp.raw
	}
	if err != nil {
		return result, err
	}
	if ok, _ := resp.raw["status"].(bool); !ok {
		return result, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(readString(resp.raw, "message"), "shipment creation failed"))
	}
	result.TrackingID = readNested(resp.raw, "awb_number")
	result.LabelURL = readNested(resp.raw, "label_url")
	if result.TrackingID == "" {
		return result, fmt.Errorf("%w: missing awb_number", ErrResponseInvalid)
	}
	return result, nil
}

type apiResponse struct {
	body   []byte
	status int
	raw    map[string]interface{}
}

func (c *Client) post(ctx context.Context, timeout time.Duration, path string, payload interface{}) (*apiResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
	}
	log := logger.SW("courier", constants.CourierShiport, "endpoint", path)
	log.Infow("courier_request", "payload", logger.Redact(toMap(payload)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("secretkey", c.cfg.SecretKey)
	req.Header.Set("customerid", c.cfg.CustomerID)

	started := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warnw("courier_request_failed", "error", err, "latency_ms", time.Since(started).Milliseconds())
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	resp := &apiResponse{body: respBody, status: httpResp.StatusCode}
	_ = json.Unmarshal(respBody, &resp.raw)
	log.Infow("courier_response",
		"status", resp.status,
		"latency_ms", time.Since(started).Milliseconds(),
		"payload", logger.Redact(resp.raw),
	)
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if resp.raw == nil {
		return resp, fmt.Errorf("%w: body is not json", ErrResponseInvalid)
	}
	return resp, nil
}

func paymentMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), constants.ShippingPaymentModePrepaid) {
		return constants.ShippingPaymentModePrepaid
	}
	return constants.ShippingPaymentModeCOD
}

// rawID 兼容数字与字符串两种 ID 写法
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return strings.TrimSpace(string(raw))
}

// readNested 先读顶层字段，再读 data 下的同名字段
func readNested(raw map[string]interface{}, key string) string {
	if value := readString(raw, key); value != "" {
		return value
	}
	if data, ok := raw["data"].(map[string]interface{}); ok {
		return readString(data, key)
	}
	return ""
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return strings.TrimSpace(str)
	}
	if num, ok := value.(float64); ok {
		return decimal.NewFromFloat(num).String()
	}
	return fmt.Sprintf("%v", value)
}

func toMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
