package ithink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/shipping"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("ithink config invalid")
	ErrRequestFailed   = errors.New("ithink request failed")
	ErrResponseInvalid = errors.New("ithink response invalid")
	ErrAPIRejected     = errors.New("ithink api rejected")
)

const (
	defaultBaseURL       = "https://my.ithinklogistics.com/api_v3"
	defaultTimeout       = 60 * time.Second
	defaultCreateTimeout = 300 * time.Second
	stagingLogistics     = "Delhivery"
	defaultEmail         = "no-email@example.com"
	statusSuccess        = "success"
	orderDateLayout      = "02-01-2006"
)

// Config iThink 接入配置
type Config struct {
	BaseURL         string
	AccessToken     string
	SecretKey       string
	PickupAddressID string
	ReturnAddressID string
	StoreID         string
	Logistics       string
	ServiceType     string
	Staging         bool
	HSNCode         string
	TaxRate         string
	Timeout         time.Duration
	CreateTimeout   time.Duration
}

// Client iThink Logistics API 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// TrackInfo 单个运单的轨迹摘要
type TrackInfo struct {
	AWB        string                 `json:"awb"`
	Status     string                 `json:"status"`
	StatusCode string                 `json:"status_code"`
	Message    string                 `json:"message"`
	Raw        map[string]interface{} `json:"raw"`
}

// LabelResult 面单结果，接口可能返回链接或直接返回 PDF
type LabelResult struct {
	URL string
	PDF []byte
}

// New 创建客户端
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = defaultCreateTimeout
	}
	if strings.TrimSpace(cfg.TaxRate) == "" {
		cfg.TaxRate = "0"
	}
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

// ValidateConfig 校验凭据
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return fmt.Errorf("%w: access_token is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	return nil
}

// Name 快递商标识
func (c *Client) Name() string {
	return constants.CourierIThink
}

type rateCheckData struct {
	FromPincode      string `json:"from_pincode"`
	ToPincode        string `json:"to_pincode"`
	ShippingWeightKg string `json:"shipping_weight_kg"`
	PaymentMethod    string `json:"payment_method"`
	ProductMRP       string `json:"product_mrp"`
	AccessToken      string `json:"access_token"`
	SecretKey        string `json:"secret_key"`
	ShippingLength   string `json:"shipping_length_cms"`
	ShippingWidth    string `json:"shipping_width_cms"`
	ShippingHeight   string `json:"shipping_height_cms"`
	OrderType        string `json:"order_type"`
}

type rateCheckResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    []rateEntry `json:"data"`
}

type rateEntry struct {
	LogisticName string          `json:"logistic_name"`
	Rate         decimal.Decimal `json:"rate"`
}

// Rates 询价 rate/check.json
func (c *Client) Rates(ctx context.Context, req shipping.RateRequest) ([]shipping.RateOption, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	data := rateCheckData{
		FromPincode:      req.FromPincode,
		ToPincode:        req.ToPincode,
		ShippingWeightKg: safeAmount(req.Package.WeightKg),
		PaymentMethod:    paymentMode(req.PaymentMode),
		ProductMRP:       safeAmount(req.DeclaredValue),
		AccessToken:      c.cfg.AccessToken,
		SecretKey:        c.cfg.SecretKey,
		ShippingLength:   req.Package.LengthCm.String(),
		ShippingWidth:    req.Package.WidthCm.String(),
		ShippingHeight:   req.Package.HeightCm.String(),
		OrderType:        "forward",
	}
	resp, err := c.post(ctx, c.cfg.Timeout, "/rate/check.json", data)
	if err != nil {
		return nil, err
	}
	var parsed rateCheckResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode rate response failed", ErrResponseInvalid)
	}
	if !strings.EqualFold(parsed.Status, statusSuccess) {
		return nil, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(parsed.Message, "rate check failed"))
	}

	options := make([]shipping.RateOption, 0, len(parsed.Data))
	for _, entry := range parsed.Data {
		options = append(options, shipping.RateOption{
			Courier:     constants.CourierIThink,
			ServiceName: strings.TrimSpace(entry.LogisticName),
			Rate:        entry.Rate,
			Raw:         map[string]interface{}{"logistic_name": entry.LogisticName, "rate": entry.Rate.String()},
		})
	}
	return options, nil
}

type addOrderData struct {
	Shipments       []shipmentPayload `json:"shipments"`
	PickupAddressID string            `json:"pickup_address_id"`
	Logistics       string            `json:"logistics"`
	ServiceType     string            `json:"s_type"`
	AccessToken     string            `json:"access_token"`
	SecretKey       string            `json:"secret_key"`
}

type shipmentPayload struct {
	Order                   string           `json:"order"`
	OrderDate               string           `json:"order_date"`
	TotalAmount             string           `json:"total_amount"`
	PaymentMode             string           `json:"payment_mode"`
	CODAmount               string           `json:"cod_amount"`
	Name                    string           `json:"name"`
	Add                     string           `json:"add"`
	Add2                    string           `json:"add2"`
	Add3                    string           `json:"add3"`
	Pin                     string           `json:"pin"`
	City                    string           `json:"city"`
	State                   string           `json:"state"`
	Country                 string           `json:"country"`
	Phone                   string           `json:"phone"`
	AltPhone                string           `json:"alt_phone"`
	Email                   string           `json:"email"`
	CompanyName             string           `json:"company_name"`
	Weight                  string           `json:"weight"`
	ShipmentLength          string           `json:"shipment_length"`
	ShipmentWidth           string           `json:"shipment_width"`
	ShipmentHeight          string           `json:"shipment_height"`
	Products                []productPayload `json:"products"`
	ReturnAddressID         string           `json:"return_address_id"`
	IsBillingSameAsShipping string           `json:"is_billing_same_as_shipping"`
	StoreID                 string           `json:"store_id"`
	APISource               string           `json:"api_source"`
	Waybill                 string           `json:"waybill"`
	SubOrder                string           `json:"sub_order"`
	GSTNumber               string           `json:"gst_number"`
	EwayBillNumber          string           `json:"eway_bill_number"`
	ResellerName            string           `json:"reseller_name"`
	What3Words              string           `json:"what3words"`
	ShippingCharges         string           `json:"shipping_charges"`
	GiftwrapCharges         string           `json:"giftwrap_charges"`
	TransactionCharges      string           `json:"transaction_charges"`
	TotalDiscount           string           `json:"total_discount"`
	FirstAttemptDiscount    string           `json:"first_attemp_discount"`
	CODCharges              string           `json:"cod_charges"`
	AdvanceAmount           string           `json:"advance_amount"`
}

type productPayload struct {
	ProductName     string `json:"product_name"`
	ProductSKU      string `json:"product_sku"`
	ProductQuantity string `json:"product_quantity"`
	ProductPrice    string `json:"product_price"`
	ProductTaxRate  string `json:"product_tax_rate"`
	ProductHSNCode  string `json:"product_hsn_code"`
}

type addOrderResponse struct {
	Status  string                      `json:"status"`
	Message string                      `json:"message"`
	Data    map[string]addOrderShipment `json:"data"`
}

type addOrderShipment struct {
	Status       string `json:"status"`
	Waybill      string `json:"waybill"`
	LogisticName string `json:"logistic_name"`
	Remark       string `json:"remark"`
}

// CreateShipment 建单 order/add.json
func (c *Client) CreateShipment(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, shipping.ErrEmptyShipment
	}

	logistics := strings.TrimSpace(req.Option.ServiceName)
	if logistics == "" {
		logistics = c.cfg.Logistics
	}
	if c.cfg.Staging {
		logistics = stagingLogistics
	}
	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	products := make([]productPayload, 0, len(req.Items))
	for _, item := range req.Items {
		products = append(products, productPayload{
			ProductName:     item.Name,
			ProductSKU:      item.SKU,
			ProductQuantity: strconv.Itoa(item.Quantity),
			ProductPrice:    safeAmount(item.UnitPrice),
			ProductTaxRate:  c.cfg.TaxRate,
			ProductHSNCode:  c.cfg.HSNCode,
		})
	}
	email := strings.TrimSpace(req.Receiver.Email)
	if email == "" {
		email = defaultEmail
	}
	country := strings.TrimSpace(req.Receiver.Country)
	if country == "" {
		country = "India"
	}
	returnAddressID := firstNonEmpty(c.cfg.ReturnAddressID, c.cfg.PickupAddressID)

	data := addOrderData{
		Shipments: []shipmentPayload{{
			Order:                   req.OrderRef,
			OrderDate:               orderDate.Format(orderDateLayout),
			TotalAmount:             safeAmount(req.DeclaredValue),
			PaymentMode:             paymentMode(req.PaymentMode),
			CODAmount:               safeAmount(req.CODAmount),
			Name:                    req.Receiver.Name,
			Add:                     req.Receiver.Address,
			Pin:                     req.Receiver.Pincode,
			City:                    req.Receiver.City,
			State:                   req.Receiver.State,
			Country:                 country,
			Phone:                   req.Receiver.Phone,
			Email:                   email,
			Weight:                  safeAmount(req.Package.WeightKg),
			ShipmentLength:          req.Package.LengthCm.String(),
			ShipmentWidth:           req.Package.WidthCm.String(),
			ShipmentHeight:          req.Package.HeightCm.String(),
			Products:                products,
			ReturnAddressID:         returnAddressID,
			IsBillingSameAsShipping: "yes",
			StoreID:                 c.cfg.StoreID,
			APISource:               "1",
			ShippingCharges:         "0",
			GiftwrapCharges:         "0",
			TransactionCharges:      "0",
			TotalDiscount:           "0",
			FirstAttemptDiscount:    "0",
			CODCharges:              "0",
			AdvanceAmount:           "0",
		}},
		PickupAddressID: c.cfg.PickupAddressID,
		Logistics:       logistics,
		ServiceType:     c.cfg.ServiceType,
		AccessToken:     c.cfg.AccessToken,
		SecretKey:       c.cfg.SecretKey,
	}

	result := &shipping.ShipmentResult{
		Courier:     constants.CourierIThink,
		ServiceName: logistics,
		Request:     logger.Redact(toMap(map[string]interface{}{"data": data})),
	}
	resp, err := c.post(ctx, c.cfg.CreateTimeout, "/order/add.json", data)
	if resp != nil {
		result.Response = resp.raw
	}
	if err != nil {
		return result, err
	}

	var parsed addOrderResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return result, fmt.Errorf("%w: decode add order response failed", ErrResponseInvalid)
	}
	shipment, ok := parsed.Data["1"]
	if !strings.EqualFold(parsed.Status, statusSuccess) || !ok {
		return result, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(parsed.Message, string(resp.body)))
	}
	if !strings.EqualFold(shipment.Status, statusSuccess) {
		return result, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(shipment.Remark, "shipment creation failed"))
	}
	if strings.TrimSpace(shipment.Waybill) == "" {
		return result, fmt.Errorf("%w: missing waybill", ErrResponseInvalid)
	}
	result.TrackingID = strings.TrimSpace(shipment.Waybill)
	if name := strings.TrimSpace(shipment.LogisticName); name != "" {
		result.ServiceName = name
	}
	return result, nil
}

type trackData struct {
	AWBNumberList string `json:"awb_number_list"`
	AccessToken   string `json:"access_token"`
	SecretKey     string `json:"secret_key"`
}

// Track 查询运单轨迹 order/track.json
func (c *Client) Track(ctx context.Context, awbs ...string) (map[string]TrackInfo, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	awbs = compact(awbs)
	if len(awbs) == 0 {
		return nil, fmt.Errorf("%w: awb is required", ErrConfigInvalid)
	}
	resp, err := c.post(ctx, c.cfg.Timeout, "/order/track.json", trackData{
		AWBNumberList: strings.Join(awbs, ","),
		AccessToken:   c.cfg.AccessToken,
		SecretKey:     c.cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	data, ok := resp.raw["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(readString(resp.raw, "message"), "tracking data missing"))
	}

	out := make(map[string]TrackInfo, len(data))
	for awb, value := range data {
		entry, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		out[awb] = TrackInfo{
			AWB:        awb,
			Status:     readString(entry, "current_status"),
			StatusCode: readString(entry, "current_status_code"),
			Message:    readString(entry, "message"),
			Raw:        entry,
		}
	}
	return out, nil
}

type labelData struct {
	AWBNumbers            string `json:"awb_numbers"`
	PageSize              string `json:"page_size"`
	AccessToken           string `json:"access_token"`
	SecretKey             string `json:"secret_key"`
	DisplayCODPrepaid     string `json:"display_cod_prepaid"`
	DisplayShipperMobile  string `json:"display_shipper_mobile"`
	DisplayShipperAddress string `json:"display_shipper_address"`
}

// Label 获取面单 shipping/label.json
func (c *Client) Label(ctx context.Context, pageSize string, awbs ...string) (*LabelResult, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	awbs = compact(awbs)
	if len(awbs) == 0 {
		return nil, fmt.Errorf("%w: awb is required", ErrConfigInvalid)
	}
	switch strings.ToUpper(strings.TrimSpace(pageSize)) {
	case constants.LabelPageA4, constants.LabelPageA5, constants.LabelPageA6:
		pageSize = strings.ToUpper(strings.TrimSpace(pageSize))
	default:
		pageSize = constants.LabelPageA4
	}
	resp, err := c.post(ctx, c.cfg.Timeout, "/shipping/label.json", labelData{
		AWBNumbers:  strings.Join(awbs, ","),
		PageSize:    pageSize,
		AccessToken: c.cfg.AccessToken,
		SecretKey:   c.cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	if strings.Contains(resp.contentType, "application/pdf") {
		return &LabelResult{PDF: resp.body}, nil
	}
	if !strings.EqualFold(readString(resp.raw, "status"), statusSuccess) {
		return nil, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(readString(resp.raw, "message"), "label not available"))
	}
	fileName := strings.TrimSpace(readString(resp.raw, "file_name"))
	if fileName == "" {
		return nil, fmt.Errorf("%w: missing file_name", ErrResponseInvalid)
	}
	return &LabelResult{URL: fileName}, nil
}

type warehouseData struct {
	AccessToken string `json:"access_token"`
	SecretKey   string `json:"secret_key"`
	StoreID     string `json:"store_id,omitempty"`
}

// Warehouses 查询已登记的取件仓 warehouse/get.json
func (c *Client) Warehouses(ctx context.Context) ([]map[string]interface{}, error) {
	if err := ValidateConfig(c.cfg); err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, c.cfg.Timeout, "/warehouse/get.json", warehouseData{
		AccessToken: c.cfg.AccessToken,
		SecretKey:   c.cfg.SecretKey,
		StoreID:     c.cfg.StoreID,
	})
	if err != nil {
		return nil, err
	}
	if status := readString(resp.raw, "status"); status != "" && !strings.EqualFold(status, statusSuccess) {
		return nil, fmt.Errorf("%w: %s", ErrAPIRejected, firstNonEmpty(readString(resp.raw, "message"), status))
	}

	var out []map[string]interface{}
	switch data := resp.raw["data"].(type) {
	case []interface{}:
		for _, item := range data {
			if entry, ok := item.(map[string]interface{}); ok {
				out = append(out, entry)
			}
		}
	case map[string]interface{}:
		for _, item := range data {
			if entry, ok := item.(map[string]interface{}); ok {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

type apiResponse struct {
	body        []byte
	status      int
	contentType string
	raw         map[string]interface{}
}

// post 以 {"data": ...} 包装请求体，记录脱敏后的请求与响应
func (c *Client) post(ctx context.Context, timeout time.Duration, path string, data interface{}) (*apiResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	envelope := map[string]interface{}{"data": data}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
	}
	log := logger.SW("courier", constants.CourierIThink, "endpoint", path)
	log.Infow("courier_request", "payload", logger.Redact(toMap(envelope)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

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
	resp := &apiResponse{
		body:        respBody,
		status:      httpResp.StatusCode,
		contentType: strings.ToLower(httpResp.Header.Get("Content-Type")),
	}
	if strings.Contains(resp.contentType, "application/pdf") && httpResp.StatusCode < 300 {
		log.Infow("courier_response", "status", resp.status, "content_type", resp.contentType, "bytes", len(respBody))
		return resp, nil
	}
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

// safeAmount 金额保留两位小数，四舍五入
func safeAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func paymentMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), constants.ShippingPaymentModePrepaid) {
		return "Prepaid"
	}
	return "COD"
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
	return fmt.Sprintf("%v", value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
