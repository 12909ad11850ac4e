package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyShipment    = errors.New("shipment has no items")
	ErrInvalidLine      = errors.New("shipment line invalid")
	ErrInvalidPincode   = errors.New("pincode must be 6 digits")
	ErrNoValidRate      = errors.New("no valid shipping rate")
	ErrRateUnavailable  = errors.New("shipping rate unavailable")
	ErrCourierNotFound  = errors.New("courier not found")
	ErrShipmentRejected = errors.New("shipment rejected by courier")
)

// Dimensions 商品缺失重量或尺寸时使用的默认值
type Dimensions struct {
	WeightKg decimal.Decimal
	LengthCm decimal.Decimal
	WidthCm  decimal.Decimal
	HeightCm decimal.Decimal
}

// Line 参与计费的一行商品，重量与尺寸均为单套数值
type Line struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
	WeightKg  decimal.Decimal
	LengthCm  decimal.Decimal
	WidthCm   decimal.Decimal
	HeightCm  decimal.Decimal
}

// Package 聚合后的包裹
type Package struct {
	ActualWeightKg     decimal.Decimal `json:"actual_weight_kg"`
	VolumetricWeightKg decimal.Decimal `json:"volumetric_weight_kg"`
	WeightKg           decimal.Decimal `json:"weight_kg"` // 计费重量
	LengthCm           decimal.Decimal `json:"length_cm"`
	WidthCm            decimal.Decimal `json:"width_cm"`
	HeightCm           decimal.Decimal `json:"height_cm"`
	Sets               int             `json:"sets"`
}

// RateRequest 询价请求
type RateRequest struct {
	FromPincode   string
	ToPincode     string
	Package       Package
	DeclaredValue decimal.Decimal
	PaymentMode   string // prepaid / cod
}

// RateOption 快递商返回的一条报价
type RateOption struct {
	Courier           string                 `json:"courier"`
	ServiceName       string                 `json:"service_name"`
	Rate              decimal.Decimal        `json:"rate"`
	CarrierID         string                 `json:"carrier_id,omitempty"`
	CourierID         string                 `json:"courier_id,omitempty"`
	ProductType       string                 `json:"product_type,omitempty"`
	ServiceProviderID string                 `json:"service_provider_id,omitempty"`
	Raw               map[string]interface{} `json:"-"`
}

// Address 收件地址
type Address struct {
	Name    string
	Phone   string
	Email   string
	Address string
	City    string
	State   string
	Pincode string
	Country string
}

// ShipmentRequest 建单请求
type ShipmentRequest struct {
	OrderRef      string
	OrderDate     time.Time
	Receiver      Address
	Items         []Line
	Package       Package
	PaymentMode   string
	CODAmount     decimal.Decimal
	DeclaredValue decimal.Decimal
	Option        RateOption
}

// ShipmentResult 建单结果
// 失败时也会尽量带回已脱敏的请求与响应载荷，用于审计
type ShipmentResult struct {
	Courier     string
	ServiceName string
	TrackingID  string
	LabelURL    string
	Request     map[string]interface{}
	Response    map[string]interface{}
}

// Courier 快递平台客户端
type Courier interface {
	Name() string
	Rates(ctx context.Context, req RateRequest) ([]RateOption, error)
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error)
}
