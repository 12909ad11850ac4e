package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/payment/razorpay"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/shipping"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo       repository.OrderRepository
	cartRepo        repository.CartRepository
	couponService   *CouponService
	shippingService *ShippingService
	gateway         *razorpay.Client
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, couponService *CouponService, shippingService *ShippingService, gateway *razorpay.Client) *OrderService {
	return &OrderService{
		orderRepo:       orderRepo,
		cartRepo:        cartRepo,
		couponService:   couponService,
		shippingService: shippingService,
		gateway:         gateway,
	}
}

func orderLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// PlaceOrderInput 下单输入
type PlaceOrderInput struct {
	UserID        uint
	FullName      string
	Phone         string
	Email         string
	Address       string
	City          string
	State         string
	Pincode       string
	PaymentMethod string
	CouponCode    string
}

// PlaceOrderResult 下单结果，前端据此拉起 Razorpay 结账
type PlaceOrderResult struct {
	Order           *models.Order `json:"order"`
	RazorpayOrderID string        `json:"razorpay_order_id"`
	KeyID           string        `json:"key_id"`
	AmountPaise     int64         `json:"amount_paise"`
	Currency        string        `json:"currency"`
}

// AdminOrderQuery 后台发货看板筛选
type AdminOrderQuery struct {
	Page          int
	PageSize      int
	PaymentMethod string
	Filter        string
	OrderNo       string
}

func normalizePlaceOrderInput(input *PlaceOrderInput) error {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Address = strings.TrimSpace(input.Address)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.Pincode = strings.TrimSpace(input.Pincode)
	input.Email = strings.TrimSpace(input.Email)
	input.CouponCode = strings.ToUpper(strings.TrimSpace(input.CouponCode))
	if input.FullName == "" || input.Address == "" || input.City == "" || input.State == "" {
		return ErrAddressInvalid
	}
	if err := shipping.ValidatePincode(input.Pincode); err != nil {
		return ErrInvalidPincode
	}
	input.Phone = shipping.SanitizePhone(input.Phone)
	if len(input.Phone) != 10 {
		return ErrInvalidPhone
	}
	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	input.PaymentMethod = NormalizePaymentMethod(input.PaymentMethod)
	if input.PaymentMethod == "" {
		return ErrPaymentMethodInvalid
	}
	return nil
}

// PlaceOrder 创建订单并创建网关订单，订单先于任何资金流转落库
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := normalizePlaceOrderInput(&input); err != nil {
		return nil, err
	}
	items, err := s.cartRepo.ListByUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}
	for _, item := range items {
		if item.Color != nil && item.Quantity > item.Color.Stock {
			return nil, &StockShortfallError{
				ProductName: item.ProductName,
				ColorName:   item.Color.Name,
				Wanted:      item.Quantity,
				Available:   item.Color.Stock,
			}
		}
	}

	cart := NewCartView(items)
	quote, err := s.shippingService.quoteForOrder(ctx, input.UserID, input.Pincode, input.PaymentMethod, items, cart.Subtotal)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	if input.CouponCode != "" {
		applied, err := s.couponService.Apply(input.CouponCode, cart.Subtotal.Decimal)
		if err != nil {
			return nil, err
		}
		discount = applied.DiscountAmount.Decimal
	}

	shippingCharge := models.NewMoneyFromDecimal(quote.Charge)
	grandTotal := models.NewMoneyFromDecimal(cart.Subtotal.Sub(discount).Add(shippingCharge.Decimal))
	amountDueNow := shippingCharge
	if input.PaymentMethod == constants.PaymentMethodRZP {
		amountDueNow = grandTotal
	}

	order := &models.Order{
		OrderNo:             generateOrderNo(),
		UserID:              input.UserID,
		FullName:            input.FullName,
		Phone:               input.Phone,
		Email:               input.Email,
		Address:             input.Address,
		City:                input.City,
		State:               input.State,
		Pincode:             input.Pincode,
		PaymentMethod:       input.PaymentMethod,
		PaymentStatus:       stateUnpaidPending.Payment,
		ShippingStatus:      stateUnpaidPending.Shipping,
		Subtotal:            cart.Subtotal,
		ShippingCharge:      shippingCharge,
		CarrierCharge:       models.NewMoneyFromDecimal(quote.CarrierCharge),
		FallbackCharge:      models.NewMoneyFromDecimal(quote.FallbackCharge),
		CouponCode:          input.CouponCode,
		DiscountAmount:      models.NewMoneyFromDecimal(discount),
		GrandTotal:          grandTotal,
		AmountDueNow:        amountDueNow,
		ShippingServiceName: quote.Service,
		Courier:             quote.Courier,
	}
	orderItems := buildOrderItems(items)
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).Create(order, orderItems)
	})
	if err != nil {
		return nil, err
	}
	log := orderLogger("order_id", order.ID, "order_no", order.OrderNo, "user_id", order.UserID)
	log.Infow("order_created", "payment_method", order.PaymentMethod, "grand_total", order.GrandTotal.String(), "amount_due_now", order.AmountDueNow.String())

	if s.gateway == nil {
		return nil, s.failGateway(order, fmt.Errorf("gateway not configured"))
	}
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderInput{
		Amount:  amountDueNow.Decimal,
		Receipt: order.OrderNo,
		Notes:   map[string]string{"order_id": strconv.FormatUint(uint64(order.ID), 10)},
	})
	if err != nil {
		return nil, s.failGateway(order, err)
	}
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"razorpay_order_id": gatewayOrder.OrderID,
		"updated_at":        time.Now(),
	}); err != nil {
		return nil, err
	}
	order.RazorpayOrderID = gatewayOrder.OrderID
	log.Infow("order_gateway_created", "razorpay_order_id", gatewayOrder.OrderID, "amount_paise", gatewayOrder.AmountPaise)

	return &PlaceOrderResult{
		Order:           order,
		RazorpayOrderID: gatewayOrder.OrderID,
		KeyID:           s.gateway.KeyID(),
		AmountPaise:     gatewayOrder.AmountPaise,
		Currency:        gatewayOrder.Currency,
	}, nil
}

// failGateway 网关建单失败，订单置为 FAILED/CANCELLED
func (s *OrderService) failGateway(order *models.Order, cause error) error {
	orderLogger("order_id", order.ID, "order_no", order.OrderNo).Errorw("order_gateway_failed", "error", cause)
	if err := applyOrderTransition(s.orderRepo, order, stateFailedCancelled, nil); err != nil {
		orderLogger("order_id", order.ID).Errorw("order_gateway_fail_transition_failed", "error", err)
	}
	return fmt.Errorf("%w: %w", ErrPaymentGatewayFailed, cause)
}

// buildOrderItems 购物车行快照为订单项
func buildOrderItems(items []models.CartItem) []models.OrderItem {
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		snapshot := models.Product{Price: item.ActualPrice, DiscountPrice: item.DiscountPrice, Sizes: item.Sizes}
		productID := item.ProductID
		colorID := item.ColorID
		orderItem := models.OrderItem{
			ProductID:                  &productID,
			ColorID:                    &colorID,
			ProductName:                item.ProductName,
			Image:                      item.Image,
			SKU:                        cartItemSKU(item),
			Quantity:                   item.Quantity,
			ActualPrice:                item.ActualPrice,
			DiscountPrice:              item.DiscountPrice,
			PricePerPieceAtPurchase:    snapshot.PricePerPiece(),
			TotalPiecesInSetAtPurchase: snapshot.PieceCount(),
		}
		if item.Color != nil {
			orderItem.ColorName = item.Color.Name
		}
		if item.Product != nil {
			orderItem.WeightKg = item.Product.WeightKg
			orderItem.LengthCm = item.Product.LengthCm
			orderItem.WidthCm = item.Product.WidthCm
			orderItem.HeightCm = item.Product.HeightCm
		}
		orderItems = append(orderItems, orderItem)
	}
	return orderItems
}

// MarkDelivered 人工确认签收，只允许 SHIPPED → DELIVERED
func (s *OrderService) MarkDelivered(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.ShippingStatus != constants.ShippingStatusShipped {
		orderLogger("order_id", order.ID, "shipping_status", order.ShippingStatus).Warnw("order_mark_delivered_rejected")
		return nil, fmt.Errorf("%w: order is %s", ErrOrderStatusInvalid, order.ShippingStatus)
	}
	now := time.Now()
	target := OrderState{Payment: order.PaymentStatus, Shipping: constants.ShippingStatusDelivered}
	if err := applyOrderTransition(s.orderRepo, order, target, map[string]interface{}{"delivered_at": now}); err != nil {
		return nil, err
	}
	order.DeliveredAt = &now
	orderLogger("order_id", order.ID).Infow("order_marked_delivered")
	return order, nil
}

// RetryShipment 发货失败的订单人工放回待发货
func (s *OrderService) RetryShipment(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.ShippingStatus != constants.ShippingStatusShipmentFailed {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderStatusInvalid, order.ShippingStatus)
	}
	target := OrderState{Payment: order.PaymentStatus, Shipping: constants.ShippingStatusReadyToShip}
	if err := applyOrderTransition(s.orderRepo, order, target, nil); err != nil {
		return nil, err
	}
	orderLogger("order_id", order.ID).Infow("order_shipment_reset")
	return order, nil
}

// ListMyOrders 顾客订单列表
func (s *OrderService) ListMyOrders(userID uint, page, pageSize int) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
	})
}

// GetMyOrder 顾客订单详情
func (s *OrderService) GetMyOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersForAdmin 后台发货看板
func (s *OrderService) ListOrdersForAdmin(query AdminOrderQuery) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(repository.OrderListFilter{
		Page:             query.Page,
		PageSize:         query.PageSize,
		PaymentMethod:    NormalizePaymentMethod(query.PaymentMethod),
		ShippingStatuses: shippingStatusesForFilter(strings.ToLower(strings.TrimSpace(query.Filter))),
		OrderNo:          strings.TrimSpace(query.OrderNo),
	})
}

// GetOrderForAdmin 后台订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("SW%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(strconv.FormatInt(n.Int64(), 10))
	}
	return b.String()
}
