package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/payment/razorpay"
	"github.com/setwear/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService 支付确认服务，结账回调与 webhook 汇聚到 ConfirmPayment
type PaymentService struct {
	orderRepo repository.OrderRepository
	colorRepo repository.ProductColorRepository
	cartRepo  repository.CartRepository
	gateway   *razorpay.Client
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo repository.OrderRepository, colorRepo repository.ProductColorRepository, cartRepo repository.CartRepository, gateway *razorpay.Client) *PaymentService {
	return &PaymentService{
		orderRepo: orderRepo,
		colorRepo: colorRepo,
		cartRepo:  cartRepo,
		gateway:   gateway,
	}
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// ConfirmInput 支付确认输入，OrderID 与 RazorpayOrderID 二选一
type ConfirmInput struct {
	OrderID         uint
	RazorpayOrderID string
	PaymentID       string
	Source          string
}

// ConfirmResult 支付确认结果
type ConfirmResult struct {
	Order            *models.Order        `json:"order"`
	AlreadyProcessed bool                 `json:"already_processed"`
	StockFailed      bool                 `json:"stock_failed"`
	Shortfall        *StockShortfallError `json:"-"`
}

// CheckoutCallbackInput 结账回调参数
type CheckoutCallbackInput struct {
	UserID            uint
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

// WebhookOutcome webhook 处理结果，Status 即返回给网关的 HTTP 状态码
type WebhookOutcome struct {
	Status  int            `json:"-"`
	Event   string         `json:"event"`
	Message string         `json:"message"`
	Result  *ConfirmResult `json:"-"`
}

// ConfirmPayment 确认支付：锁定订单、逐行条件扣减库存、推进状态，任一行库存不足则整单回滚
func (s *PaymentService) ConfirmPayment(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	orderID, err := s.resolveOrderID(input)
	if err != nil {
		return nil, err
	}
	log := paymentLogger("order_id", orderID, "payment_id", input.PaymentID, "source", input.Source)

	result := &ConfirmResult{}
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		result.Order = order
		if orderStateOf(order) != stateUnpaidPending {
			result.AlreadyProcessed = true
			return nil
		}

		colorRepo := s.colorRepo.WithTx(tx)
		for _, item := range order.Items {
			if item.ColorID == nil || item.Quantity <= 0 {
				continue
			}
			affected, err := colorRepo.DecrementStock(*item.ColorID, item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				available := 0
				if color, err := colorRepo.GetByID(*item.ColorID); err == nil && color != nil {
					available = color.Stock
				}
				return &StockShortfallError{
					ProductName: item.ProductName,
					ColorName:   item.ColorName,
					Wanted:      item.Quantity,
					Available:   available,
				}
			}
		}

		target := statePaidReady
		if order.PaymentMethod == constants.PaymentMethodCOD {
			target = stateFeePaidReady
		}
		now := time.Now()
		if err := applyOrderTransition(orderRepo, order, target, map[string]interface{}{
			"payment_id": input.PaymentID,
			"paid_at":    now,
		}); err != nil {
			return err
		}
		order.PaymentID = input.PaymentID
		order.PaidAt = &now
		return nil
	})

	var shortfall *StockShortfallError
	if errors.As(err, &shortfall) {
		log.Warnw("order_stock_insufficient", "error", shortfall.Error())
		return s.failOnShortfall(ctx, orderID, input.PaymentID, shortfall)
	}
	if err != nil {
		return nil, err
	}
	if result.AlreadyProcessed {
		log.Infow("payment_confirm_already_processed", "payment_status", result.Order.PaymentStatus, "shipping_status", result.Order.ShippingStatus)
		return result, nil
	}

	log.Infow("payment_confirmed", "payment_status", result.Order.PaymentStatus)
	if err := s.cartRepo.ClearByUser(result.Order.UserID); err != nil {
		log.Warnw("payment_cart_clear_failed", "error", err)
	}
	return result, nil
}

// failOnShortfall 库存不足时单独事务把订单置为 FAILED/CANCELLED，购物车保留
func (s *PaymentService) failOnShortfall(ctx context.Context, orderID uint, paymentID string, shortfall *StockShortfallError) (*ConfirmResult, error) {
	result := &ConfirmResult{StockFailed: true, Shortfall: shortfall}
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		result.Order = order
		if orderStateOf(order) != stateUnpaidPending {
			result.StockFailed = false
			result.AlreadyProcessed = true
			return nil
		}
		updates := map[string]interface{}{"shipment_error": shortfall.Error()}
		if paymentID != "" {
			updates["payment_id"] = paymentID
		}
		if err := applyOrderTransition(orderRepo, order, stateFailedCancelled, updates); err != nil {
			return err
		}
		order.ShipmentError = shortfall.Error()
		order.PaymentID = paymentID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) resolveOrderID(input ConfirmInput) (uint, error) {
	if input.OrderID != 0 {
		return input.OrderID, nil
	}
	order, err := s.orderRepo.GetByRazorpayOrderID(input.RazorpayOrderID)
	if err != nil {
		return 0, err
	}
	if order == nil {
		return 0, ErrOrderNotFound
	}
	return order.ID, nil
}

// HandleCheckoutCallback 校验结账签名后确认支付
func (s *PaymentService) HandleCheckoutCallback(ctx context.Context, input CheckoutCallbackInput) (*ConfirmResult, error) {
	input.RazorpayOrderID = strings.TrimSpace(input.RazorpayOrderID)
	input.RazorpayPaymentID = strings.TrimSpace(input.RazorpayPaymentID)
	if input.RazorpayOrderID == "" || input.RazorpayPaymentID == "" {
		return nil, ErrPaymentInvalid
	}
	if s.gateway == nil {
		return nil, ErrPaymentGatewayFailed
	}
	if err := s.gateway.VerifyPaymentSignature(input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature); err != nil {
		paymentLogger("razorpay_order_id", input.RazorpayOrderID).Warnw("payment_callback_signature_invalid", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentSignature, err)
	}
	order, err := s.orderRepo.GetByRazorpayOrderID(input.RazorpayOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (input.UserID != 0 && order.UserID != input.UserID) {
		return nil, ErrOrderNotFound
	}
	return s.ConfirmPayment(ctx, ConfirmInput{
		OrderID:   order.ID,
		PaymentID: input.RazorpayPaymentID,
		Source:    constants.PaymentSourceCallback,
	})
}

// HandleWebhook 处理 Razorpay webhook，状态码是对网关的约定
func (s *PaymentService) HandleWebhook(ctx context.Context, signature string, body []byte) *WebhookOutcome {
	if strings.TrimSpace(signature) == "" {
		return &WebhookOutcome{Status: http.StatusBadRequest, Message: "missing signature"}
	}
	if s.gateway == nil {
		return &WebhookOutcome{Status: http.StatusInternalServerError, Message: "gateway not configured"}
	}
	if err := s.gateway.VerifyWebhookSignature(body, signature); err != nil {
		if errors.Is(err, razorpay.ErrConfigInvalid) {
			paymentLogger().Errorw("payment_webhook_not_configured", "error", err)
			return &WebhookOutcome{Status: http.StatusInternalServerError, Message: "webhook not configured"}
		}
		paymentLogger().Warnw("payment_webhook_signature_invalid")
		return &WebhookOutcome{Status: http.StatusForbidden, Message: "invalid signature"}
	}
	event, err := razorpay.ParseWebhook(body)
	if err != nil {
		return &WebhookOutcome{Status: http.StatusBadRequest, Message: "invalid payload"}
	}

	outcome := &WebhookOutcome{Event: event.Event}
	log := paymentLogger("event", event.Event, "razorpay_order_id", event.OrderID, "payment_id", event.PaymentID)
	switch event.Event {
	case constants.RazorpayEventPaymentCaptured, constants.RazorpayEventPaymentFailed:
	default:
		log.Debugw("payment_webhook_ignored")
		outcome.Status = http.StatusOK
		outcome.Message = "ignored"
		return outcome
	}

	if event.OrderID == "" {
		outcome.Status = http.StatusBadRequest
		outcome.Message = "missing order_id"
		return outcome
	}
	order, err := s.orderRepo.GetByRazorpayOrderID(event.OrderID)
	if err != nil {
		log.Errorw("payment_webhook_order_lookup_failed", "error", err)
		outcome.Status = http.StatusInternalServerError
		outcome.Message = "order lookup failed"
		return outcome
	}
	if order == nil {
		outcome.Status = http.StatusNotFound
		outcome.Message = "order not found"
		return outcome
	}

	if event.Event == constants.RazorpayEventPaymentFailed {
		// 顾客可重新支付，订单保持 UNPAID/PENDING
		log.Warnw("payment_webhook_payment_failed", "order_id", order.ID, "payment_status", order.PaymentStatus, "reason", event.ErrorDesc)
		outcome.Status = http.StatusOK
		outcome.Message = "payment failure recorded"
		return outcome
	}

	result, err := s.ConfirmPayment(ctx, ConfirmInput{
		OrderID:   order.ID,
		PaymentID: event.PaymentID,
		Source:    constants.PaymentSourceWebhook,
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			outcome.Status = http.StatusNotFound
			outcome.Message = "order not found"
			return outcome
		}
		log.Errorw("payment_webhook_confirm_failed", "order_id", order.ID, "error", err)
		outcome.Status = http.StatusInternalServerError
		outcome.Message = "confirm failed"
		return outcome
	}
	outcome.Status = http.StatusOK
	outcome.Result = result
	switch {
	case result.StockFailed:
		outcome.Message = "stock insufficient"
	case result.AlreadyProcessed:
		outcome.Message = "already processed"
	default:
		outcome.Message = "ok"
	}
	return outcome
}
