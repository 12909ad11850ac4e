package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/queue"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/shipping"
	"github.com/setwear/internal/shipping/ithink"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	trackBatchSize = 10
	// dispatchClaimTTL 发货占用超时，超过后视为进程中断可重新发起
	dispatchClaimTTL = 10 * time.Minute
)

var dispatchableShippingStatuses = []string{
	constants.ShippingStatusReadyToShip,
	constants.ShippingStatusShipmentFailed,
}

// ShipmentTracker 轨迹、面单与取件仓查询（iThink 提供）
type ShipmentTracker interface {
	Track(ctx context.Context, awbs ...string) (map[string]ithink.TrackInfo, error)
	Label(ctx context.Context, pageSize string, awbs ...string) (*ithink.LabelResult, error)
	Warehouses(ctx context.Context) ([]map[string]interface{}, error)
}

// DispatchService 发货服务
type DispatchService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	attemptRepo repository.ShipmentAttemptRepository
	broker      *shipping.Broker
	tracker     ShipmentTracker
	queueClient *queue.Client
}

// NewDispatchService 创建发货服务，tracker 为空表示未启用 iThink
func NewDispatchService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, attemptRepo repository.ShipmentAttemptRepository, broker *shipping.Broker, tracker ShipmentTracker, queueClient *queue.Client) *DispatchService {
	return &DispatchService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		attemptRepo: attemptRepo,
		broker:      broker,
		tracker:     tracker,
		queueClient: queueClient,
	}
}

func shipmentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// DispatchOptions 发货参数
type DispatchOptions struct {
	Courier    string // 为空时在全部快递商中取最低价
	OperatorID uint
}

// DispatchAsyncResult 异步发货结果，队列未启用时同步执行
type DispatchAsyncResult struct {
	Queued bool          `json:"queued"`
	Order  *models.Order `json:"order,omitempty"`
}

// ShipmentLabel 面单
type ShipmentLabel struct {
	URL string `json:"url,omitempty"`
	PDF []byte `json:"-"`
}

func isDispatchable(order *models.Order) bool {
	for _, status := range dispatchableShippingStatuses {
		if order.ShippingStatus == status {
			return true
		}
	}
	return false
}

func (s *DispatchService) loadOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// DispatchShipment 为已支付订单比价并在最便宜的快递商建单，失败时订单进入 SHIPMENT_FAILED
func (s *DispatchService) DispatchShipment(ctx context.Context, orderID uint, opts DispatchOptions) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	log := shipmentLogger("order_id", order.ID, "order_no", order.OrderNo)
	if !isDispatchable(order) {
		log.Warnw("shipment_dispatch_rejected", "shipping_status", order.ShippingStatus)
		return nil, fmt.Errorf("%w: order is %s", ErrOrderStatusInvalid, order.ShippingStatus)
	}
	if s.broker == nil {
		return nil, ErrCourierUnavailable
	}
	if err := s.claimDispatch(order); err != nil {
		log.Warnw("shipment_dispatch_claim_rejected", "error", err)
		return nil, err
	}
	defer s.releaseDispatch(order.ID)

	lines, err := s.orderLines(order)
	if err != nil {
		return nil, err
	}
	declared := shipping.DeclaredValue(order.Subtotal.Decimal)
	paymentMode := shipping.PaymentModeFor(order.PaymentMethod)

	quote, err := s.broker.QuoteWithoutFallback(ctx, shipping.QuoteInput{
		Pincode:     order.Pincode,
		Subtotal:    declared,
		Lines:       lines,
		PaymentMode: paymentMode,
		Courier:     opts.Courier,
	})
	if err != nil {
		return nil, s.failDispatch(order, nil, nil, err, opts)
	}
	courier, err := s.broker.Courier(quote.Courier)
	if err != nil {
		return nil, s.failDispatch(order, quote, nil, err, opts)
	}

	// 货到付款代收金额是顾客仍需支付的商品款
	codAmount := decimal.Zero
	if paymentMode == constants.ShippingPaymentModeCOD {
		codAmount = decimal.Max(order.Subtotal.Sub(order.DiscountAmount.Decimal), decimal.Zero)
	}
	req := shipping.ShipmentRequest{
		OrderRef:  "SW-" + order.OrderNo,
		OrderDate: order.CreatedAt,
		Receiver: shipping.Address{
			Name:    order.FullName,
			Phone:   shipping.SanitizePhone(order.Phone),
			Email:   order.Email,
			Address: order.Address,
			City:    order.City,
			State:   order.State,
			Pincode: order.Pincode,
			Country: "India",
		},
		Items:         lines,
		Package:       quote.Package,
		PaymentMode:   paymentMode,
		CODAmount:     codAmount,
		DeclaredValue: declared,
		Option:        quote.Option,
	}
	log.Infow("shipment_dispatch_started", "courier", quote.Courier, "service", quote.ServiceName, "rate", quote.CarrierCharge.String(), "weight_kg", quote.Package.WeightKg.String())

	result, err := courier.CreateShipment(ctx, req)
	if err == nil && (result == nil || strings.TrimSpace(result.TrackingID) == "") {
		err = fmt.Errorf("%w: no tracking id returned", shipping.ErrShipmentRejected)
	}
	if err != nil {
		return nil, s.failDispatch(order, quote, result, err, opts)
	}

	now := time.Now()
	target := OrderState{Payment: order.PaymentStatus, Shipping: constants.ShippingStatusShipped}
	transitionErr := applyOrderTransition(s.orderRepo, order, target, map[string]interface{}{
		"tracking_id":           result.TrackingID,
		"courier":               quote.Courier,
		"shipping_service_name": firstNonEmptyString(result.ServiceName, quote.ServiceName),
		"shipping_label_url":    result.LabelURL,
		"carrier_charge":        models.NewMoneyFromDecimal(quote.CarrierCharge),
		"shipped_at":            now,
		"shipment_error":        "",
	})
	s.recordAttempt(order.ID, quote, result, constants.ShipmentAttemptSucceeded, "", opts)
	if transitionErr != nil {
		// 快递已建单但订单状态被并发修改，需人工核对
		log.Errorw("shipment_dispatch_state_conflict", "tracking_id", result.TrackingID, "error", transitionErr)
		return nil, transitionErr
	}
	order.TrackingID = result.TrackingID
	order.Courier = quote.Courier
	order.ShippingServiceName = firstNonEmptyString(result.ServiceName, quote.ServiceName)
	order.ShippingLabelURL = result.LabelURL
	order.CarrierCharge = models.NewMoneyFromDecimal(quote.CarrierCharge)
	order.ShippedAt = &now
	order.ShipmentError = ""
	log.Infow("shipment_dispatched", "courier", quote.Courier, "tracking_id", result.TrackingID)
	return order, nil
}

// claimDispatch 以条件更新占用订单，同一订单同一时刻只有一次建单请求到达快递商
func (s *DispatchService) claimDispatch(order *models.Order) error {
	now := time.Now()
	affected, err := s.orderRepo.ClaimDispatch(order.ID, dispatchableShippingStatuses, now, now.Add(-dispatchClaimTTL))
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}
	current, err := s.loadOrder(order.ID)
	if err != nil {
		return err
	}
	if !isDispatchable(current) {
		return fmt.Errorf("%w: order is %s", ErrOrderStatusInvalid, current.ShippingStatus)
	}
	return ErrDispatchInProgress
}

func (s *DispatchService) releaseDispatch(orderID uint) {
	if err := s.orderRepo.ReleaseDispatch(orderID); err != nil {
		shipmentLogger("order_id", orderID).Errorw("shipment_dispatch_release_failed", "error", err)
	}
}

// failDispatch 记录失败尝试并把订单置为 SHIPMENT_FAILED，不写入任何运单数据
func (s *DispatchService) failDispatch(order *models.Order, quote *shipping.Quote, result *shipping.ShipmentResult, cause error, opts DispatchOptions) error {
	courierName := strings.TrimSpace(opts.Courier)
	if quote != nil {
		courierName = quote.Courier
	}
	message := cause.Error()
	shipmentLogger("order_id", order.ID, "courier", courierName).Warnw("shipment_dispatch_failed", "error", message)
	s.recordAttempt(order.ID, quote, result, constants.ShipmentAttemptFailed, message, opts)

	target := OrderState{Payment: order.PaymentStatus, Shipping: constants.ShippingStatusShipmentFailed}
	if err := applyOrderTransition(s.orderRepo, order, target, map[string]interface{}{"shipment_error": message}); err != nil {
		shipmentLogger("order_id", order.ID).Errorw("shipment_fail_transition_failed", "error", err)
	} else {
		order.ShipmentError = message
	}
	return &ShipmentError{OrderID: order.ID, Courier: courierName, Cause: cause}
}

func (s *DispatchService) recordAttempt(orderID uint, quote *shipping.Quote, result *shipping.ShipmentResult, outcome, message string, opts DispatchOptions) {
	if s.attemptRepo == nil {
		return
	}
	attempt := &models.ShipmentAttempt{
		OrderID:      orderID,
		Courier:      strings.TrimSpace(opts.Courier),
		Outcome:      outcome,
		ErrorMessage: message,
	}
	if quote != nil {
		attempt.Courier = quote.Courier
		attempt.ServiceName = quote.ServiceName
		attempt.Rate = models.NewMoneyFromDecimal(quote.CarrierCharge)
	}
	if result != nil {
		attempt.TrackingID = result.TrackingID
		attempt.RequestJSON = models.JSON(logger.Redact(result.Request))
		attempt.ResponseJSON = models.JSON(logger.Redact(result.Response))
	}
	if opts.OperatorID != 0 {
		operatorID := opts.OperatorID
		attempt.OperatorID = &operatorID
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		shipmentLogger("order_id", orderID).Errorw("shipment_attempt_record_failed", "error", err)
	}
}

// orderLines 订单项转为计费行，优先取商品当前重量尺寸，缺失时回退到下单快照
func (s *DispatchService) orderLines(order *models.Order) ([]shipping.Line, error) {
	productIDs := make([]uint, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
	}
	products, err := s.productRepo.ListByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	live := make(map[uint]models.Product, len(products))
	for _, product := range products {
		live[product.ID] = product
	}

	lines := make([]shipping.Line, 0, len(order.Items))
	for _, item := range order.Items {
		line := shipping.Line{
			Name:      item.ProductName,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice().Decimal,
			WeightKg:  item.WeightKg,
			LengthCm:  item.LengthCm,
			WidthCm:   item.WidthCm,
			HeightCm:  item.HeightCm,
		}
		if item.ProductID != nil {
			if product, ok := live[*item.ProductID]; ok {
				line.WeightKg = preferPositive(product.WeightKg, item.WeightKg)
				line.LengthCm = preferPositive(product.LengthCm, item.LengthCm)
				line.WidthCm = preferPositive(product.WidthCm, item.WidthCm)
				line.HeightCm = preferPositive(product.HeightCm, item.HeightCm)
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func preferPositive(value, fallback decimal.Decimal) decimal.Decimal {
	if value.IsPositive() {
		return value
	}
	return fallback
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// DispatchAsync 推送异步发货任务，队列未启用时同步发货
func (s *DispatchService) DispatchAsync(ctx context.Context, orderID uint, opts DispatchOptions) (*DispatchAsyncResult, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if !isDispatchable(order) {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderStatusInvalid, order.ShippingStatus)
	}
	err = s.queueClient.EnqueueShipmentDispatch(queue.ShipmentDispatchPayload{
		OrderID:    orderID,
		Courier:    strings.TrimSpace(opts.Courier),
		OperatorID: opts.OperatorID,
	})
	if errors.Is(err, queue.ErrQueueDisabled) {
		shipped, err := s.DispatchShipment(ctx, orderID, opts)
		if err != nil {
			return nil, err
		}
		return &DispatchAsyncResult{Queued: false, Order: shipped}, nil
	}
	if err != nil {
		shipmentLogger("order_id", orderID).Errorw("shipment_dispatch_enqueue_failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}
	shipmentLogger("order_id", orderID).Infow("shipment_dispatch_enqueued", "courier", opts.Courier)
	return &DispatchAsyncResult{Queued: true, Order: order}, nil
}

// TrackShipment 查询 iThink 运单轨迹并保存最近状态
func (s *DispatchService) TrackShipment(ctx context.Context, orderID uint) (*ithink.TrackInfo, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if s.tracker == nil || order.Courier != constants.CourierIThink || strings.TrimSpace(order.TrackingID) == "" {
		return nil, ErrTrackingUnavailable
	}
	infos, err := s.tracker.Track(ctx, order.TrackingID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackingUnavailable, err)
	}
	info, ok := infos[order.TrackingID]
	if !ok {
		return nil, fmt.Errorf("%w: awb %s not in response", ErrTrackingUnavailable, order.TrackingID)
	}
	s.saveTrackingStatus(order, info)
	return &info, nil
}

func (s *DispatchService) saveTrackingStatus(order *models.Order, info ithink.TrackInfo) {
	status := strings.TrimSpace(info.Status)
	if status == "" || status == order.LastTrackingStatus {
		return
	}
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{"last_tracking_status": status}); err != nil {
		shipmentLogger("order_id", order.ID).Warnw("shipment_tracking_save_failed", "error", err)
		return
	}
	order.LastTrackingStatus = status
}

// SyncTracking 批量刷新已发货订单的轨迹状态，不改变发货状态
func (s *DispatchService) SyncTracking(ctx context.Context, limit int) (int, error) {
	if s.tracker == nil {
		return 0, nil
	}
	ids, err := s.orderRepo.ListIDsByShippingStatus(constants.ShippingStatusShipped, limit)
	if err != nil {
		return 0, err
	}
	byAWB := make(map[string]*models.Order, len(ids))
	awbs := make([]string, 0, len(ids))
	for _, id := range ids {
		order, err := s.orderRepo.GetByID(id)
		if err != nil {
			return 0, err
		}
		if order == nil || order.Courier != constants.CourierIThink || order.TrackingID == "" {
			continue
		}
		byAWB[order.TrackingID] = order
		awbs = append(awbs, order.TrackingID)
	}

	updated := 0
	for start := 0; start < len(awbs); start += trackBatchSize {
		end := start + trackBatchSize
		if end > len(awbs) {
			end = len(awbs)
		}
		infos, err := s.tracker.Track(ctx, awbs[start:end]...)
		if err != nil {
			shipmentLogger("batch_start", start).Warnw("shipment_tracking_sync_failed", "error", err)
			continue
		}
		for awb, info := range infos {
			order, ok := byAWB[awb]
			if !ok {
				continue
			}
			before := order.LastTrackingStatus
			s.saveTrackingStatus(order, info)
			if order.LastTrackingStatus != before {
				updated++
			}
		}
	}
	shipmentLogger().Infow("shipment_tracking_synced", "orders", len(awbs), "updated", updated)
	return updated, nil
}

// ShipmentLabel 获取面单：已保存地址直接返回，否则向 iThink 拉取
func (s *DispatchService) ShipmentLabel(ctx context.Context, orderID uint, pageSize string) (*ShipmentLabel, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	stored := strings.TrimSpace(order.ShippingLabelURL)
	if stored != "" && strings.TrimSpace(pageSize) == "" {
		return &ShipmentLabel{URL: stored}, nil
	}
	if s.tracker != nil && order.Courier == constants.CourierIThink && order.TrackingID != "" {
		label, err := s.tracker.Label(ctx, pageSize, order.TrackingID)
		if err == nil && label != nil {
			if label.URL != "" && stored == "" {
				if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{"shipping_label_url": label.URL}); err != nil {
					shipmentLogger("order_id", order.ID).Warnw("shipment_label_save_failed", "error", err)
				}
			}
			return &ShipmentLabel{URL: label.URL, PDF: label.PDF}, nil
		}
		if stored == "" {
			return nil, fmt.Errorf("%w: %v", ErrLabelUnavailable, err)
		}
		shipmentLogger("order_id", order.ID).Warnw("shipment_label_fetch_failed", "error", err)
	}
	if stored != "" {
		return &ShipmentLabel{URL: stored}, nil
	}
	return nil, ErrLabelUnavailable
}

// ListWarehouses 查询 iThink 取件仓
func (s *DispatchService) ListWarehouses(ctx context.Context) ([]map[string]interface{}, error) {
	if s.tracker == nil {
		return nil, ErrCourierUnavailable
	}
	return s.tracker.Warehouses(ctx)
}

// ListShipmentAttempts 订单的发货尝试记录
func (s *DispatchService) ListShipmentAttempts(orderID uint) ([]models.ShipmentAttempt, error) {
	if _, err := s.loadOrder(orderID); err != nil {
		return nil, err
	}
	return s.attemptRepo.ListByOrder(orderID)
}
