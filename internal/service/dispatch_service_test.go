package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/shipping"
)

func TestDispatchShipmentSuccess(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 41, constants.PaymentMethodRZP)

	shipped, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{OperatorID: 3})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if shipped.ShippingStatus != constants.ShippingStatusShipped || shipped.TrackingID != "AWB1001" {
		t.Fatalf("unexpected shipped order: %s %s", shipped.ShippingStatus, shipped.TrackingID)
	}

	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.ShippedAt == nil || reloaded.ShippingLabelURL == "" || reloaded.Courier != constants.CourierIThink {
		t.Fatalf("shipment fields not saved: %+v", reloaded)
	}
	if !reloaded.CarrierCharge.Equal(dec("55")) {
		t.Fatalf("expected carrier charge 55, got %s", reloaded.CarrierCharge)
	}
	// 顾客已付运费不随发货报价变化
	if !reloaded.ShippingCharge.Equal(order.ShippingCharge.Decimal) || !reloaded.GrandTotal.Equal(order.GrandTotal.Decimal) {
		t.Fatalf("customer totals must not change on dispatch")
	}

	req := s.courier.lastRequest()
	if req.OrderRef != "SW-"+order.OrderNo || req.Receiver.Phone != "9876543210" || req.Receiver.Country != "India" {
		t.Fatalf("unexpected shipment request: %+v", req.Receiver)
	}
	if req.PaymentMode != constants.ShippingPaymentModePrepaid || !req.CODAmount.IsZero() {
		t.Fatalf("prepaid order must not collect cash, got %s %s", req.PaymentMode, req.CODAmount)
	}
	if req.Package.Sets != 2 {
		t.Fatalf("expected 2 sets in package, got %d", req.Package.Sets)
	}

	attempts, err := s.dispatch.ListShipmentAttempts(order.ID)
	if err != nil {
		t.Fatalf("list attempts failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != constants.ShipmentAttemptSucceeded {
		t.Fatalf("expected one succeeded attempt, got %+v", attempts)
	}
	if attempts[0].RequestJSON["access_token"] != "***" {
		t.Fatalf("expected redacted request payload, got %v", attempts[0].RequestJSON)
	}
	if attempts[0].OperatorID == nil || *attempts[0].OperatorID != 3 {
		t.Fatalf("operator not recorded")
	}
}

func TestDispatchShipmentCODCollectsDeclaredValue(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 42, constants.PaymentMethodCOD)
	if order.PaymentStatus != constants.PaymentStatusShippingFeePaid {
		t.Fatalf("unexpected payment status: %s", order.PaymentStatus)
	}

	if _, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	req := s.courier.lastRequest()
	if req.PaymentMode != constants.ShippingPaymentModeCOD || !req.CODAmount.Equal(dec("1998")) {
		t.Fatalf("unexpected cod request: %s %s", req.PaymentMode, req.CODAmount)
	}
	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.PaymentStatus != constants.PaymentStatusShippingFeePaid || reloaded.ShippingStatus != constants.ShippingStatusShipped {
		t.Fatalf("unexpected state: %s/%s", reloaded.PaymentStatus, reloaded.ShippingStatus)
	}
}

func TestDispatchShipmentFailureMarksOrder(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 43, constants.PaymentMethodRZP)
	s.courier.createErr = errors.New("pincode not serviceable")

	_, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{})
	var shipmentErr *ShipmentError
	if !errors.As(err, &shipmentErr) || !errors.Is(err, ErrShipmentFailed) {
		t.Fatalf("expected ShipmentError, got %v", err)
	}

	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.ShippingStatus != constants.ShippingStatusShipmentFailed {
		t.Fatalf("expected SHIPMENT_FAILED, got %s", reloaded.ShippingStatus)
	}
	if reloaded.TrackingID != "" || reloaded.ShipmentError == "" {
		t.Fatalf("failed dispatch must keep tracking empty and record error: %+v", reloaded)
	}
	attempts, err := s.dispatch.ListShipmentAttempts(order.ID)
	if err != nil {
		t.Fatalf("list attempts failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != constants.ShipmentAttemptFailed || attempts[0].ErrorMessage == "" {
		t.Fatalf("expected one failed attempt, got %+v", attempts)
	}

	// SHIPMENT_FAILED 可直接重试
	s.courier.createErr = nil
	shipped, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{})
	if err != nil {
		t.Fatalf("retry dispatch failed: %v", err)
	}
	if shipped.ShipmentError != "" || shipped.ShippingStatus != constants.ShippingStatusShipped {
		t.Fatalf("unexpected retried order: %+v", shipped)
	}
}

func TestDispatchShipmentWithoutTrackingIDFails(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 44, constants.PaymentMethodRZP)
	s.courier.trackingID = ""

	if _, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{}); !errors.Is(err, shipping.ErrShipmentRejected) {
		t.Fatalf("expected ErrShipmentRejected, got %v", err)
	}
	if got := s.reloadOrder(t, order.ID); got.ShippingStatus != constants.ShippingStatusShipmentFailed {
		t.Fatalf("expected SHIPMENT_FAILED, got %s", got.ShippingStatus)
	}
}

func TestDispatchShipmentRejectsWrongState(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "unpaid-dispatch", "999", 10)
	s.addToCart(t, 45, product, color, 1)
	unpaid := s.placeOrder(t, 45, constants.PaymentMethodRZP)

	if _, err := s.dispatch.DispatchShipment(context.Background(), unpaid.ID, DispatchOptions{}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}
	if s.courier.created.Load() != 0 {
		t.Fatalf("courier must not be called for unpaid orders")
	}

	paid := s.paidOrder(t, 46, constants.PaymentMethodRZP)
	if _, err := s.dispatch.DispatchShipment(context.Background(), paid.ID, DispatchOptions{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if _, err := s.dispatch.DispatchShipment(context.Background(), paid.ID, DispatchOptions{}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("shipped order must not be dispatched twice, got %v", err)
	}
	if s.courier.created.Load() != 1 {
		t.Fatalf("expected exactly one shipment created, got %d", s.courier.created.Load())
	}
	if _, err := s.dispatch.DispatchShipment(context.Background(), 9999, DispatchOptions{}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestDispatchShipmentPicksCheapestCourier(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 47, constants.PaymentMethodRZP)

	cheaper := &stubCourier{name: constants.CourierShiport, rate: "48", trackingID: "SHP-77"}
	s.dispatch.broker = newTestBroker(s.courier, cheaper)

	shipped, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if shipped.Courier != constants.CourierShiport || shipped.TrackingID != "SHP-77" {
		t.Fatalf("expected shiport shipment, got %s %s", shipped.Courier, shipped.TrackingID)
	}
	if s.courier.created.Load() != 0 || cheaper.created.Load() != 1 {
		t.Fatalf("only the cheapest courier should create the shipment")
	}
}

func TestDispatchShipmentHonoursCourierOverride(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 48, constants.PaymentMethodRZP)

	cheaper := &stubCourier{name: constants.CourierShiport, rate: "48", trackingID: "SHP-78"}
	s.dispatch.broker = newTestBroker(s.courier, cheaper)

	shipped, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{Courier: constants.CourierIThink})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if shipped.Courier != constants.CourierIThink || cheaper.rateCalls.Load() != 0 {
		t.Fatalf("courier override ignored: %s", shipped.Courier)
	}
}

func TestDispatchAsyncFallsBackToSync(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 49, constants.PaymentMethodRZP)

	result, err := s.dispatch.DispatchAsync(context.Background(), order.ID, DispatchOptions{})
	if err != nil {
		t.Fatalf("dispatch async failed: %v", err)
	}
	if result.Queued || result.Order == nil || result.Order.ShippingStatus != constants.ShippingStatusShipped {
		t.Fatalf("expected synchronous dispatch, got %+v", result)
	}
}

func TestTrackShipmentSavesStatus(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 50, constants.PaymentMethodRZP)

	if _, err := s.dispatch.TrackShipment(context.Background(), order.ID); !errors.Is(err, ErrTrackingUnavailable) {
		t.Fatalf("expected ErrTrackingUnavailable before dispatch, got %v", err)
	}
	if _, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	s.tracker.statuses["AWB1001"] = "In Transit"

	info, err := s.dispatch.TrackShipment(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if info.Status != "In Transit" {
		t.Fatalf("unexpected status: %s", info.Status)
	}
	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.LastTrackingStatus != "In Transit" || reloaded.ShippingStatus != constants.ShippingStatusShipped {
		t.Fatalf("tracking must only update last status: %s/%s", reloaded.LastTrackingStatus, reloaded.ShippingStatus)
	}
}

func TestSyncTrackingUpdatesShippedOrders(t *testing.T) {
	s := newTestStore(t)
	first := s.paidOrder(t, 51, constants.PaymentMethodRZP)
	if _, err := s.dispatch.DispatchShipment(context.Background(), first.ID, DispatchOptions{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	s.courier.trackingID = "AWB1002"
	second := s.paidOrder(t, 52, constants.PaymentMethodRZP)
	if _, err := s.dispatch.DispatchShipment(context.Background(), second.ID, DispatchOptions{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	s.tracker.statuses["AWB1001"] = "Delivered"
	s.tracker.statuses["AWB1002"] = "Picked Up"

	updated, err := s.dispatch.SyncTracking(context.Background(), 50)
	if err != nil {
		t.Fatalf("sync tracking failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updates, got %d", updated)
	}
	if s.tracker.trackCalls.Load() != 1 {
		t.Fatalf("expected one batched track call, got %d", s.tracker.trackCalls.Load())
	}
	again, err := s.dispatch.SyncTracking(context.Background(), 50)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("unchanged statuses should not count, got %d", again)
	}
}

func TestSyncTrackingWithoutTracker(t *testing.T) {
	db := setupServiceTest(t)
	dispatch := NewDispatchService(repository.NewOrderRepository(db), repository.NewProductRepository(db), repository.NewShipmentAttemptRepository(db), newTestBroker(), nil, nil)

	updated, err := dispatch.SyncTracking(context.Background(), 10)
	if err != nil || updated != 0 {
		t.Fatalf("expected no-op sync, got %d %v", updated, err)
	}
	if _, err := dispatch.ListWarehouses(context.Background()); !errors.Is(err, ErrCourierUnavailable) {
		t.Fatalf("expected ErrCourierUnavailable, got %v", err)
	}
}

func TestShipmentLabel(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 53, constants.PaymentMethodRZP)
	if _, err := s.dispatch.ShipmentLabel(context.Background(), order.ID, ""); !errors.Is(err, ErrLabelUnavailable) {
		t.Fatalf("expected ErrLabelUnavailable before dispatch, got %v", err)
	}
	if _, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	stored, err := s.dispatch.ShipmentLabel(context.Background(), order.ID, "")
	if err != nil {
		t.Fatalf("label failed: %v", err)
	}
	if stored.URL != "https://labels.example/AWB1001.pdf" {
		t.Fatalf("unexpected stored label: %s", stored.URL)
	}

	s.tracker.labelURL = "https://labels.example/a6.pdf"
	resized, err := s.dispatch.ShipmentLabel(context.Background(), order.ID, constants.LabelPageA6)
	if err != nil {
		t.Fatalf("label failed: %v", err)
	}
	if resized.URL != "https://labels.example/a6.pdf" {
		t.Fatalf("expected fetched label, got %s", resized.URL)
	}
}

func TestDispatchShipmentConcurrentCallsBookOneWaybill(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 61, constants.PaymentMethodRZP)
	s.courier.delay = 100 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{OperatorID: uint(i + 1)})
		}(i)
	}
	wg.Wait()

	if s.courier.created.Load() != 1 {
		t.Fatalf("expected exactly one courier booking, got %d", s.courier.created.Load())
	}
	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDispatchInProgress), errors.Is(err, ErrOrderStatusInvalid):
		default:
			t.Fatalf("unexpected dispatch error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected one successful dispatch, got %d", succeeded)
	}
	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.ShippingStatus != constants.ShippingStatusShipped || reloaded.TrackingID != "AWB1001" {
		t.Fatalf("unexpected order state: %s %s", reloaded.ShippingStatus, reloaded.TrackingID)
	}
	if reloaded.DispatchingAt != nil {
		t.Fatalf("dispatch claim must be released")
	}
}

func TestDispatchShipmentInProgressIsRejected(t *testing.T) {
	s := newTestStore(t)
	order := s.paidOrder(t, 62, constants.PaymentMethodRZP)
	now := time.Now()
	if affected, err := s.orderRepo.ClaimDispatch(order.ID, dispatchableShippingStatuses, now, now.Add(-dispatchClaimTTL)); err != nil || affected != 1 {
		t.Fatalf("claim failed: affected=%d err=%v", affected, err)
	}

	if _, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{}); !errors.Is(err, ErrDispatchInProgress) {
		t.Fatalf("expected ErrDispatchInProgress, got %v", err)
	}
	if s.courier.created.Load() != 0 {
		t.Fatalf("courier must not be called while another dispatch holds the order")
	}

	// 失败路径同样释放占用，订单可直接重试
	if err := s.orderRepo.ReleaseDispatch(order.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	s.courier.createErr = errors.New("pincode not serviceable")
	if _, err := s.dispatch.DispatchShipment(context.Background(), order.ID, DispatchOptions{}); !errors.Is(err, ErrShipmentFailed) {
		t.Fatalf("expected ErrShipmentFailed, got %v", err)
	}
	if got := s.reloadOrder(t, order.ID); got.DispatchingAt != nil || got.ShippingStatus != constants.ShippingStatusShipmentFailed {
		t.Fatalf("failed dispatch must release the claim: %+v", got)
	}
}
