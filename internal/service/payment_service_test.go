package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/payment/razorpay"
)

func webhookBody(t *testing.T, event, razorpayOrderID, paymentID string) []byte {
	t.Helper()
	entity := map[string]interface{}{
		"id":     paymentID,
		"amount": 205800,
		"status": "captured",
	}
	if razorpayOrderID != "" {
		entity["order_id"] = razorpayOrderID
	}
	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{"entity": entity},
		},
	})
	if err != nil {
		t.Fatalf("marshal webhook failed: %v", err)
	}
	return body
}

func TestConfirmPaymentPrepaidDecrementsStockAndClearsCart(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "linen-set", "999", 5)
	s.addToCart(t, 7, product, color, 2)
	order := s.placeOrder(t, 7, constants.PaymentMethodRZP)

	result, err := s.payments.ConfirmPayment(context.Background(), ConfirmInput{
		RazorpayOrderID: order.RazorpayOrderID,
		PaymentID:       "pay_abc",
		Source:          constants.PaymentSourceWebhook,
	})
	if err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if result.AlreadyProcessed || result.StockFailed {
		t.Fatalf("unexpected result flags: %+v", result)
	}

	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.PaymentStatus != constants.PaymentStatusPaid || reloaded.ShippingStatus != constants.ShippingStatusReadyToShip {
		t.Fatalf("unexpected state: %s/%s", reloaded.PaymentStatus, reloaded.ShippingStatus)
	}
	if reloaded.PaymentID != "pay_abc" || reloaded.PaidAt == nil {
		t.Fatalf("payment fields not saved: %+v", reloaded)
	}
	if got := s.stockOf(t, color.ID); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
	view, err := s.cart.List(7)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected cart cleared, got %d items", len(view.Items))
	}
}

func TestConfirmPaymentCODMarksShippingFeePaid(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "cod-set", "1200", 4)
	s.addToCart(t, 8, product, color, 1)
	order := s.placeOrder(t, 8, constants.PaymentMethodCOD)

	if _, err := s.payments.ConfirmPayment(context.Background(), ConfirmInput{OrderID: order.ID, PaymentID: "pay_fee"}); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.PaymentStatus != constants.PaymentStatusShippingFeePaid || reloaded.ShippingStatus != constants.ShippingStatusReadyToShip {
		t.Fatalf("unexpected state: %s/%s", reloaded.PaymentStatus, reloaded.ShippingStatus)
	}
	if got := s.stockOf(t, color.ID); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "twice-set", "999", 5)
	s.addToCart(t, 9, product, color, 2)
	order := s.placeOrder(t, 9, constants.PaymentMethodRZP)

	input := ConfirmInput{OrderID: order.ID, PaymentID: "pay_once"}
	if _, err := s.payments.ConfirmPayment(context.Background(), input); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	second, err := s.payments.ConfirmPayment(context.Background(), input)
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatalf("expected already processed on second confirm")
	}
	if got := s.stockOf(t, color.ID); got != 3 {
		t.Fatalf("expected stock decremented once, got %d", got)
	}
}

func TestConfirmPaymentConcurrentDecrementsOnce(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "race-set", "999", 5)
	s.addToCart(t, 10, product, color, 2)
	order := s.placeOrder(t, 10, constants.PaymentMethodRZP)

	var wg sync.WaitGroup
	results := make([]*ConfirmResult, 2)
	errs := make([]error, 2)
	sources := []string{constants.PaymentSourceCallback, constants.PaymentSourceWebhook}
	for i := range sources {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = s.payments.ConfirmPayment(context.Background(), ConfirmInput{
				OrderID:   order.ID,
				PaymentID: "pay_race",
				Source:    sources[idx],
			})
		}(i)
	}
	wg.Wait()

	processed := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("confirm %d failed: %v", i, errs[i])
		}
		if results[i].AlreadyProcessed {
			processed++
		}
	}
	if processed != 1 {
		t.Fatalf("expected exactly one already-processed result, got %d", processed)
	}
	if got := s.stockOf(t, color.ID); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
}

func TestConfirmPaymentShortfallRollsBackAllLines(t *testing.T) {
	s := newTestStore(t)
	first, firstColor := s.createProduct(t, "first-set", "800", 5)
	second, secondColor := s.createProduct(t, "second-set", "900", 3)
	s.addToCart(t, 11, first, firstColor, 2)
	s.addToCart(t, 11, second, secondColor, 2)
	order := s.placeOrder(t, 11, constants.PaymentMethodRZP)

	// 下单后库存被其他订单消耗
	if _, err := s.catalog.SetColorStock(secondColor.ID, 1); err != nil {
		t.Fatalf("set stock failed: %v", err)
	}

	result, err := s.payments.ConfirmPayment(context.Background(), ConfirmInput{OrderID: order.ID, PaymentID: "pay_short"})
	if err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if !result.StockFailed || result.Shortfall == nil {
		t.Fatalf("expected stock failure, got %+v", result)
	}
	if result.Shortfall.Wanted != 2 || result.Shortfall.Available != 1 {
		t.Fatalf("unexpected shortfall: %+v", result.Shortfall)
	}
	if !errors.Is(result.Shortfall, ErrStockInsufficient) {
		t.Fatalf("shortfall should unwrap to ErrStockInsufficient")
	}

	if got := s.stockOf(t, firstColor.ID); got != 5 {
		t.Fatalf("expected first line stock untouched, got %d", got)
	}
	if got := s.stockOf(t, secondColor.ID); got != 1 {
		t.Fatalf("expected second line stock untouched, got %d", got)
	}
	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.PaymentStatus != constants.PaymentStatusFailed || reloaded.ShippingStatus != constants.ShippingStatusCancelled {
		t.Fatalf("unexpected state: %s/%s", reloaded.PaymentStatus, reloaded.ShippingStatus)
	}
	if reloaded.ShipmentError == "" || reloaded.PaymentID != "pay_short" {
		t.Fatalf("expected failure reason and payment id recorded: %+v", reloaded)
	}
	view, err := s.cart.List(11)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected cart kept, got %d items", len(view.Items))
	}
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	s := newTestStore(t)
	_, err := s.payments.ConfirmPayment(context.Background(), ConfirmInput{RazorpayOrderID: "order_missing", PaymentID: "pay_x"})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleCheckoutCallback(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "callback-set", "999", 5)
	s.addToCart(t, 12, product, color, 1)
	order := s.placeOrder(t, 12, constants.PaymentMethodRZP)

	_, err := s.payments.HandleCheckoutCallback(context.Background(), CheckoutCallbackInput{
		UserID:            12,
		RazorpayOrderID:   order.RazorpayOrderID,
		RazorpayPaymentID: "pay_cb",
		RazorpaySignature: "deadbeef",
	})
	if !errors.Is(err, ErrPaymentSignature) {
		t.Fatalf("expected ErrPaymentSignature, got %v", err)
	}
	if got := s.reloadOrder(t, order.ID); got.PaymentStatus != constants.PaymentStatusUnpaid {
		t.Fatalf("order should stay unpaid after bad signature, got %s", got.PaymentStatus)
	}

	signature := razorpay.Sign(testKeySecret, []byte(order.RazorpayOrderID+"|pay_cb"))
	_, err = s.payments.HandleCheckoutCallback(context.Background(), CheckoutCallbackInput{
		UserID:            99,
		RazorpayOrderID:   order.RazorpayOrderID,
		RazorpayPaymentID: "pay_cb",
		RazorpaySignature: signature,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for other user, got %v", err)
	}

	result, err := s.payments.HandleCheckoutCallback(context.Background(), CheckoutCallbackInput{
		UserID:            12,
		RazorpayOrderID:   order.RazorpayOrderID,
		RazorpayPaymentID: "pay_cb",
		RazorpaySignature: signature,
	})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Order.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("expected PAID, got %s", result.Order.PaymentStatus)
	}
}

func TestHandleCheckoutCallbackMissingFields(t *testing.T) {
	s := newTestStore(t)
	_, err := s.payments.HandleCheckoutCallback(context.Background(), CheckoutCallbackInput{RazorpayOrderID: "order_1"})
	if !errors.Is(err, ErrPaymentInvalid) {
		t.Fatalf("expected ErrPaymentInvalid, got %v", err)
	}
}

func TestHandleWebhookOutcomes(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "hook-set", "999", 5)
	s.addToCart(t, 13, product, color, 1)
	order := s.placeOrder(t, 13, constants.PaymentMethodRZP)

	sign := func(body []byte) string { return razorpay.Sign(testWebhookSecret, body) }
	captured := webhookBody(t, constants.RazorpayEventPaymentCaptured, order.RazorpayOrderID, "pay_hook")
	notJSON := []byte("not-json")
	noOrder := webhookBody(t, constants.RazorpayEventPaymentCaptured, "", "pay_hook")
	unknown := webhookBody(t, constants.RazorpayEventPaymentCaptured, "order_unknown", "pay_hook")
	refund := webhookBody(t, "refund.processed", order.RazorpayOrderID, "pay_hook")
	failed := webhookBody(t, constants.RazorpayEventPaymentFailed, order.RazorpayOrderID, "pay_failed")

	cases := []struct {
		name      string
		body      []byte
		signature string
		status    int
		message   string
	}{
		{name: "missing signature", body: captured, signature: "", status: http.StatusBadRequest},
		{name: "bad signature", body: captured, signature: "00ff", status: http.StatusForbidden},
		{name: "malformed body", body: notJSON, signature: sign(notJSON), status: http.StatusBadRequest},
		{name: "missing order id", body: noOrder, signature: sign(noOrder), status: http.StatusBadRequest},
		{name: "unknown order", body: unknown, signature: sign(unknown), status: http.StatusNotFound},
		{name: "ignored event", body: refund, signature: sign(refund), status: http.StatusOK, message: "ignored"},
		{name: "payment failed", body: failed, signature: sign(failed), status: http.StatusOK, message: "payment failure recorded"},
		{name: "captured", body: captured, signature: sign(captured), status: http.StatusOK, message: "ok"},
		{name: "captured replay", body: captured, signature: sign(captured), status: http.StatusOK, message: "already processed"},
	}
	for _, tc := range cases {
		outcome := s.payments.HandleWebhook(context.Background(), tc.signature, tc.body)
		if outcome.Status != tc.status {
			t.Fatalf("%s: expected status %d, got %d (%s)", tc.name, tc.status, outcome.Status, outcome.Message)
		}
		if tc.message != "" && outcome.Message != tc.message {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.message, outcome.Message)
		}
		if tc.name == "payment failed" {
			reloaded := s.reloadOrder(t, order.ID)
			if reloaded.PaymentStatus != constants.PaymentStatusUnpaid || reloaded.ShippingStatus != constants.ShippingStatusPending {
				t.Fatalf("payment.failed must leave order unpaid, got %s/%s", reloaded.PaymentStatus, reloaded.ShippingStatus)
			}
		}
	}

	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.PaymentStatus != constants.PaymentStatusPaid || reloaded.PaymentID != "pay_hook" {
		t.Fatalf("expected order paid by webhook, got %s (%s)", reloaded.PaymentStatus, reloaded.PaymentID)
	}
	if got := s.stockOf(t, color.ID); got != 4 {
		t.Fatalf("expected stock 4 after replayed webhook, got %d", got)
	}
}

func TestHandleWebhookWithoutSecret(t *testing.T) {
	gateway := razorpay.New(razorpay.Config{KeyID: "rzp_test_key", KeySecret: testKeySecret})
	payments := NewPaymentService(nil, nil, nil, gateway)

	outcome := payments.HandleWebhook(context.Background(), "abc", []byte(`{"event":"payment.captured"}`))
	if outcome.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 when webhook secret missing, got %d", outcome.Status)
	}
}

func TestHandleWebhookStockShortfall(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "scarce-set", "999", 2)
	s.addToCart(t, 14, product, color, 2)
	order := s.placeOrder(t, 14, constants.PaymentMethodRZP)
	if _, err := s.catalog.SetColorStock(color.ID, 0); err != nil {
		t.Fatalf("set stock failed: %v", err)
	}

	body := webhookBody(t, constants.RazorpayEventPaymentCaptured, order.RazorpayOrderID, "pay_scarce")
	outcome := s.payments.HandleWebhook(context.Background(), razorpay.Sign(testWebhookSecret, body), body)
	if outcome.Status != http.StatusOK || outcome.Message != "stock insufficient" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	reloaded := s.reloadOrder(t, order.ID)
	if reloaded.ShippingStatus != constants.ShippingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", reloaded.ShippingStatus)
	}
	if got := s.stockOf(t, color.ID); got != 0 {
		t.Fatalf("stock must never go negative, got %d", got)
	}
}
