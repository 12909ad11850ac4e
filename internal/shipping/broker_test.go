package shipping

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeCourier struct {
	name    string
	options []RateOption
	err     error
	calls   atomic.Int32
	lastReq RateRequest
}

func (f *fakeCourier) Name() string { return f.name }

func (f *fakeCourier) Rates(_ context.Context, req RateRequest) ([]RateOption, error) {
	f.calls.Add(1)
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.options, nil
}

func (f *fakeCourier) CreateShipment(context.Context, ShipmentRequest) (*ShipmentResult, error) {
	return nil, errors.New("not implemented")
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func testDefaults() Dimensions {
	return Dimensions{WeightKg: dec("0.5"), LengthCm: dec("30"), WidthCm: dec("25"), HeightCm: dec("5")}
}

func newTestBroker(couriers ...Courier) *Broker {
	return NewBroker(BrokerConfig{
		OriginPincode: "421302",
		Fallback:      FallbackRule{PerKg: dec("60"), MinCharge: dec("40")},
		Defaults:      testDefaults(),
	}, couriers...)
}

func halfKgLine(qty int) Line {
	return Line{Name: "Kurti Set", Quantity: qty, UnitPrice: dec("999"), WeightKg: dec("0.5")}
}

func TestQuoteCarrierAboveFallback(t *testing.T) {
	courier := &fakeCourier{name: "ithink", options: []RateOption{{Courier: "ithink", ServiceName: "Delhivery", Rate: dec("50")}}}
	broker := newTestBroker(courier)

	quote, err := broker.Quote(context.Background(), QuoteInput{Pincode: "560001", Subtotal: dec("999"), Lines: []Line{halfKgLine(1)}, PaymentMode: "prepaid"})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.FallbackCharge.Equal(dec("40")) {
		t.Fatalf("fallback want 40 got %s", quote.FallbackCharge)
	}
	if !quote.CarrierCharge.Equal(dec("50")) {
		t.Fatalf("carrier want 50 got %s", quote.CarrierCharge)
	}
	if !quote.TotalCharge.Equal(dec("50")) {
		t.Fatalf("total want 50 got %s", quote.TotalCharge)
	}
}

func TestQuoteFallbackDominatesAsQuantityGrows(t *testing.T) {
	courier := &fakeCourier{name: "ithink", options: []RateOption{{Courier: "ithink", ServiceName: "Delhivery", Rate: dec("50")}}}
	broker := newTestBroker(courier)

	quote, err := broker.Quote(context.Background(), QuoteInput{Pincode: "560001", Subtotal: dec("3996"), Lines: []Line{halfKgLine(4)}, PaymentMode: "cod"})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.Package.ActualWeightKg.Equal(dec("2")) {
		t.Fatalf("actual weight want 2 got %s", quote.Package.ActualWeightKg)
	}
	if !quote.FallbackCharge.Equal(dec("120")) {
		t.Fatalf("fallback want 120 got %s", quote.FallbackCharge)
	}
	if !quote.TotalCharge.Equal(dec("120")) {
		t.Fatalf("total want 120 got %s", quote.TotalCharge)
	}
	if !quote.CarrierCharge.Equal(dec("50")) {
		t.Fatalf("carrier charge should be kept for audit, got %s", quote.CarrierCharge)
	}
}

func TestQuoteWithoutFallbackChargesCarrierRate(t *testing.T) {
	courier := &fakeCourier{name: "ithink", options: []RateOption{{Courier: "ithink", ServiceName: "Delhivery", Rate: dec("50")}}}
	broker := newTestBroker(courier)

	quote, err := broker.QuoteWithoutFallback(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(4)}})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.TotalCharge.Equal(dec("50")) || !quote.FallbackCharge.IsZero() {
		t.Fatalf("unexpected charges total=%s fallback=%s", quote.TotalCharge, quote.FallbackCharge)
	}
}

func TestQuoteSelectsCheapestAcrossCouriers(t *testing.T) {
	ithink := &fakeCourier{name: "ithink", options: []RateOption{
		{Courier: "ithink", ServiceName: "Delhivery", Rate: dec("82")},
		{Courier: "ithink", ServiceName: "Xpressbees", Rate: dec("0")},
	}}
	shiport := &fakeCourier{name: "shiport", options: []RateOption{
		{Courier: "shiport", ServiceName: "Bluedart", Rate: dec("64.5")},
		{Courier: "shiport", ServiceName: "Ekart", Rate: dec("71")},
	}}
	broker := newTestBroker(ithink, shiport)

	quote, err := broker.QuoteWithoutFallback(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(1)}, PaymentMode: "prepaid"})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.Courier != "shiport" || quote.ServiceName != "Bluedart" {
		t.Fatalf("cheapest want shiport/Bluedart got %s/%s", quote.Courier, quote.ServiceName)
	}
	if ithink.lastReq.FromPincode != "421302" || ithink.lastReq.PaymentMode != "prepaid" {
		t.Fatalf("unexpected rate request: %+v", ithink.lastReq)
	}
}

func TestQuoteToleratesSingleCourierFailure(t *testing.T) {
	broken := &fakeCourier{name: "ithink", err: errors.New("upstream timeout")}
	healthy := &fakeCourier{name: "shiport", options: []RateOption{{Courier: "shiport", ServiceName: "Ekart", Rate: dec("71")}}}
	broker := newTestBroker(broken, healthy)

	quote, err := broker.QuoteWithoutFallback(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(1)}})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.Courier != "shiport" {
		t.Fatalf("courier want shiport got %s", quote.Courier)
	}
}

func TestQuoteAllCouriersFailed(t *testing.T) {
	upstream := errors.New("invalid access token")
	broker := newTestBroker(&fakeCourier{name: "ithink", err: upstream}, &fakeCourier{name: "shiport", err: errors.New("boom")})

	_, err := broker.Quote(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(1)}})
	if !errors.Is(err, ErrRateUnavailable) || !errors.Is(err, upstream) {
		t.Fatalf("want ErrRateUnavailable wrapping first error, got %v", err)
	}
}

func TestQuoteNoPositiveRate(t *testing.T) {
	courier := &fakeCourier{name: "ithink", options: []RateOption{{Courier: "ithink", Rate: dec("0")}, {Courier: "ithink", Rate: dec("-5")}}}
	broker := newTestBroker(courier)

	_, err := broker.Quote(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(1)}})
	if !errors.Is(err, ErrNoValidRate) {
		t.Fatalf("want ErrNoValidRate got %v", err)
	}
}

func TestQuoteValidationSkipsCouriers(t *testing.T) {
	courier := &fakeCourier{name: "ithink", options: []RateOption{{Courier: "ithink", Rate: dec("50")}}}
	broker := newTestBroker(courier)

	if _, err := broker.Quote(context.Background(), QuoteInput{Pincode: "56001", Lines: []Line{halfKgLine(1)}}); !errors.Is(err, ErrInvalidPincode) {
		t.Fatalf("want ErrInvalidPincode got %v", err)
	}
	if _, err := broker.Quote(context.Background(), QuoteInput{Pincode: "560001"}); !errors.Is(err, ErrEmptyShipment) {
		t.Fatalf("want ErrEmptyShipment got %v", err)
	}
	if calls := courier.calls.Load(); calls != 0 {
		t.Fatalf("courier should not be called, got %d calls", calls)
	}
}

func TestQuoteRestrictedCourier(t *testing.T) {
	ithink := &fakeCourier{name: "ithink", options: []RateOption{{Courier: "ithink", Rate: dec("30")}}}
	shiport := &fakeCourier{name: "shiport", options: []RateOption{{Courier: "shiport", Rate: dec("45")}}}
	broker := newTestBroker(ithink, shiport)

	quote, err := broker.QuoteWithoutFallback(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(1)}, Courier: "shiport"})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.Courier != "shiport" || ithink.calls.Load() != 0 {
		t.Fatalf("only shiport should be queried, got courier=%s ithink_calls=%d", quote.Courier, ithink.calls.Load())
	}
	if _, err := broker.QuoteWithoutFallback(context.Background(), QuoteInput{Pincode: "560001", Lines: []Line{halfKgLine(1)}, Courier: "dtdc"}); !errors.Is(err, ErrCourierNotFound) {
		t.Fatalf("want ErrCourierNotFound got %v", err)
	}
}

func TestSelectCheapestKeepsFirstOnTie(t *testing.T) {
	best, err := SelectCheapest([]RateOption{
		{ServiceName: "A", Rate: dec("60")},
		{ServiceName: "B", Rate: dec("45")},
		{ServiceName: "C", Rate: dec("45")},
	})
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if best.ServiceName != "B" {
		t.Fatalf("tie want B got %s", best.ServiceName)
	}
	if _, err := SelectCheapest(nil); !errors.Is(err, ErrNoValidRate) {
		t.Fatalf("empty options want ErrNoValidRate got %v", err)
	}
}

func TestFallbackChargeRounding(t *testing.T) {
	broker := NewBroker(BrokerConfig{Fallback: FallbackRule{PerKg: dec("33.335"), MinCharge: dec("10")}})
	got := broker.FallbackCharge(dec("1"))
	if !got.Equal(dec("33.34")) {
		t.Fatalf("fallback want 33.34 got %s", got)
	}
	got = broker.FallbackCharge(dec("0.1"))
	if !got.Equal(dec("10")) {
		t.Fatalf("fallback min want 10 got %s", got)
	}
}

func TestValidatePincode(t *testing.T) {
	cases := map[string]bool{
		"560001":  true,
		" 421302": true,
		"56000":   false,
		"5600011": false,
		"56O001":  false,
		"":        false,
	}
	for pincode, ok := range cases {
		err := ValidatePincode(pincode)
		if ok && err != nil {
			t.Fatalf("pincode %q should be valid: %v", pincode, err)
		}
		if !ok && !errors.Is(err, ErrInvalidPincode) {
			t.Fatalf("pincode %q should be invalid", pincode)
		}
	}
}

func TestSanitizePhone(t *testing.T) {
	cases := map[string]string{
		"+91 98765-43210": "9876543210",
		"09876543210":     "9876543210",
		"98765 43210":     "9876543210",
		"12345":           "12345",
	}
	for raw, want := range cases {
		if got := SanitizePhone(raw); got != want {
			t.Fatalf("sanitize %q want %s got %s", raw, want, got)
		}
	}
}

func TestPaymentModeFor(t *testing.T) {
	if got := PaymentModeFor("RZP"); got != "prepaid" {
		t.Fatalf("RZP want prepaid got %s", got)
	}
	if got := PaymentModeFor("COD"); got != "cod" {
		t.Fatalf("COD want cod got %s", got)
	}
}
