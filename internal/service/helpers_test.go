package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/setwear/internal/cache"
	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/payment/razorpay"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/shipping"
	"github.com/setwear/internal/shipping/ithink"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "rzp_test_secret"
	testWebhookSecret = "rzp_webhook_secret"
)

func setupServiceTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.ProductColor{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Coupon{},
		&models.ShipmentAttempt{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		_ = sqlDB.Close()
	})
	return db
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func money(raw string) models.Money {
	return models.NewMoneyFromDecimal(dec(raw))
}

// memQuoteStore 内存报价存储
type memQuoteStore struct {
	mu     sync.Mutex
	quotes map[uint]*cache.ShippingQuote
}

func newMemQuoteStore() *memQuoteStore {
	return &memQuoteStore{quotes: map[uint]*cache.ShippingQuote{}}
}

func (m *memQuoteStore) SaveQuote(_ context.Context, userID uint, quote *cache.ShippingQuote, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *quote
	m.quotes[userID] = &copied
	return nil
}

func (m *memQuoteStore) LoadQuote(_ context.Context, userID uint) (*cache.ShippingQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quote, ok := m.quotes[userID]
	if !ok {
		return nil, nil
	}
	copied := *quote
	return &copied, nil
}

func (m *memQuoteStore) DeleteQuote(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, userID)
	return nil
}

// stubCourier 可编排报价与建单结果的快递商
type stubCourier struct {
	name       string
	rate       string
	rateErr    error
	trackingID string
	createErr  error
	delay      time.Duration
	rateCalls  atomic.Int32
	created    atomic.Int32
	mu         sync.Mutex
	lastCreate shipping.ShipmentRequest
	lastRate   shipping.RateRequest
}

func (c *stubCourier) Name() string { return c.name }

func (c *stubCourier) Rates(_ context.Context, req shipping.RateRequest) ([]shipping.RateOption, error) {
	c.rateCalls.Add(1)
	c.mu.Lock()
	c.lastRate = req
	c.mu.Unlock()
	if c.rateErr != nil {
		return nil, c.rateErr
	}
	return []shipping.RateOption{{Courier: c.name, ServiceName: c.name + " Surface", Rate: dec(c.rate)}}, nil
}

func (c *stubCourier) CreateShipment(_ context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error) {
	c.created.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.lastCreate = req
	c.mu.Unlock()
	result := &shipping.ShipmentResult{
		Courier:     c.name,
		ServiceName: req.Option.ServiceName,
		Request:     map[string]interface{}{"order": req.OrderRef, "access_token": "tok"},
		Response:    map[string]interface{}{"status": "ok"},
	}
	if c.createErr != nil {
		result.Response = map[string]interface{}{"status": "error", "remark": c.createErr.Error()}
		return result, c.createErr
	}
	result.TrackingID = c.trackingID
	result.LabelURL = "https://labels.example/" + c.trackingID + ".pdf"
	return result, nil
}

func (c *stubCourier) lastRateRequest() shipping.RateRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRate
}

func (c *stubCourier) lastRequest() shipping.ShipmentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCreate
}

// stubTracker iThink 轨迹/面单替身
type stubTracker struct {
	statuses   map[string]string
	labelURL   string
	trackCalls atomic.Int32
}

func (s *stubTracker) Track(_ context.Context, awbs ...string) (map[string]ithink.TrackInfo, error) {
	s.trackCalls.Add(1)
	out := map[string]ithink.TrackInfo{}
	for _, awb := range awbs {
		if status, ok := s.statuses[awb]; ok {
			out[awb] = ithink.TrackInfo{AWB: awb, Status: status}
		}
	}
	return out, nil
}

func (s *stubTracker) Label(_ context.Context, _ string, awbs ...string) (*ithink.LabelResult, error) {
	if s.labelURL == "" {
		return nil, fmt.Errorf("%w: label not available", ithink.ErrAPIRejected)
	}
	return &ithink.LabelResult{URL: s.labelURL}, nil
}

func (s *stubTracker) Warehouses(context.Context) ([]map[string]interface{}, error) {
	return []map[string]interface{}{{"warehouse_id": "1", "city": "Kalyan"}}, nil
}

func newTestBroker(couriers ...shipping.Courier) *shipping.Broker {
	return shipping.NewBroker(shipping.BrokerConfig{
		OriginPincode: "421302",
		Fallback:      shipping.FallbackRule{PerKg: dec("60"), MinCharge: dec("40")},
		Defaults:      shipping.Dimensions{WeightKg: dec("0.5"), LengthCm: dec("30"), WidthCm: dec("25"), HeightCm: dec("5")},
	}, couriers...)
}

// fakeGateway 模拟 Razorpay 订单接口
type fakeGateway struct {
	server *httptest.Server
	status atomic.Int32
	calls  atomic.Int32
	mu     sync.Mutex
	last   map[string]interface{}
}

func newFakeGateway(t *testing.T) (*fakeGateway, *razorpay.Client) {
	t.Helper()
	gw := &fakeGateway{}
	gw.status.Store(http.StatusOK)
	gw.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gw.calls.Add(1)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gw.mu.Lock()
		gw.last = body
		gw.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		status := int(gw.status.Load())
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":"SERVER_ERROR","description":"gateway down"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       fmt.Sprintf("order_test%d", gw.calls.Load()),
			"amount":   body["amount"],
			"currency": body["currency"],
			"receipt":  body["receipt"],
			"status":   "created",
		})
	}))
	t.Cleanup(gw.server.Close)
	client := razorpay.New(razorpay.Config{
		KeyID:         "rzp_test_key",
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
		BaseURL:       gw.server.URL,
		Currency:      "INR",
		Timeout:       5 * time.Second,
	})
	return gw, client
}

func (g *fakeGateway) lastBody() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// testStore 组装好的服务集合
type testStore struct {
	db        *gorm.DB
	quotes    *memQuoteStore
	gateway   *fakeGateway
	courier   *stubCourier
	tracker   *stubTracker
	catalog   *CatalogService
	category  *CategoryService
	cart      *CartService
	coupons   *CouponService
	shipping  *ShippingService
	orders    *OrderService
	payments  *PaymentService
	dispatch  *DispatchService
	orderRepo *repository.GormOrderRepository
	colorRepo *repository.GormProductColorRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db := setupServiceTest(t)
	gw, client := newFakeGateway(t)
	courier := &stubCourier{name: constants.CourierIThink, rate: "55", trackingID: "AWB1001"}
	tracker := &stubTracker{statuses: map[string]string{}}
	broker := newTestBroker(courier)

	productRepo := repository.NewProductRepository(db)
	colorRepo := repository.NewProductColorRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cartRepo := repository.NewCartRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	attemptRepo := repository.NewShipmentAttemptRepository(db)
	quotes := newMemQuoteStore()

	couponService := NewCouponService(couponRepo)
	shippingService := NewShippingService(cartRepo, broker, quotes, 30*time.Minute)
	return &testStore{
		db:        db,
		quotes:    quotes,
		gateway:   gw,
		courier:   courier,
		tracker:   tracker,
		catalog:   NewCatalogService(productRepo, colorRepo, categoryRepo),
		category:  NewCategoryService(categoryRepo, productRepo),
		cart:      NewCartService(cartRepo, productRepo, colorRepo),
		coupons:   couponService,
		shipping:  shippingService,
		orders:    NewOrderService(orderRepo, cartRepo, couponService, shippingService, client),
		payments:  NewPaymentService(orderRepo, colorRepo, cartRepo, client),
		dispatch:  NewDispatchService(orderRepo, productRepo, attemptRepo, broker, tracker, nil),
		orderRepo: orderRepo,
		colorRepo: colorRepo,
	}
}

func (s *testStore) createProduct(t *testing.T, slug, price string, stock int) (*models.Product, *models.ProductColor) {
	t.Helper()
	product, err := s.catalog.CreateProduct(ProductInput{
		Name:     "Cotton Kurta Set " + slug,
		Slug:     slug,
		Price:    dec(price),
		Sizes:    "1S,2M,1L",
		WeightKg: dec("0.5"),
		LengthCm: dec("30"),
		WidthCm:  dec("25"),
		HeightCm: dec("4"),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	color, err := s.catalog.AddColor(product.ID, ColorInput{Name: "Indigo", HexCode: "#3F51B5", IsPrimary: true, Stock: stock})
	if err != nil {
		t.Fatalf("add color failed: %v", err)
	}
	return product, color
}

func (s *testStore) addToCart(t *testing.T, userID uint, product *models.Product, color *models.ProductColor, qty int) {
	t.Helper()
	if _, err := s.cart.Add(userID, product.ID, color.ID, qty); err != nil {
		t.Fatalf("add to cart failed: %v", err)
	}
}

func validOrderInput(userID uint, method string) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:        userID,
		FullName:      "Asha Rao",
		Phone:         "+91 98765-43210",
		Email:         "asha@example.com",
		Address:       "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		Pincode:       "560001",
		PaymentMethod: method,
	}
}

func (s *testStore) placeOrder(t *testing.T, userID uint, method string) *models.Order {
	t.Helper()
	result, err := s.orders.PlaceOrder(context.Background(), validOrderInput(userID, method))
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	return result.Order
}

func (s *testStore) reloadOrder(t *testing.T, orderID uint) *models.Order {
	t.Helper()
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return order
}

func (s *testStore) stockOf(t *testing.T, colorID uint) int {
	t.Helper()
	color, err := s.colorRepo.GetByID(colorID)
	if err != nil || color == nil {
		t.Fatalf("reload color failed: %v", err)
	}
	return color.Stock
}

// paidOrder 下单并确认支付，返回 READY_TO_SHIP 的订单
func (s *testStore) paidOrder(t *testing.T, userID uint, method string) *models.Order {
	t.Helper()
	product, color := s.createProduct(t, fmt.Sprintf("set-%d", userID), "999", 10)
	s.addToCart(t, userID, product, color, 2)
	order := s.placeOrder(t, userID, method)
	if _, err := s.payments.ConfirmPayment(context.Background(), ConfirmInput{OrderID: order.ID, PaymentID: "pay_1", Source: constants.PaymentSourceCallback}); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	return s.reloadOrder(t, order.ID)
}
