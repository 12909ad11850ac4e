package provider

import (
	"strings"
	"time"

	"github.com/setwear/internal/authz"
	"github.com/setwear/internal/cache"
	"github.com/setwear/internal/config"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/payment/razorpay"
	"github.com/setwear/internal/queue"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/service"
	"github.com/setwear/internal/shipping"
	"github.com/setwear/internal/shipping/ithink"
	"github.com/setwear/internal/shipping/shiport"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Gateways
	Broker   *shipping.Broker
	IThink   *ithink.Client
	Shiport  *shiport.Client
	Razorpay *razorpay.Client

	// Repositories
	ProductRepo         repository.ProductRepository
	ProductColorRepo    repository.ProductColorRepository
	CategoryRepo        repository.CategoryRepository
	CartRepo            repository.CartRepository
	CouponRepo          repository.CouponRepository
	OrderRepo           repository.OrderRepository
	ShipmentAttemptRepo repository.ShipmentAttemptRepository

	// Services
	AuthzService    *authz.Service
	CatalogService  *service.CatalogService
	CategoryService *service.CategoryService
	CartService     *service.CartService
	CouponService   *service.CouponService
	ShippingService *service.ShippingService
	OrderService    *service.OrderService
	PaymentService  *service.PaymentService
	DispatchService *service.DispatchService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化外部网关
	c.initGateways()

	// 2. 初始化 Repositories
	c.initRepositories()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initGateways() {
	cfg := c.Config.Shipping

	if cfg.IThink.Enabled {
		ithinkCfg := ithink.Config{
			BaseURL:         cfg.IThink.BaseURL,
			AccessToken:     cfg.IThink.AccessToken,
			SecretKey:       cfg.IThink.SecretKey,
			PickupAddressID: cfg.IThink.PickupAddressID,
			ReturnAddressID: cfg.IThink.ReturnAddressID,
			StoreID:         cfg.IThink.StoreID,
			Logistics:       cfg.IThink.Logistics,
			ServiceType:     cfg.IThink.ServiceType,
			Staging:         cfg.IThink.Staging,
			HSNCode:         cfg.Seller.HSNCode,
			TaxRate:         cfg.Seller.TaxRate,
			Timeout:         seconds(cfg.IThink.TimeoutSeconds),
			CreateTimeout:   seconds(cfg.IThink.CreateTimeoutSeconds),
		}
		if err := ithink.ValidateConfig(ithinkCfg); err != nil {
			logger.Warnw("provider_ithink_config_invalid", "error", err)
		}
		c.IThink = ithink.New(ithinkCfg)
	}

	if cfg.Shiport.Enabled {
		shiportCfg := shiport.Config{
			BaseURL:       cfg.Shiport.BaseURL,
			SecretKey:     cfg.Shiport.SecretKey,
			CustomerID:    cfg.Shiport.CustomerID,
			WarehouseName: cfg.Shiport.WarehouseName,
			AddressID:     cfg.Shiport.AddressID,
			Return: shiport.ReturnAddress{
				Name:    cfg.ReturnAddress.Name,
				Phone:   cfg.ReturnAddress.Phone,
				Email:   cfg.ReturnAddress.Email,
				Address: cfg.ReturnAddress.Address,
				City:    cfg.ReturnAddress.City,
				State:   cfg.ReturnAddress.State,
				Pincode: cfg.ReturnAddress.Pincode,
			},
			Timeout:       seconds(cfg.Shiport.TimeoutSeconds),
			CreateTimeout: seconds(cfg.Shiport.CreateTimeoutSeconds),
		}
		if err := shiport.ValidateConfig(shiportCfg); err != nil {
			logger.Warnw("provider_shiport_config_invalid", "error", err)
		}
		c.Shiport = shiport.New(shiportCfg)
	}

	available := map[string]shipping.Courier{}
	if c.IThink != nil {
		available[c.IThink.Name()] = c.IThink
	}
	if c.Shiport != nil {
		available[c.Shiport.Name()] = c.Shiport
	}
	couriers := make([]shipping.Courier, 0, len(cfg.Couriers))
	for _, name := range cfg.Couriers {
		courier, ok := available[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			logger.Warnw("provider_courier_unavailable", "courier", name)
			continue
		}
		couriers = append(couriers, courier)
	}
	c.Broker = shipping.NewBroker(shipping.BrokerConfig{
		OriginPincode: cfg.OriginPincode,
		Fallback: shipping.FallbackRule{
			PerKg:     parseDecimal(cfg.Fallback.PerKg),
			MinCharge: parseDecimal(cfg.Fallback.MinCharge),
		},
		Defaults: shipping.Dimensions{
			WeightKg: parseDecimal(cfg.DefaultParcel.WeightKg),
			LengthCm: parseDecimal(cfg.DefaultParcel.LengthCm),
			WidthCm:  parseDecimal(cfg.DefaultParcel.WidthCm),
			HeightCm: parseDecimal(cfg.DefaultParcel.HeightCm),
		},
	}, couriers...)

	rzpCfg := razorpay.Config{
		KeyID:         c.Config.Razorpay.KeyID,
		KeySecret:     c.Config.Razorpay.KeySecret,
		WebhookSecret: c.Config.Razorpay.WebhookSecret,
		BaseURL:       c.Config.Razorpay.BaseURL,
		Currency:      c.Config.Razorpay.Currency,
		Timeout:       seconds(c.Config.Razorpay.TimeoutSeconds),
	}
	if err := razorpay.ValidateConfig(rzpCfg); err != nil {
		logger.Warnw("provider_razorpay_config_invalid", "error", err)
	}
	c.Razorpay = razorpay.New(rzpCfg)
}

func (c *Container) initRepositories() {
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.ProductColorRepo = repository.NewProductColorRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ShipmentAttemptRepo = repository.NewShipmentAttemptRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	// iThink 未启用时 tracker 保持字面量 nil
	var tracker service.ShipmentTracker
	if c.IThink != nil {
		tracker = c.IThink
	}

	c.CatalogService = service.NewCatalogService(c.ProductRepo, c.ProductColorRepo, c.CategoryRepo)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo, c.ProductRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.ProductColorRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo)
	c.ShippingService = service.NewShippingService(c.CartRepo, c.Broker, cache.RedisQuoteStore{}, c.Config.Shipping.QuoteTTL())
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CartRepo, c.CouponService, c.ShippingService, c.Razorpay)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.ProductColorRepo, c.CartRepo, c.Razorpay)
	c.DispatchService = service.NewDispatchService(c.OrderRepo, c.ProductRepo, c.ShipmentAttemptRepo, c.Broker, tracker, c.QueueClient)
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func parseDecimal(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return value
}
