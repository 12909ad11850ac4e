package router

import (
	"sort"
	"strings"

	"github.com/setwear/internal/authz"
	"github.com/setwear/internal/cache"
	"github.com/setwear/internal/config"
	adminhandlers "github.com/setwear/internal/http/handlers/admin"
	publichandlers "github.com/setwear/internal/http/handlers/public"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	quoteRule := RateLimitRule{
		Prefix:        cache.Key("rate", "shipping_quote"),
		WindowSeconds: cfg.Security.QuoteRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.QuoteRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:slug", publicHandler.GetProductBySlug)
			public.GET("/categories", publicHandler.GetCategories)
			public.GET("/categories/:slug", publicHandler.GetCategoryBySlug)
		}

		// 支付网关回调，状态码即协议
		apiV1.POST("/payments/webhook/razorpay", publicHandler.RazorpayWebhook)

		// 顾客接口
		customer := apiV1.Group("")
		customer.Use(CustomerJWTMiddleware(cfg.UserJWT.SecretKey))
		{
			customer.GET("/cart", publicHandler.GetCart)
			customer.POST("/cart/items", publicHandler.AddCartItem)
			customer.PATCH("/cart/items/:id", publicHandler.UpdateCartItem)
			customer.DELETE("/cart/items/:id", publicHandler.RemoveCartItem)

			customer.POST("/shipping/quote", RateLimitMiddleware(cache.Client(), quoteRule, KeyByUserOrIP), publicHandler.QuoteShipping)
			customer.POST("/coupons/preview", publicHandler.PreviewCoupon)

			customer.POST("/orders", publicHandler.CreateOrder)
			customer.GET("/orders", publicHandler.GetMyOrders)
			customer.GET("/orders/:id", publicHandler.GetMyOrder)

			customer.POST("/payments/razorpay/callback", publicHandler.RazorpayCallback)
		}

		// 后台接口
		admin := apiV1.Group("/admin")
		admin.Use(StaffJWTAuthMiddleware(cfg.JWT.SecretKey), StaffRBACMiddleware(c.AuthzService))
		{
			// 订单与发货
			admin.GET("/orders", adminHandler.GetOrders)
			admin.GET("/orders/:id", adminHandler.GetOrder)
			admin.POST("/orders/:id/dispatch", adminHandler.DispatchOrder)
			admin.POST("/orders/:id/dispatch/async", adminHandler.DispatchOrderAsync)
			admin.POST("/orders/:id/retry", adminHandler.RetryShipment)
			admin.POST("/orders/:id/deliver", adminHandler.MarkDelivered)
			admin.GET("/orders/:id/tracking", adminHandler.TrackOrder)
			admin.GET("/orders/:id/label", adminHandler.GetShipmentLabel)
			admin.GET("/orders/:id/shipment-attempts", adminHandler.GetShipmentAttempts)
			admin.GET("/warehouses", adminHandler.GetWarehouses)

			// 商品与库存
			admin.GET("/products", adminHandler.GetProducts)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.GET("/products/:id", adminHandler.GetProduct)
			admin.PUT("/products/:id", adminHandler.UpdateProduct)
			admin.POST("/products/:id/colors", adminHandler.AddProductColor)
			admin.PUT("/colors/:id/stock", adminHandler.SetColorStock)

			admin.GET("/categories", adminHandler.GetCategories)
			admin.POST("/categories", adminHandler.CreateCategory)
			admin.PUT("/categories/:id", adminHandler.UpdateCategory)
			admin.DELETE("/categories/:id", adminHandler.DeleteCategory)

			// 优惠券
			admin.GET("/coupons", adminHandler.GetCoupons)
			admin.POST("/coupons", adminHandler.CreateCoupon)
			admin.PUT("/coupons/:id", adminHandler.UpdateCoupon)
			admin.DELETE("/coupons/:id", adminHandler.DeleteCoupon)

			// 权限
			admin.GET("/authz/roles", adminHandler.GetAuthzRoles)
			admin.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "colors" || segments[1] == "categories" {
		return "products"
	}
	return segments[1]
}
