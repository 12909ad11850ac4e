package admin

import (
	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Image         string          `json:"image"`
	Images        []string        `json:"images"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Sizes         string          `json:"sizes" binding:"required"`
	WeightKg      decimal.Decimal `json:"weight_kg"`
	LengthCm      decimal.Decimal `json:"length_cm"`
	WidthCm       decimal.Decimal `json:"width_cm"`
	HeightCm      decimal.Decimal `json:"height_cm"`
	IsActive      *bool           `json:"is_active"`
	CategoryIDs   []uint          `json:"category_ids"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:          r.Name,
		Slug:          r.Slug,
		Description:   r.Description,
		Image:         r.Image,
		Images:        r.Images,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		Sizes:         r.Sizes,
		WeightKg:      r.WeightKg,
		LengthCm:      r.LengthCm,
		WidthCm:       r.WidthCm,
		HeightCm:      r.HeightCm,
		IsActive:      r.IsActive,
		CategoryIDs:   r.CategoryIDs,
	}
}

// ColorRequest 新增颜色款请求
type ColorRequest struct {
	Name      string `json:"name" binding:"required"`
	HexCode   string `json:"hex_code"`
	Image     string `json:"image"`
	IsPrimary bool   `json:"is_primary"`
	Stock     int    `json:"stock"`
}

// StockRequest 设置库存请求
type StockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

// GetProducts 商品列表（含下架）
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := pagination(c)
	products, total, err := h.CatalogService.ListProducts(service.ProductQuery{
		Page:     page,
		PageSize: pageSize,
		Query:    c.Query("q"),
		Category: c.Query("category"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, products, handlershared.BuildPagination(page, pageSize, total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c)
	if !ok {
		return
	}
	product, err := h.CatalogService.GetProduct(productID)
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "error.product_fetch_failed")
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.CatalogService.CreateProduct(req.toInput())
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	productID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.CatalogService.UpdateProduct(productID, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, product)
}

// AddProductColor 新增颜色款
func (h *Handler) AddProductColor(c *gin.Context) {
	productID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	color, err := h.CatalogService.AddColor(productID, service.ColorInput{
		Name:      req.Name,
		HexCode:   req.HexCode,
		Image:     req.Image,
		IsPrimary: req.IsPrimary,
		Stock:     req.Stock,
	})
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, color)
}

// SetColorStock 设置颜色款库存
func (h *Handler) SetColorStock(c *gin.Context) {
	colorID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	color, err := h.CatalogService.SetColorStock(colorID, *req.Stock)
	if err != nil {
		respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	staffID, _ := c.Get("staff_id")
	requestLog(c).Infow("admin_color_stock_set", "staff_id", staffID, "color_id", colorID, "stock", color.Stock)
	response.Success(c, color)
}
