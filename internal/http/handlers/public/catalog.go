package public

import (
	"strings"

	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
)

// PublicProductView 公共商品响应结构
type PublicProductView struct {
	models.Product
	PieceCount     int          `json:"piece_count"`
	EffectivePrice models.Money `json:"effective_price"`
	PricePerPiece  models.Money `json:"price_per_piece"`
	InStock        bool         `json:"in_stock"`
}

func buildPublicProductView(product models.Product) PublicProductView {
	inStock := false
	for _, color := range product.Colors {
		if color.Stock > 0 {
			inStock = true
			break
		}
	}
	return PublicProductView{
		Product:        product,
		PieceCount:     product.PieceCount(),
		EffectivePrice: product.EffectivePrice(),
		PricePerPiece:  product.PricePerPiece(),
		InStock:        inStock,
	}
}

// GetProducts 上架商品列表，q 支持 "under 1500" 这类价格描述
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := handlershared.NormalizePagination(
		handlershared.QueryInt(c, "page", 1),
		handlershared.QueryInt(c, "page_size", 20),
	)
	products, total, err := h.CatalogService.ListProducts(service.ProductQuery{
		Page:       page,
		PageSize:   pageSize,
		Query:      strings.TrimSpace(c.Query("q")),
		Category:   strings.TrimSpace(c.Query("category")),
		MinPrice:   c.Query("min_price"),
		MaxPrice:   c.Query("max_price"),
		OnlyActive: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	items := make([]PublicProductView, 0, len(products))
	for _, product := range products {
		items = append(items, buildPublicProductView(product))
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetProductBySlug 商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	product, err := h.CatalogService.GetProductBySlug(c.Param("slug"))
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
		}, response.CodeInternal, "error.product_fetch_failed")
		return
	}
	response.Success(c, buildPublicProductView(*product))
}

// CategoryDetailView 分类详情响应
type CategoryDetailView struct {
	Category   models.Category     `json:"category"`
	Products   []PublicProductView `json:"products"`
	Pagination response.Pagination `json:"pagination"`
}

// GetCategories 分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}
	response.Success(c, categories)
}

// GetCategoryBySlug 分类详情及其上架商品
func (h *Handler) GetCategoryBySlug(c *gin.Context) {
	page, pageSize := handlershared.NormalizePagination(
		handlershared.QueryInt(c, "page", 1),
		handlershared.QueryInt(c, "page_size", 20),
	)
	detail, err := h.CategoryService.Detail(c.Param("slug"), page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{Target: service.ErrCategoryNotFound, Code: response.CodeNotFound, Key: "error.category_not_found"},
		}, response.CodeInternal, "error.category_fetch_failed")
		return
	}
	items := make([]PublicProductView, 0, len(detail.Products))
	for _, product := range detail.Products {
		items = append(items, buildPublicProductView(product))
	}
	response.Success(c, CategoryDetailView{
		Category:   detail.Category,
		Products:   items,
		Pagination: handlershared.BuildPagination(page, pageSize, detail.Total),
	})
}
