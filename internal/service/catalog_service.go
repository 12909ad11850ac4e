package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	priceUnderPattern   = regexp.MustCompile(`under\s+(\d+)`)
	priceAbovePattern   = regexp.MustCompile(`above\s+(\d+)`)
	priceBetweenPattern = regexp.MustCompile(`between\s+(\d+)\s+and\s+(\d+)`)
	slugInvalidChars    = regexp.MustCompile(`[^a-z0-9]+`)
)

// CatalogService 商品与颜色款服务
type CatalogService struct {
	productRepo  repository.ProductRepository
	colorRepo    repository.ProductColorRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService 创建商品服务
func NewCatalogService(productRepo repository.ProductRepository, colorRepo repository.ProductColorRepository, categoryRepo repository.CategoryRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo, colorRepo: colorRepo, categoryRepo: categoryRepo}
}

// ProductQuery 商品列表查询参数
type ProductQuery struct {
	Page       int
	PageSize   int
	Query      string
	Category   string
	MinPrice   string
	MaxPrice   string
	OnlyActive bool
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	Name          string
	Slug          string
	Description   string
	Image         string
	Images        []string
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	Sizes         string
	WeightKg      decimal.Decimal
	LengthCm      decimal.Decimal
	WidthCm       decimal.Decimal
	HeightCm      decimal.Decimal
	IsActive      *bool
	CategoryIDs   []uint // nil 表示不修改分类
}

// ColorInput 颜色款输入
type ColorInput struct {
	Name      string
	HexCode   string
	Image     string
	IsPrimary bool
	Stock     int
}

// PriceRange 自然语言价格区间
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// ParsePriceQuery 解析 "under 2000" / "above 1500" / "between 1000 and 3000"，返回剩余的搜索词
func ParsePriceQuery(query string) (PriceRange, string) {
	lowered := strings.ToLower(strings.TrimSpace(query))
	var out PriceRange
	if match := priceUnderPattern.FindStringSubmatch(lowered); match != nil {
		out.Max = decimalPtr(match[1])
		return out, stripMatch(lowered, match[0])
	}
	if match := priceAbovePattern.FindStringSubmatch(lowered); match != nil {
		out.Min = decimalPtr(match[1])
		return out, stripMatch(lowered, match[0])
	}
	if match := priceBetweenPattern.FindStringSubmatch(lowered); match != nil {
		out.Min = decimalPtr(match[1])
		out.Max = decimalPtr(match[2])
		return out, stripMatch(lowered, match[0])
	}
	return out, strings.TrimSpace(query)
}

func stripMatch(query, match string) string {
	return strings.Join(strings.Fields(strings.Replace(query, match, " ", 1)), " ")
}

func decimalPtr(raw string) *decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &value
}

// Slugify 生成 URL 友好的标识
func Slugify(value string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

// ListProducts 商品列表，显式价格参数优先于查询词中的价格
func (s *CatalogService) ListProducts(query ProductQuery) ([]models.Product, int64, error) {
	priceRange, search := ParsePriceQuery(query.Query)
	if parsed := decimalPtr(query.MinPrice); parsed != nil {
		priceRange.Min = parsed
	}
	if parsed := decimalPtr(query.MaxPrice); parsed != nil {
		priceRange.Max = parsed
	}
	return s.productRepo.List(repository.ProductListFilter{
		Page:       query.Page,
		PageSize:   query.PageSize,
		Search:     search,
		Category:   strings.TrimSpace(query.Category),
		MinPrice:   priceRange.Min,
		MaxPrice:   priceRange.Max,
		OnlyActive: query.OnlyActive,
		WithColors: true,
	})
}

// GetProductBySlug 获取上架商品详情
func (s *CatalogService) GetProductBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(strings.TrimSpace(slug), true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetProduct 后台获取商品详情
func (s *CatalogService) GetProduct(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func validateProductInput(input *ProductInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Sizes = strings.ToUpper(strings.TrimSpace(input.Sizes))
	if input.Name == "" || input.Sizes == "" {
		return fmt.Errorf("%w: name and sizes are required", ErrProductInvalid)
	}
	if input.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrProductInvalid)
	}
	if input.DiscountPrice.IsNegative() || input.DiscountPrice.GreaterThan(input.Price) {
		return fmt.Errorf("%w: discount price must be between 0 and price", ErrProductInvalid)
	}
	for _, dim := range []decimal.Decimal{input.WeightKg, input.LengthCm, input.WidthCm, input.HeightCm} {
		if dim.IsNegative() {
			return fmt.Errorf("%w: dimensions must not be negative", ErrProductInvalid)
		}
	}
	if (models.Product{Sizes: input.Sizes}).PieceCount() == 0 {
		return fmt.Errorf("%w: sizes %q has no pieces", ErrProductInvalid, input.Sizes)
	}
	input.Slug = Slugify(input.Slug)
	if input.Slug == "" {
		input.Slug = Slugify(input.Name)
	}
	if input.Slug == "" {
		return fmt.Errorf("%w: slug is empty", ErrProductInvalid)
	}
	return nil
}

func applyProductInput(product *models.Product, input ProductInput) {
	product.Name = input.Name
	product.Slug = input.Slug
	product.Description = strings.TrimSpace(input.Description)
	product.Image = strings.TrimSpace(input.Image)
	product.Images = models.StringArray(input.Images)
	product.Price = models.NewMoneyFromDecimal(input.Price)
	product.DiscountPrice = models.NewMoneyFromDecimal(input.DiscountPrice)
	product.Sizes = input.Sizes
	product.WeightKg = input.WeightKg.Round(3)
	product.LengthCm = input.LengthCm.Round(2)
	product.WidthCm = input.WidthCm.Round(2)
	product.HeightCm = input.HeightCm.Round(2)
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}

// CreateProduct 创建商品
func (s *CatalogService) CreateProduct(input ProductInput) (*models.Product, error) {
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}
	count, err := s.productRepo.CountBySlug(input.Slug, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductSlugExists
	}
	categories, err := s.resolveCategories(input.CategoryIDs)
	if err != nil {
		return nil, err
	}
	product := models.Product{IsActive: true}
	applyProductInput(&product, input)
	err = s.productRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		if err := repo.Create(&product); err != nil {
			return err
		}
		if categories == nil {
			return nil
		}
		return repo.ReplaceCategories(&product, categories)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct 更新商品
func (s *CatalogService) UpdateProduct(id uint, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	count, err := s.productRepo.CountBySlug(input.Slug, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrProductSlugExists
	}
	categories, err := s.resolveCategories(input.CategoryIDs)
	if err != nil {
		return nil, err
	}
	applyProductInput(product, input)
	err = s.productRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		if err := repo.Update(product); err != nil {
			return err
		}
		if categories == nil {
			return nil
		}
		return repo.ReplaceCategories(product, categories)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// resolveCategories 校验分类 ID 全部存在，ids 为 nil 时返回 nil
func (s *CatalogService) resolveCategories(ids []uint) ([]models.Category, error) {
	if ids == nil {
		return nil, nil
	}
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []models.Category{}, nil
	}
	if s.categoryRepo == nil {
		return nil, ErrCategoryNotFound
	}
	categories, err := s.categoryRepo.ListByIDs(unique)
	if err != nil {
		return nil, err
	}
	if len(categories) != len(unique) {
		return nil, fmt.Errorf("%w: %d of %d categories exist", ErrCategoryNotFound, len(categories), len(unique))
	}
	return categories, nil
}

// AddColor 为商品添加颜色款，slug 在商品内冲突时追加 -1、-2
func (s *CatalogService) AddColor(productID uint, input ColorInput) (*models.ProductColor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrColorInvalid)
	}
	if input.Stock < 0 {
		return nil, ErrStockInvalid
	}
	baseSlug := Slugify(name)
	if baseSlug == "" {
		return nil, fmt.Errorf("%w: name %q has no slug characters", ErrColorInvalid, name)
	}

	var color *models.ProductColor
	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.WithTx(tx).GetByID(productID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		colorRepo := s.colorRepo.WithTx(tx)
		existing, err := colorRepo.ListSlugsByProduct(productID)
		if err != nil {
			return err
		}
		color = &models.ProductColor{
			ProductID: productID,
			Name:      name,
			Slug:      uniqueSlug(baseSlug, existing),
			HexCode:   strings.TrimSpace(input.HexCode),
			Image:     strings.TrimSpace(input.Image),
			IsPrimary: input.IsPrimary,
			Stock:     input.Stock,
		}
		return colorRepo.Create(color)
	})
	if err != nil {
		return nil, err
	}
	return color, nil
}

func uniqueSlug(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, slug := range existing {
		taken[slug] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d", base, counter)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// GetColor 获取颜色款
func (s *CatalogService) GetColor(colorID uint) (*models.ProductColor, error) {
	color, err := s.colorRepo.GetByID(colorID)
	if err != nil {
		return nil, err
	}
	if color == nil {
		return nil, ErrColorNotFound
	}
	return color, nil
}

// SetColorStock 设置颜色款库存（套）
func (s *CatalogService) SetColorStock(colorID uint, stock int) (*models.ProductColor, error) {
	if stock < 0 {
		return nil, ErrStockInvalid
	}
	affected, err := s.colorRepo.SetStock(colorID, stock)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrColorNotFound
	}
	logger.SW("color_id", colorID).Infow("catalog_stock_set", "stock", stock)
	return s.GetColor(colorID)
}
