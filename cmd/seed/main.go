package main

import (
	"errors"

	"github.com/setwear/internal/app"
	"github.com/setwear/internal/config"
	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"
	"github.com/setwear/internal/service"

	"github.com/shopspring/decimal"
)

type seedColor struct {
	Name    string
	HexCode string
	Stock   int
	Primary bool
}

type seedProduct struct {
	Name          string
	Description   string
	Price         string
	DiscountPrice string
	Sizes         string
	WeightKg      string
	Categories    []string
	Colors        []seedColor
}

var sampleProducts = []seedProduct{
	{
		Name:        "Cotton Kurta Set",
		Description: "Straight kurta with pants and dupatta, hand block printed.",
		Price:       "1499",
		Sizes:       "1S,2M,2L,1XL",
		WeightKg:    "0.6",
		Categories:  []string{"Kurta Sets", "Everyday"},
		Colors: []seedColor{
			{Name: "Indigo", HexCode: "#3F51B5", Stock: 12, Primary: true},
			{Name: "Mustard", HexCode: "#E1AD01", Stock: 8},
		},
	},
	{
		Name:          "Chanderi Festive Set",
		Description:   "Chanderi silk kurta with zari border and palazzo.",
		Price:         "2899",
		DiscountPrice: "2499",
		Sizes:         "1M,2L,1XL",
		WeightKg:      "0.75",
		Categories:    []string{"Kurta Sets", "Festive"},
		Colors: []seedColor{
			{Name: "Rust", HexCode: "#B7410E", Stock: 5, Primary: true},
			{Name: "Sea Green", HexCode: "#2E8B57", Stock: 0},
		},
	},
	{
		Name:        "Linen Co-ord Set",
		Description: "Relaxed shirt and trouser co-ord in washed linen.",
		Price:       "1899",
		Sizes:       "2S,2M,2L",
		WeightKg:    "0.5",
		Categories:  []string{"Co-ords", "Everyday"},
		Colors: []seedColor{
			{Name: "Off White", HexCode: "#F5F5DC", Stock: 10, Primary: true},
		},
	},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := app.InitDatabase(cfg); err != nil {
		stdLog.Fatalf("Failed to init database: %v", err)
	}

	productRepo := repository.NewProductRepository(models.DB)
	categoryRepo := repository.NewCategoryRepository(models.DB)
	catalog := service.NewCatalogService(productRepo, repository.NewProductColorRepository(models.DB), categoryRepo)
	categories := service.NewCategoryService(categoryRepo, productRepo)
	categoryIDs := map[string]uint{}

	for _, item := range sampleProducts {
		slug := service.Slugify(item.Name)
		existing, err := productRepo.GetBySlug(slug, false)
		if err != nil {
			stdLog.Printf("Failed to check product %s: %v", slug, err)
			continue
		}
		if existing != nil {
			stdLog.Printf("Product already exists: %s", slug)
			continue
		}
		ids := make([]uint, 0, len(item.Categories))
		for _, name := range item.Categories {
			id, err := ensureCategory(categories, categoryRepo, categoryIDs, name)
			if err != nil {
				stdLog.Printf("Failed to ensure category %s: %v", name, err)
				continue
			}
			ids = append(ids, id)
		}
		product, err := catalog.CreateProduct(service.ProductInput{
			Name:          item.Name,
			Slug:          slug,
			Description:   item.Description,
			Price:         decimal.RequireFromString(item.Price),
			DiscountPrice: optionalDecimal(item.DiscountPrice),
			Sizes:         item.Sizes,
			WeightKg:      decimal.RequireFromString(item.WeightKg),
			LengthCm:      decimal.NewFromInt(30),
			WidthCm:       decimal.NewFromInt(25),
			HeightCm:      decimal.NewFromInt(5),
			CategoryIDs:   ids,
		})
		if err != nil {
			if errors.Is(err, service.ErrProductSlugExists) {
				stdLog.Printf("Product already exists: %s", slug)
				continue
			}
			stdLog.Printf("Failed to create product %s: %v", slug, err)
			continue
		}
		for _, color := range item.Colors {
			if _, err := catalog.AddColor(product.ID, service.ColorInput{
				Name:      color.Name,
				HexCode:   color.HexCode,
				IsPrimary: color.Primary,
				Stock:     color.Stock,
			}); err != nil {
				stdLog.Printf("Failed to add color %s/%s: %v", slug, color.Name, err)
			}
		}
		stdLog.Printf("Created product: %s (%d pieces)", slug, product.PieceCount())
	}

	stdLog.Println("Seed completed")
}

// ensureCategory 按名称查找或创建分类
func ensureCategory(svc *service.CategoryService, repo repository.CategoryRepository, known map[string]uint, name string) (uint, error) {
	slug := service.Slugify(name)
	if id, ok := known[slug]; ok {
		return id, nil
	}
	existing, err := repo.GetBySlug(slug)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		existing, err = svc.Create(service.CategoryInput{Name: name, Slug: slug})
		if err != nil {
			return 0, err
		}
	}
	known[slug] = existing.ID
	return existing.ID, nil
}

func optionalDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(raw)
}
