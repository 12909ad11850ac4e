package repository

import (
	"errors"
	"strings"

	"github.com/setwear/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetBySlug(slug string, onlyActive bool) (*models.Product, error)
	GetByID(id uint) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	CountBySlug(slug string, excludeID uint) (int64, error)
	ReplaceCategories(product *models.Product, categories []models.Category) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func preloadColors(query *gorm.DB) *gorm.DB {
	return query.Preload("Colors", func(db *gorm.DB) *gorm.DB {
		return db.Order("is_primary DESC, id ASC")
	})
}

func preloadDetail(query *gorm.DB) *gorm.DB {
	return preloadColors(query).Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order DESC, id ASC")
	})
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	var products []models.Product

	query := r.db.Model(&models.Product{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"name", "slug", "description"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		inCategory := r.db.Table("product_categories").
			Select("product_categories.product_id").
			Joins("JOIN categories ON categories.id = product_categories.category_id").
			Where("categories.slug = ?", category)
		query = query.Where("id IN (?)", inCategory)
	}
	if filter.MinPrice != nil {
		query = query.Where(effectivePriceExpr+" >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where(effectivePriceExpr+" <= ?", *filter.MaxPrice)
	}

	query, total, err := countAndPaginate(query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, err
	}
	if filter.WithColors {
		query = preloadDetail(query)
	}
	if err := query.Order("created_at DESC, id DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetBySlug 根据 slug 获取商品
func (r *GormProductRepository) GetBySlug(slug string, onlyActive bool) (*models.Product, error) {
	query := preloadDetail(r.db).Where("slug = ?", slug)
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := preloadDetail(r.db).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Omit("Colors", "Categories").Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Omit("Colors", "Categories").Save(product).Error
}

// CountBySlug 统计 slug 数量
func (r *GormProductRepository) CountBySlug(slug string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ReplaceCategories 覆盖商品所属分类，categories 为空时清空
func (r *GormProductRepository) ReplaceCategories(product *models.Product, categories []models.Category) error {
	association := r.db.Model(product).Omit("Categories.*").Association("Categories")
	if len(categories) == 0 {
		if err := association.Clear(); err != nil {
			return err
		}
		product.Categories = []models.Category{}
		return nil
	}
	if err := association.Replace(categories); err != nil {
		return err
	}
	product.Categories = categories
	return nil
}
