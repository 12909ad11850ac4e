package repository

import (
	"errors"

	"github.com/setwear/internal/models"

	"gorm.io/gorm"
)

// ProductColorRepository 颜色款数据访问接口
type ProductColorRepository interface {
	GetByID(id uint) (*models.ProductColor, error)
	ListByProduct(productID uint) ([]models.ProductColor, error)
	ListSlugsByProduct(productID uint) ([]string, error)
	Create(color *models.ProductColor) error
	SetStock(id uint, stock int) (int64, error)
	DecrementStock(id uint, quantity int) (int64, error)
	WithTx(tx *gorm.DB) *GormProductColorRepository
}

// GormProductColorRepository GORM 实现
type GormProductColorRepository struct {
	db *gorm.DB
}

// NewProductColorRepository 创建颜色款仓库
func NewProductColorRepository(db *gorm.DB) *GormProductColorRepository {
	return &GormProductColorRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductColorRepository) WithTx(tx *gorm.DB) *GormProductColorRepository {
	if tx == nil {
		return r
	}
	return &GormProductColorRepository{db: tx}
}

// GetByID 根据 ID 获取颜色款
func (r *GormProductColorRepository) GetByID(id uint) (*models.ProductColor, error) {
	var color models.ProductColor
	if err := r.db.First(&color, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &color, nil
}

// ListByProduct 获取商品下的颜色款
func (r *GormProductColorRepository) ListByProduct(productID uint) ([]models.ProductColor, error) {
	var colors []models.ProductColor
	if err := r.db.Where("product_id = ?", productID).Order("is_primary DESC, id ASC").Find(&colors).Error; err != nil {
		return nil, err
	}
	return colors, nil
}

// ListSlugsByProduct 获取商品下已占用的颜色 slug
func (r *GormProductColorRepository) ListSlugsByProduct(productID uint) ([]string, error) {
	var slugs []string
	if err := r.db.Model(&models.ProductColor{}).Where("product_id = ?", productID).Pluck("slug", &slugs).Error; err != nil {
		return nil, err
	}
	return slugs, nil
}

// Create 创建颜色款
func (r *GormProductColorRepository) Create(color *models.ProductColor) error {
	return r.db.Create(color).Error
}

// SetStock 设置库存，负数由调用方与库约束共同拒绝
func (r *GormProductColorRepository) SetStock(id uint, stock int) (int64, error) {
	if id == 0 || stock < 0 {
		return 0, errors.New("invalid stock params")
	}
	result := r.db.Model(&models.ProductColor{}).Where("id = ?", id).Update("stock", stock)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DecrementStock 条件扣减库存，返回 0 行表示扣减时库存不足
func (r *GormProductColorRepository) DecrementStock(id uint, quantity int) (int64, error) {
	if id == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock decrement params")
	}
	result := r.db.Model(&models.ProductColor{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
