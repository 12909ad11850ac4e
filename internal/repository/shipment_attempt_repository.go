package repository

import (
	"github.com/setwear/internal/models"

	"gorm.io/gorm"
)

// ShipmentAttemptRepository 发货尝试记录数据访问接口
type ShipmentAttemptRepository interface {
	Create(attempt *models.ShipmentAttempt) error
	ListByOrder(orderID uint) ([]models.ShipmentAttempt, error)
	WithTx(tx *gorm.DB) *GormShipmentAttemptRepository
}

// GormShipmentAttemptRepository GORM 实现
type GormShipmentAttemptRepository struct {
	db *gorm.DB
}

// NewShipmentAttemptRepository 创建发货尝试记录仓库
func NewShipmentAttemptRepository(db *gorm.DB) *GormShipmentAttemptRepository {
	return &GormShipmentAttemptRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShipmentAttemptRepository) WithTx(tx *gorm.DB) *GormShipmentAttemptRepository {
	if tx == nil {
		return r
	}
	return &GormShipmentAttemptRepository{db: tx}
}

// Create 写入发货尝试
func (r *GormShipmentAttemptRepository) Create(attempt *models.ShipmentAttempt) error {
	return r.db.Create(attempt).Error
}

// ListByOrder 按时间倒序列出订单的发货尝试
func (r *GormShipmentAttemptRepository) ListByOrder(orderID uint) ([]models.ShipmentAttempt, error) {
	var attempts []models.ShipmentAttempt
	if err := r.db.Where("order_id = ?", orderID).Order("id desc").Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
