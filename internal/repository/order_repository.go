package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/setwear/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByRazorpayOrderID(razorpayOrderID string) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListIDsByShippingStatus(status string, limit int) ([]uint, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateFieldsIfState(id uint, paymentStatus, shippingStatus string, updates map[string]interface{}) (int64, error)
	ClaimDispatch(id uint, shippingStatuses []string, now, staleBefore time.Time) (int64, error)
	ReleaseDispatch(id uint) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Omit("Product").Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return r.first(withItems(r.db).Where("id = ?", id))
}

// GetByIDForUpdate 事务内加行锁读取订单（sqlite 下退化为普通读取）
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	order, err := r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
	if err != nil || order == nil {
		return order, err
	}
	var items []models.OrderItem
	if err := r.db.Where("order_id = ?", order.ID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// GetByRazorpayOrderID 根据网关订单号获取订单
func (r *GormOrderRepository) GetByRazorpayOrderID(razorpayOrderID string) (*models.Order, error) {
	razorpayOrderID = strings.TrimSpace(razorpayOrderID)
	if razorpayOrderID == "" {
		return nil, nil
	}
	return r.first(withItems(r.db).Where("razorpay_order_id = ?", razorpayOrderID))
}

// GetByIDAndUser 获取用户自己的订单
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	return r.first(withItems(r.db).Where("id = ? AND user_id = ?", id, userID))
}

func applyOrderFilter(query *gorm.DB, filter OrderListFilter) *gorm.DB {
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if len(filter.ShippingStatuses) > 0 {
		query = query.Where("shipping_status IN ?", filter.ShippingStatuses)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no LIKE ?", "%"+orderNo+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

func (r *GormOrderRepository) list(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := applyOrderFilter(r.db.Model(&models.Order{}), filter)

	query, total, err := countAndPaginate(query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := withItems(query).Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByUser 获取用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return []models.Order{}, 0, nil
	}
	return r.list(filter)
}

// ListAdmin 后台发货看板订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	return r.list(filter)
}

// ListIDsByShippingStatus 按发货状态取订单ID，用于轨迹同步
func (r *GormOrderRepository) ListIDsByShippingStatus(status string, limit int) ([]uint, error) {
	var ids []uint
	query := r.db.Model(&models.Order{}).Where("shipping_status = ? AND tracking_id <> ''", status).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateFields 更新订单字段
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateFieldsIfState 仅在订单仍处于指定状态组合时更新，返回影响行数
func (r *GormOrderRepository) UpdateFieldsIfState(id uint, paymentStatus, shippingStatus string, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND shipping_status = ?", id, paymentStatus, shippingStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ClaimDispatch 占用待发货订单，仅在发货状态匹配且未被占用（或占用已超时）时成功，返回影响行数
func (r *GormOrderRepository) ClaimDispatch(id uint, shippingStatuses []string, now, staleBefore time.Time) (int64, error) {
	if len(shippingStatuses) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND shipping_status IN ?", id, shippingStatuses).
		Where("dispatching_at IS NULL OR dispatching_at < ?", staleBefore).
		Update("dispatching_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseDispatch 释放发货占用
func (r *GormOrderRepository) ReleaseDispatch(id uint) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Update("dispatching_at", nil).Error
}
