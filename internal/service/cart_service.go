package service

import (
	"fmt"
	"strings"

	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"

	"github.com/shopspring/decimal"
)

// 购物车数量调整动作
const (
	CartActionIncrease = "increase"
	CartActionDecrease = "decrease"
	CartActionSet      = "set"
)

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	colorRepo   repository.ProductColorRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, colorRepo repository.ProductColorRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, colorRepo: colorRepo}
}

// CartView 购物车汇总
type CartView struct {
	Items    []models.CartItem `json:"items"`
	Subtotal models.Money      `json:"subtotal"`
	Pieces   int               `json:"pieces"`
	Sets     int               `json:"sets"`
}

// NewCartView 根据购物车行计算小计，价格取加入时的快照
func NewCartView(items []models.CartItem) *CartView {
	subtotal := decimal.Zero
	pieces := 0
	sets := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal().Decimal)
		pieces += item.PieceCount()
		sets += item.Quantity
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return &CartView{
		Items:    items,
		Subtotal: models.NewMoneyFromDecimal(subtotal),
		Pieces:   pieces,
		Sets:     sets,
	}
}

// List 获取购物车
func (s *CartService) List(userID uint) (*CartView, error) {
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return NewCartView(items), nil
}

// Add 加入购物车，同一颜色款累加套数
func (s *CartService) Add(userID, productID, colorID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrCartQuantityInvalid
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	color, err := s.colorRepo.GetByID(colorID)
	if err != nil {
		return nil, err
	}
	if color == nil || color.ProductID != product.ID {
		return nil, ErrColorNotFound
	}

	existing, err := s.cartRepo.GetByUserProductColor(userID, productID, colorID)
	if err != nil {
		return nil, err
	}
	inCart := 0
	if existing != nil {
		inCart = existing.Quantity
	}
	if inCart+quantity > color.Stock {
		return nil, &StockShortfallError{
			ProductName: product.Name,
			ColorName:   color.Name,
			Wanted:      inCart + quantity,
			Available:   color.Stock,
		}
	}

	if existing != nil {
		if err := s.cartRepo.UpdateQuantity(existing.ID, inCart+quantity); err != nil {
			return nil, err
		}
		existing.Quantity = inCart + quantity
		return existing, nil
	}

	image := strings.TrimSpace(color.Image)
	if image == "" {
		image = product.Image
	}
	item := &models.CartItem{
		UserID:        userID,
		ProductID:     productID,
		ColorID:       colorID,
		Quantity:      quantity,
		ProductName:   product.Name,
		Image:         image,
		ActualPrice:   product.Price,
		DiscountPrice: product.DiscountPrice,
		Sizes:         product.Sizes,
	}
	if err := s.cartRepo.Create(item); err != nil {
		return nil, err
	}
	logger.SW("user_id", userID, "product_id", productID, "color_id", colorID).Debugw("cart_item_created", "quantity", quantity)
	return item, nil
}

// UpdateQuantity 调整套数：increase/decrease 每次 1 套，set 直接设定
func (s *CartService) UpdateQuantity(userID, itemID uint, action string, quantity int) (*models.CartItem, error) {
	item, err := s.cartRepo.GetByIDAndUser(itemID, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}

	target := item.Quantity
	switch strings.ToLower(strings.TrimSpace(action)) {
	case CartActionIncrease:
		target++
	case CartActionDecrease:
		if item.Quantity <= 1 {
			return nil, ErrCartMinimumQuantity
		}
		target--
	case CartActionSet:
		if quantity < 1 {
			return nil, ErrCartMinimumQuantity
		}
		target = quantity
	default:
		return nil, fmt.Errorf("%w: %s", ErrCartActionInvalid, action)
	}

	if target > item.Quantity {
		if item.Color == nil {
			return nil, ErrColorNotFound
		}
		if target > item.Color.Stock {
			return nil, &StockShortfallError{
				ProductName: item.ProductName,
				ColorName:   item.Color.Name,
				Wanted:      target,
				Available:   item.Color.Stock,
			}
		}
	}
	if target == item.Quantity {
		return item, nil
	}
	if err := s.cartRepo.UpdateQuantity(item.ID, target); err != nil {
		return nil, err
	}
	item.Quantity = target
	return item, nil
}

// Remove 删除购物车项
func (s *CartService) Remove(userID, itemID uint) error {
	affected, err := s.cartRepo.DeleteByIDAndUser(itemID, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear 清空购物车
func (s *CartService) Clear(userID uint) error {
	return s.cartRepo.ClearByUser(userID)
}
