package public

import (
	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	ColorID   uint `json:"color_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// UpdateCartItemRequest 调整购物车数量请求
type UpdateCartItemRequest struct {
	Action   string `json:"action" binding:"required"`
	Quantity int    `json:"quantity"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	cart, err := h.CartService.List(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, cart)
}

// AddCartItem 加入购物车，同款同色累加套数
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := h.CartService.Add(uid, req.ProductID, req.ColorID, req.Quantity)
	if err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// UpdateCartItem 调整套数
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := handlershared.ParseParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	item, err := h.CartService.UpdateQuantity(uid, itemID, req.Action, req.Quantity)
	if err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// RemoveCartItem 移除购物车行
func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := handlershared.ParseParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.CartService.Remove(uid, itemID); err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	response.Success(c, gin.H{"removed": true})
}

// cartView 读取当前购物车，空购物车返回 ErrCartEmpty
func (h *Handler) cartView(uid uint) (*service.CartView, error) {
	cart, err := h.CartService.List(uid)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, service.ErrCartEmpty
	}
	return cart, nil
}
