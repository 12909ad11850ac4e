package admin

import (
	"strings"

	handlershared "github.com/setwear/internal/http/handlers/shared"
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
)

// DispatchRequest 发货请求，courier 为空时取全部快递商最低价
type DispatchRequest struct {
	Courier string `json:"courier"`
}

// GetOrders 发货看板订单列表
// filter: pending|shipped|delivered|failed|cancelled|all
func (h *Handler) GetOrders(c *gin.Context) {
	page, pageSize := pagination(c)
	orders, total, err := h.OrderService.ListOrdersForAdmin(service.AdminOrderQuery{
		Page:          page,
		PageSize:      pageSize,
		PaymentMethod: c.Query("payment_method"),
		Filter:        c.DefaultQuery("filter", "pending"),
		OrderNo:       c.Query("order_no"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrderForAdmin(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

func bindDispatchRequest(c *gin.Context) (DispatchRequest, bool) {
	var req DispatchRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return req, false
	}
	req.Courier = strings.ToLower(strings.TrimSpace(req.Courier))
	return req, true
}

// DispatchOrder 同步发货，阻塞直到快递商返回
func (h *Handler) DispatchOrder(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	req, ok := bindDispatchRequest(c)
	if !ok {
		return
	}
	order, err := h.DispatchService.DispatchShipment(c.Request.Context(), orderID, service.DispatchOptions{
		Courier:    req.Courier,
		OperatorID: staffID,
	})
	if err != nil {
		respondWithMappedError(c, err, shipmentErrorRules, response.CodeInternal, "error.shipment_failed")
		return
	}
	response.Success(c, order)
}

// DispatchOrderAsync 投递异步发货任务，队列未启用时同步发货
func (h *Handler) DispatchOrderAsync(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	req, ok := bindDispatchRequest(c)
	if !ok {
		return
	}
	result, err := h.DispatchService.DispatchAsync(c.Request.Context(), orderID, service.DispatchOptions{
		Courier:    req.Courier,
		OperatorID: staffID,
	})
	if err != nil {
		respondWithMappedError(c, err, shipmentErrorRules, response.CodeInternal, "error.shipment_failed")
		return
	}
	response.Success(c, result)
}

// RetryShipment 发货失败的订单重新进入待发货
func (h *Handler) RetryShipment(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.OrderService.RetryShipment(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// MarkDelivered 标记已签收
func (h *Handler) MarkDelivered(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.OrderService.MarkDelivered(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// TrackOrder 查询运单轨迹
func (h *Handler) TrackOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	info, err := h.DispatchService.TrackShipment(c.Request.Context(), orderID)
	if err != nil {
		respondWithMappedError(c, err, shipmentErrorRules, response.CodeInternal, "error.tracking_unavailable")
		return
	}
	response.Success(c, info)
}

// GetShipmentLabel 获取面单，page_size 可选 A4/A5/A6
func (h *Handler) GetShipmentLabel(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	label, err := h.DispatchService.ShipmentLabel(c.Request.Context(), orderID, strings.ToUpper(strings.TrimSpace(c.Query("page_size"))))
	if err != nil {
		respondWithMappedError(c, err, shipmentErrorRules, response.CodeInternal, "error.label_unavailable")
		return
	}
	if label.URL == "" && len(label.PDF) > 0 {
		c.Data(200, "application/pdf", label.PDF)
		return
	}
	response.Success(c, label)
}

// GetShipmentAttempts 订单发货尝试记录
func (h *Handler) GetShipmentAttempts(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	attempts, err := h.DispatchService.ListShipmentAttempts(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.attempt_fetch_failed")
		return
	}
	response.Success(c, attempts)
}

// GetWarehouses iThink 取件仓列表
func (h *Handler) GetWarehouses(c *gin.Context) {
	warehouses, err := h.DispatchService.ListWarehouses(c.Request.Context())
	if err != nil {
		respondWithMappedError(c, err, shipmentErrorRules, response.CodeUpstream, "error.warehouse_fetch_failed")
		return
	}
	response.Success(c, warehouses)
}
