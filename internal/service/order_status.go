package service

import (
	"fmt"
	"time"

	"github.com/setwear/internal/constants"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"
)

// OrderState 订单的支付状态与发货状态组合
type OrderState struct {
	Payment  string `json:"payment_status"`
	Shipping string `json:"shipping_status"`
}

func (s OrderState) String() string {
	return s.Payment + "/" + s.Shipping
}

var (
	stateUnpaidPending   = OrderState{constants.PaymentStatusUnpaid, constants.ShippingStatusPending}
	stateUnpaidCancelled = OrderState{constants.PaymentStatusUnpaid, constants.ShippingStatusCancelled}
	stateFailedCancelled = OrderState{constants.PaymentStatusFailed, constants.ShippingStatusCancelled}
	statePaidReady       = OrderState{constants.PaymentStatusPaid, constants.ShippingStatusReadyToShip}
	stateFeePaidReady    = OrderState{constants.PaymentStatusShippingFeePaid, constants.ShippingStatusReadyToShip}
	paidPaymentStatuses  = []string{constants.PaymentStatusPaid, constants.PaymentStatusShippingFeePaid}
)

var postPaymentShipStatus = []string{
	constants.ShippingStatusReadyToShip,
	constants.ShippingStatusShipped,
	constants.ShippingStatusDelivered,
	constants.ShippingStatusShipmentFailed,
}

// validOrderStates 合法的状态组合
var validOrderStates = buildValidOrderStates()

// allowedTransitions 允许的状态迁移
var allowedTransitions = buildAllowedTransitions()

func buildValidOrderStates() map[OrderState]bool {
	states := map[OrderState]bool{
		stateUnpaidPending:   true,
		stateUnpaidCancelled: true,
		stateFailedCancelled: true,
	}
	for _, payment := range paidPaymentStatuses {
		for _, shipping := range postPaymentShipStatus {
			states[OrderState{payment, shipping}] = true
		}
	}
	return states
}

func buildAllowedTransitions() map[OrderState]map[OrderState]bool {
	transitions := map[OrderState]map[OrderState]bool{
		stateUnpaidPending: {
			statePaidReady:       true,
			stateFeePaidReady:    true,
			stateFailedCancelled: true,
			stateUnpaidCancelled: true,
		},
	}
	for _, payment := range paidPaymentStatuses {
		ready := OrderState{payment, constants.ShippingStatusReadyToShip}
		shipped := OrderState{payment, constants.ShippingStatusShipped}
		failed := OrderState{payment, constants.ShippingStatusShipmentFailed}
		delivered := OrderState{payment, constants.ShippingStatusDelivered}
		transitions[ready] = map[OrderState]bool{shipped: true, failed: true}
		transitions[failed] = map[OrderState]bool{shipped: true, failed: true, ready: true}
		transitions[shipped] = map[OrderState]bool{delivered: true}
	}
	return transitions
}

// NewOrderState 构造并校验状态组合
func NewOrderState(payment, shipping string) (OrderState, error) {
	state := OrderState{Payment: payment, Shipping: shipping}
	if !validOrderStates[state] {
		return OrderState{}, fmt.Errorf("%w: %s", ErrOrderStateInvalid, state)
	}
	return state, nil
}

func orderStateOf(order *models.Order) OrderState {
	return OrderState{Payment: order.PaymentStatus, Shipping: order.ShippingStatus}
}

// transitionOrderState 校验状态迁移是否允许
func transitionOrderState(from, to OrderState) error {
	if !validOrderStates[from] {
		return fmt.Errorf("%w: %s", ErrOrderStateInvalid, from)
	}
	if !validOrderStates[to] {
		return fmt.Errorf("%w: %s", ErrOrderStateInvalid, to)
	}
	if !allowedTransitions[from][to] {
		return fmt.Errorf("%w: %s -> %s", ErrOrderStatusInvalid, from, to)
	}
	return nil
}

// applyOrderTransition 条件更新订单状态，订单已被并发修改时返回 ErrOrderStatusInvalid
func applyOrderTransition(orderRepo repository.OrderRepository, order *models.Order, to OrderState, updates map[string]interface{}) error {
	from := orderStateOf(order)
	if err := transitionOrderState(from, to); err != nil {
		return err
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["payment_status"] = to.Payment
	updates["shipping_status"] = to.Shipping
	updates["updated_at"] = time.Now()
	affected, err := orderRepo.UpdateFieldsIfState(order.ID, from.Payment, from.Shipping, updates)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", ErrOrderStatusInvalid, order.ID, from)
	}
	order.PaymentStatus = to.Payment
	order.ShippingStatus = to.Shipping
	return nil
}

// shippingStatusesForFilter 后台看板筛选映射到发货状态
func shippingStatusesForFilter(filter string) []string {
	switch filter {
	case constants.ShipmentFilterPending:
		return []string{constants.ShippingStatusReadyToShip, constants.ShippingStatusShipmentFailed}
	case constants.ShipmentFilterShipped:
		return []string{constants.ShippingStatusShipped}
	case constants.ShipmentFilterDelivered:
		return []string{constants.ShippingStatusDelivered}
	case constants.ShipmentFilterFailed:
		return []string{constants.ShippingStatusShipmentFailed}
	case constants.ShipmentFilterCancelled:
		return []string{constants.ShippingStatusCancelled}
	default:
		return nil
	}
}
