package service

import (
	"errors"
	"testing"

	"github.com/setwear/internal/constants"
)

func TestNewOrderState(t *testing.T) {
	valid := [][2]string{
		{constants.PaymentStatusUnpaid, constants.ShippingStatusPending},
		{constants.PaymentStatusUnpaid, constants.ShippingStatusCancelled},
		{constants.PaymentStatusFailed, constants.ShippingStatusCancelled},
		{constants.PaymentStatusPaid, constants.ShippingStatusReadyToShip},
		{constants.PaymentStatusPaid, constants.ShippingStatusDelivered},
		{constants.PaymentStatusShippingFeePaid, constants.ShippingStatusShipmentFailed},
	}
	for _, pair := range valid {
		if _, err := NewOrderState(pair[0], pair[1]); err != nil {
			t.Fatalf("expected %s/%s valid, got %v", pair[0], pair[1], err)
		}
	}

	invalid := [][2]string{
		{constants.PaymentStatusUnpaid, constants.ShippingStatusShipped},
		{constants.PaymentStatusPaid, constants.ShippingStatusPending},
		{constants.PaymentStatusFailed, constants.ShippingStatusReadyToShip},
		{constants.PaymentStatusPaid, constants.ShippingStatusCancelled},
		{"REFUNDED", constants.ShippingStatusCancelled},
	}
	for _, pair := range invalid {
		if _, err := NewOrderState(pair[0], pair[1]); !errors.Is(err, ErrOrderStateInvalid) {
			t.Fatalf("expected %s/%s invalid, got %v", pair[0], pair[1], err)
		}
	}
}

func TestTransitionOrderState(t *testing.T) {
	paidShipped := OrderState{constants.PaymentStatusPaid, constants.ShippingStatusShipped}
	paidFailed := OrderState{constants.PaymentStatusPaid, constants.ShippingStatusShipmentFailed}
	paidDelivered := OrderState{constants.PaymentStatusPaid, constants.ShippingStatusDelivered}
	feeShipped := OrderState{constants.PaymentStatusShippingFeePaid, constants.ShippingStatusShipped}

	cases := []struct {
		from, to OrderState
		ok       bool
	}{
		{stateUnpaidPending, statePaidReady, true},
		{stateUnpaidPending, stateFeePaidReady, true},
		{stateUnpaidPending, stateFailedCancelled, true},
		{statePaidReady, paidShipped, true},
		{statePaidReady, paidFailed, true},
		{paidFailed, paidShipped, true},
		{paidFailed, statePaidReady, true},
		{paidShipped, paidDelivered, true},
		{stateFeePaidReady, feeShipped, true},
		{statePaidReady, stateUnpaidPending, false},
		{statePaidReady, paidDelivered, false},
		{paidDelivered, paidShipped, false},
		{stateFailedCancelled, statePaidReady, false},
		{stateUnpaidPending, paidShipped, false},
		{statePaidReady, feeShipped, false},
	}
	for _, tc := range cases {
		err := transitionOrderState(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s should be allowed, got %v", tc.from, tc.to, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestShippingStatusesForFilter(t *testing.T) {
	pending := shippingStatusesForFilter(constants.ShipmentFilterPending)
	if len(pending) != 2 || pending[0] != constants.ShippingStatusReadyToShip || pending[1] != constants.ShippingStatusShipmentFailed {
		t.Fatalf("unexpected pending statuses: %v", pending)
	}
	if got := shippingStatusesForFilter(constants.ShipmentFilterCancelled); len(got) != 1 || got[0] != constants.ShippingStatusCancelled {
		t.Fatalf("unexpected cancelled statuses: %v", got)
	}
	if got := shippingStatusesForFilter(constants.ShipmentFilterAll); got != nil {
		t.Fatalf("all filter should not restrict, got %v", got)
	}
}
