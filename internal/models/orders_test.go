package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPurchaseTransitions(t *testing.T) {
	allowed := []struct{ from, to string }{
		{PurchaseStatusDraft, PurchaseStatusSent},
		{PurchaseStatusSent, PurchaseStatusConfirmed},
		{PurchaseStatusSent, PurchaseStatusRejected},
		{PurchaseStatusSent, PurchaseStatusReceived},
		{PurchaseStatusConfirmed, PurchaseStatusReceived},
		{PurchaseStatusReceived, PurchaseStatusInvoiced},
		{PurchaseStatusInvoiced, PurchaseStatusClosed},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransitionPurchase(edge.from, edge.to), "%s -> %s", edge.from, edge.to)
	}

	denied := []struct{ from, to string }{
		{PurchaseStatusDraft, PurchaseStatusConfirmed},
		{PurchaseStatusDraft, PurchaseStatusReceived},
		{PurchaseStatusConfirmed, PurchaseStatusRejected},
		{PurchaseStatusRejected, PurchaseStatusSent},
		{PurchaseStatusReceived, PurchaseStatusClosed},
		{PurchaseStatusClosed, PurchaseStatusDraft},
		{PurchaseStatusSent, PurchaseStatusSent},
	}
	for _, edge := range denied {
		assert.False(t, CanTransitionPurchase(edge.from, edge.to), "%s -> %s", edge.from, edge.to)
	}
}

func TestNormalizePurchaseStatus(t *testing.T) {
	cases := map[string]string{
		"draft":    PurchaseStatusDraft,
		"sent":     PurchaseStatusSent,
		"received": PurchaseStatusReceived,
		"partial":  PurchaseStatusReceived,
		"canceled": PurchaseStatusRejected,
	}
	for legacy, canonical := range cases {
		got, wasLegacy := NormalizePurchaseStatus(legacy)
		assert.True(t, wasLegacy, legacy)
		assert.Equal(t, canonical, got)
	}

	got, wasLegacy := NormalizePurchaseStatus(PurchaseStatusConfirmed)
	assert.False(t, wasLegacy)
	assert.Equal(t, PurchaseStatusConfirmed, got)
}

func TestSalesTransitions(t *testing.T) {
	assert.True(t, CanTransitionSales(SalesStatusPending, SalesStatusPaid))
	assert.True(t, CanTransitionSales(SalesStatusPaid, SalesStatusPreparing))
	assert.True(t, CanTransitionSales(SalesStatusPaid, SalesStatusShipped))
	assert.True(t, CanTransitionSales(SalesStatusPaid, SalesStatusReadyPickup))
	assert.True(t, CanTransitionSales(SalesStatusPreparing, SalesStatusShipped))
	assert.True(t, CanTransitionSales(SalesStatusPreparing, SalesStatusReadyPickup))
	assert.True(t, CanTransitionSales(SalesStatusShipped, SalesStatusDelivered))
	assert.True(t, CanTransitionSales(SalesStatusReadyPickup, SalesStatusPickedUp))

	assert.False(t, CanTransitionSales(SalesStatusPending, SalesStatusShipped))
	assert.False(t, CanTransitionSales(SalesStatusShipped, SalesStatusPickedUp))
	assert.False(t, CanTransitionSales(SalesStatusReadyPickup, SalesStatusDelivered))
	assert.False(t, CanTransitionSales(SalesStatusDelivered, SalesStatusShipped))
}

func TestSalesCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []string{
		SalesStatusPending, SalesStatusPaid, SalesStatusPreparing,
		SalesStatusShipped, SalesStatusReadyPickup,
	} {
		assert.True(t, CanTransitionSales(from, SalesStatusCancelled), from)
	}
	for _, from := range []string{
		SalesStatusDelivered, SalesStatusPickedUp, SalesStatusCancelled,
	} {
		assert.False(t, CanTransitionSales(from, SalesStatusCancelled), from)
		assert.True(t, IsTerminalSalesStatus(from), from)
	}
}

func TestValidPaymentMethod(t *testing.T) {
	for _, method := range []string{
		PaymentMethodPrepaid, PaymentMethodCOD, PaymentMethodPickup, PaymentMethodCredit,
	} {
		assert.True(t, ValidPaymentMethod(method))
	}
	assert.False(t, ValidPaymentMethod("CASH"))
	assert.False(t, ValidPaymentMethod("prepaid"))
	assert.False(t, ValidPaymentMethod(""))
}

func TestMethodFulfillmentPaths(t *testing.T) {
	// COD orders go out with a courier; PICKUP orders are collected at a
	// branch. PREPAID and CREDIT may take either path.
	assert.True(t, MethodAllowsShipping(PaymentMethodPrepaid))
	assert.True(t, MethodAllowsShipping(PaymentMethodCOD))
	assert.True(t, MethodAllowsShipping(PaymentMethodCredit))
	assert.False(t, MethodAllowsShipping(PaymentMethodPickup))

	assert.True(t, MethodAllowsPickup(PaymentMethodPrepaid))
	assert.True(t, MethodAllowsPickup(PaymentMethodPickup))
	assert.True(t, MethodAllowsPickup(PaymentMethodCredit))
	assert.False(t, MethodAllowsPickup(PaymentMethodCOD))
}

func TestReservationTransitions(t *testing.T) {
	assert.True(t, CanTransitionReservation(ReservationStatusPending, ReservationStatusDeposited))
	assert.True(t, CanTransitionReservation(ReservationStatusDeposited, ReservationStatusConfirmed))
	assert.True(t, CanTransitionReservation(ReservationStatusConfirmed, ReservationStatusCompleted))
	for _, from := range []string{
		ReservationStatusPending, ReservationStatusDeposited, ReservationStatusConfirmed,
	} {
		assert.True(t, CanTransitionReservation(from, ReservationStatusCancelled), from)
	}

	assert.False(t, CanTransitionReservation(ReservationStatusPending, ReservationStatusConfirmed))
	assert.False(t, CanTransitionReservation(ReservationStatusPending, ReservationStatusCompleted))
	assert.False(t, CanTransitionReservation(ReservationStatusDeposited, ReservationStatusCompleted))
	assert.False(t, CanTransitionReservation(ReservationStatusCompleted, ReservationStatusCancelled))
	assert.False(t, CanTransitionReservation(ReservationStatusCancelled, ReservationStatusPending))
}

func TestReservationPinned(t *testing.T) {
	assert.True(t, ReservationPinned(ReservationStatusPending))
	assert.True(t, ReservationPinned(ReservationStatusDeposited))
	assert.True(t, ReservationPinned(ReservationStatusConfirmed))
	assert.False(t, ReservationPinned(ReservationStatusCompleted))
	assert.False(t, ReservationPinned(ReservationStatusCancelled))
}

func TestSalesOrderTotal(t *testing.T) {
	order := &SalesOrder{
		Items: []SalesOrderItem{
			{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("10.50"), Discount: decimal.RequireFromString("1.00")},
			{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("5.00")},
		},
	}
	// 2*10.50 - 1.00 + 5.00
	assert.True(t, order.Total().Equal(decimal.RequireFromString("25.00")), order.Total().String())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "juan.perez@example.com", NormalizeEmail("  Juan.Perez@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
