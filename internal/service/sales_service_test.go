package service

import (
	"testing"

	"erp-service/internal/apperr"
	"erp-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPaymentInstrument(t *testing.T) {
	for _, method := range []string{
		models.PaymentInstrumentCash, models.PaymentInstrumentCard,
		models.PaymentInstrumentTransfer, models.PaymentInstrumentQR,
	} {
		assert.True(t, validPaymentInstrument(method))
	}
	assert.False(t, validPaymentInstrument("CHEQUE"))
	assert.False(t, validPaymentInstrument("efectivo"))
	assert.False(t, validPaymentInstrument(""))
}

func TestValidateSalesItems(t *testing.T) {
	assert.NoError(t, validateSalesItems([]SalesItemInput{
		{VariantID: 1, Quantity: dec("2"), UnitPrice: dec("10.00")},
	}))

	err := validateSalesItems(nil)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	err = validateSalesItems([]SalesItemInput{{VariantID: 1, Quantity: dec("-1")}})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	err = validateSalesItems([]SalesItemInput{
		{VariantID: 1, Quantity: dec("1"), UnitPrice: dec("10.00"), Discount: dec("-2")},
	})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestOrderMoveItemsCoalesces(t *testing.T) {
	order := &models.SalesOrder{
		Items: []models.SalesOrderItem{
			{VariantID: 8, Quantity: dec("1")},
			{VariantID: 2, Quantity: dec("3")},
			{VariantID: 8, Quantity: dec("2")},
		},
	}

	items, err := orderMoveItems(order)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].VariantID)
	assert.True(t, items[0].Quantity.Equal(dec("3")))
	assert.Equal(t, int64(8), items[1].VariantID)
	assert.True(t, items[1].Quantity.Equal(dec("3")))
}

func TestOrderEntryItemsCarryNoCost(t *testing.T) {
	order := &models.SalesOrder{
		Items: []models.SalesOrderItem{
			{VariantID: 4, Quantity: dec("2")},
		},
	}

	entries, err := orderEntryItems(order)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UnitCost)
	assert.True(t, entries[0].Quantity.Equal(dec("2")))
}

func TestCaptureRequiresCoveringAmount(t *testing.T) {
	order := &models.SalesOrder{
		Items: []models.SalesOrderItem{
			{VariantID: 1, Quantity: dec("2"), UnitPrice: dec("10.00")},
		},
	}
	total := order.Total().Round(2)
	assert.True(t, total.Equal(dec("20.00")))

	// The workflow rejects captures under the total before touching billing;
	// the comparison itself is what the guard relies on.
	assert.True(t, dec("19.99").LessThan(total))
	assert.False(t, dec("25.00").LessThan(total))
}

// A COD order must deliver by courier so the payment is captured at the
// door; ReadyForPickup fails with INVALID_STATE, otherwise the order would
// terminate at Pickup with no invoice and no payment ever recorded.
// Symmetrically a PICKUP order must not Ship. The method/path matrix itself
// is covered in models; this exercises the workflow wiring.
func TestCODOrderCannotTakePickupPath(t *testing.T) {
	t.Skip("Integration test - requires database")
}

// Balance 3 with an open reservation pinning 2 leaves 1 available: shipping
// an order for 3 must fail with INSUFFICIENT_AVAILABILITY instead of
// consuming the pinned goods.
func TestShipHonorsReservationPins(t *testing.T) {
	t.Skip("Integration test - requires database")
}
