package service

import (
	"testing"

	"erp-service/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMovingAverage(t *testing.T) {
	// 10 units at 4.00 plus 5 units at 7.00 -> 75 / 15 = 5.00
	got := movingAverage(dec("10"), dec("4.00"), dec("5"), dec("7.00"))
	assert.True(t, got.Equal(dec("5")), got.String())

	// Zero prior quantity takes the incoming cost.
	got = movingAverage(decimal.Zero, decimal.Zero, dec("3"), dec("12.34"))
	assert.True(t, got.Equal(dec("12.34")), got.String())

	// Non-terminating division rounds to four decimals.
	got = movingAverage(dec("1"), dec("1.00"), dec("2"), dec("2.00"))
	assert.True(t, got.Equal(dec("1.6667")), got.String())
}

func TestCoalesceMoveItems(t *testing.T) {
	items := []MoveItem{
		{VariantID: 5, Quantity: dec("2")},
		{VariantID: 3, Quantity: dec("1")},
		{VariantID: 5, Quantity: dec("4")},
	}

	coalesced, err := CoalesceMoveItems(items)
	require.NoError(t, err)
	require.Len(t, coalesced, 2)

	// Sorted by variant id for a stable lock order.
	assert.Equal(t, int64(3), coalesced[0].VariantID)
	assert.True(t, coalesced[0].Quantity.Equal(dec("1")))
	assert.Equal(t, int64(5), coalesced[1].VariantID)
	assert.True(t, coalesced[1].Quantity.Equal(dec("6")))
}

func TestCoalesceMoveItemsRejectsBadInput(t *testing.T) {
	_, err := CoalesceMoveItems(nil)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = CoalesceMoveItems([]MoveItem{{VariantID: 1, Quantity: decimal.Zero}})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = CoalesceMoveItems([]MoveItem{{VariantID: 1, Quantity: dec("-3")}})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestValidateEntryItems(t *testing.T) {
	cost := dec("4.50")
	assert.NoError(t, validateEntryItems([]EntryItem{
		{VariantID: 1, Quantity: dec("2"), UnitCost: &cost},
		{VariantID: 2, Quantity: dec("0.5")},
	}))

	err := validateEntryItems(nil)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	err = validateEntryItems([]EntryItem{{VariantID: 1, Quantity: decimal.Zero}})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	negative := dec("-1")
	err = validateEntryItems([]EntryItem{{VariantID: 1, Quantity: dec("2"), UnitCost: &negative}})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}
