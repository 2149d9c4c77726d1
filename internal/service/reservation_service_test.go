package service

import (
	"testing"

	"erp-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceReservationItems(t *testing.T) {
	items, err := coalesceReservationItems([]ReservationItemInput{
		{VariantID: 7, Quantity: dec("1")},
		{VariantID: 2, Quantity: dec("2")},
		{VariantID: 7, Quantity: dec("3")},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].VariantID)
	assert.True(t, items[0].Quantity.Equal(dec("2")))
	assert.Equal(t, int64(7), items[1].VariantID)
	assert.True(t, items[1].Quantity.Equal(dec("4")))
}

func TestCoalesceReservationItemsRejectsBadInput(t *testing.T) {
	_, err := coalesceReservationItems(nil)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = coalesceReservationItems([]ReservationItemInput{
		{VariantID: 1, Quantity: dec("0")},
	})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestReservationOversellCheck(t *testing.T) {
	t.Skip("Integration test - requires database")
}
