package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "FAC-000001", FormatInvoiceNumber(1))
	assert.Equal(t, "FAC-000042", FormatInvoiceNumber(42))
	assert.Equal(t, "FAC-123456", FormatInvoiceNumber(123456))
	assert.Equal(t, "FAC-1234567", FormatInvoiceNumber(1234567))
}

func TestComputeInvoiceTotals(t *testing.T) {
	taxRate := dec("0.13")

	lines := []InvoiceLine{
		{VariantID: 1, Quantity: dec("2"), UnitPrice: dec("10.00")},
		{VariantID: 2, Quantity: dec("1"), UnitPrice: dec("5.00")},
	}
	items, subtotal, discount, tax, total := ComputeInvoiceTotals(lines, taxRate)

	require.Len(t, items, 2)
	assert.True(t, subtotal.Equal(dec("25.00")), subtotal.String())
	assert.True(t, discount.Equal(decimal.Zero))
	assert.True(t, tax.Equal(dec("3.25")), tax.String())
	assert.True(t, total.Equal(dec("28.25")), total.String())
}

// The header subtotal already nets line discounts; the discount column is
// informational and must not subtract a second time from the total.
func TestComputeInvoiceTotalsDiscountNotDoubleSubtracted(t *testing.T) {
	taxRate := dec("0.13")

	lines := []InvoiceLine{
		{VariantID: 1, Quantity: dec("2"), UnitPrice: dec("50.00"), Discount: dec("10.00")},
	}
	items, subtotal, discount, tax, total := ComputeInvoiceTotals(lines, taxRate)

	require.Len(t, items, 1)
	assert.True(t, items[0].Subtotal.Equal(dec("90.00")), items[0].Subtotal.String())
	assert.True(t, subtotal.Equal(dec("90.00")))
	assert.True(t, discount.Equal(dec("10.00")))
	assert.True(t, tax.Equal(dec("11.70")), tax.String())
	// 90.00 + 11.70, not 90.00 - 10.00 + 11.70
	assert.True(t, total.Equal(dec("101.70")), total.String())
}

func TestComputeInvoiceTotalsRounding(t *testing.T) {
	taxRate := dec("0.13")

	// 3 * 3.33 = 9.99; tax = 1.2987 -> 1.30 (half away from zero)
	lines := []InvoiceLine{
		{VariantID: 1, Quantity: dec("3"), UnitPrice: dec("3.33")},
	}
	_, subtotal, _, tax, total := ComputeInvoiceTotals(lines, taxRate)
	assert.True(t, subtotal.Equal(dec("9.99")))
	assert.True(t, tax.Equal(dec("1.30")), tax.String())
	assert.True(t, total.Equal(dec("11.29")), total.String())

	// 0.125 rounds up at the midpoint.
	assert.Equal(t, "0.13", dec("0.125").Round(2).String())
}

func TestComputeInvoiceTotalsEmpty(t *testing.T) {
	items, subtotal, discount, tax, total := ComputeInvoiceTotals(nil, dec("0.13"))
	assert.Empty(t, items)
	assert.True(t, subtotal.IsZero())
	assert.True(t, discount.IsZero())
	assert.True(t, tax.IsZero())
	assert.True(t, total.IsZero())
}
