package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

func TestNormalizeValidRows(t *testing.T) {
	raw := []domain.RawRow{
		{
			"supplier_code":      " FAIRE-ABC ",
			"brand_name":         "Acme Candles",
			"product_name":       "Beeswax Taper",
			"quantity":           "3",
			"unit_price":         "12.50",
			"external_order_ref": "FO-1001",
		},
		{
			"supplier_code": "FAIRE-XYZ",
			"brand_name":    "Acme Candles",
			"product_name":  "Pillar Candle",
			"quantity":      float64(2),
			"unit_price":    float64(8),
		},
	}

	rows, rejected := Normalize(raw)
	require.Empty(t, rejected)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "FAIRE-ABC", rows[0].SupplierCode)
	assert.Equal(t, "Acme Candles", rows[0].BrandName)
	assert.Equal(t, 3, rows[0].Quantity)
	assert.True(t, rows[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "FO-1001", rows[0].ExternalOrderRef)
	assert.True(t, rows[0].IsMissing())

	assert.Equal(t, 2, rows[1].Line)
	assert.Equal(t, 2, rows[1].Quantity)
	assert.True(t, rows[1].UnitPrice.Equal(decimal.NewFromInt(8)))
}

func TestNormalizeRejectsInvalidRows(t *testing.T) {
	raw := []domain.RawRow{
		{
			// missing supplier_code
			"brand_name":   "Acme",
			"product_name": "Widget",
			"quantity":     "1",
			"unit_price":   "5.00",
		},
		{
			"supplier_code": "OK-1",
			"brand_name":    "Acme",
			"product_name":  "Widget",
			"quantity":      "0",
			"unit_price":    "5.00",
		},
		{
			"supplier_code": "OK-2",
			"brand_name":    "Acme",
			"product_name":  "Widget",
			"quantity":      "2",
			"unit_price":    "-1.00",
		},
		{
			"supplier_code": "OK-3",
			"brand_name":    "Acme",
			"product_name":  "Widget",
			"quantity":      "not-a-number",
			"unit_price":    "5.00",
		},
		{
			"supplier_code": "OK-4",
			"brand_name":    "Acme",
			"product_name":  "Widget",
			"quantity":      "2",
			"unit_price":    "5.00",
		},
	}

	rows, rejected := Normalize(raw)
	require.Len(t, rows, 1)
	assert.Equal(t, "OK-4", rows[0].SupplierCode)
	assert.Equal(t, 5, rows[0].Line)

	require.Len(t, rejected, 4)
	for _, re := range rejected {
		assert.Equal(t, domain.RowErrorInvalid, re.Kind)
	}
	assert.Equal(t, 1, rejected[0].Line)
	assert.Contains(t, rejected[0].Reason, "supplier_code")
	assert.Equal(t, 2, rejected[1].Line)
	assert.Contains(t, rejected[1].Reason, "quantity")
	assert.Equal(t, 3, rejected[2].Line)
	assert.Contains(t, rejected[2].Reason, "unit_price")
	assert.Equal(t, 4, rejected[3].Line)
	assert.Contains(t, rejected[3].Reason, "quantity")
}

func TestNormalizeZeroPriceIsValid(t *testing.T) {
	raw := []domain.RawRow{
		{
			"supplier_code": "FREE-1",
			"brand_name":    "Acme",
			"product_name":  "Sample",
			"quantity":      "1",
			"unit_price":    "0",
		},
	}

	rows, rejected := Normalize(raw)
	require.Empty(t, rejected)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UnitPrice.IsZero())
}

func TestNormalizeCurrencyPrefixedPrice(t *testing.T) {
	raw := []domain.RawRow{
		{
			"supplier_code": "CUR-1",
			"brand_name":    "Acme",
			"product_name":  "Widget",
			"quantity":      "1",
			"unit_price":    "$4.25",
		},
	}

	rows, rejected := Normalize(raw)
	require.Empty(t, rejected)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UnitPrice.Equal(decimal.RequireFromString("4.25")))
}

func TestNormalizeNumericCodeFromJSON(t *testing.T) {
	raw := []domain.RawRow{
		{
			"supplier_code": float64(10045),
			"brand_name":    "Acme",
			"product_name":  "Widget",
			"quantity":      float64(1),
			"unit_price":    "2.00",
		},
	}

	rows, rejected := Normalize(raw)
	require.Empty(t, rejected)
	require.Len(t, rows, 1)
	assert.Equal(t, "10045", rows[0].SupplierCode)
}
