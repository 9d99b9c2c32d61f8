package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProductCurrentPrice(t *testing.T) {
	sale := dec("80.00")
	higherSale := dec("120.00")

	tests := []struct {
		name     string
		product  Product
		expected string
	}{
		{"no sale price", Product{BasePrice: dec("100.00")}, "100.00"},
		{"sale below base", Product{BasePrice: dec("100.00"), SalePrice: &sale}, "80.00"},
		{"sale above base is ignored", Product{BasePrice: dec("100.00"), SalePrice: &higherSale}, "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.product.CurrentPrice().Equal(dec(tt.expected)))
		})
	}
}

func TestVariantUnitPrice(t *testing.T) {
	sale := dec("90.00")
	p := Product{BasePrice: dec("100.00"), SalePrice: &sale}
	v := Variant{AdditionalPrice: dec("5.50")}

	assert.True(t, v.UnitPrice(p).Equal(dec("95.50")))
}
