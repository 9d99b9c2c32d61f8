// Package catalog exposes the read-side product and variant models used to
// price order lines.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Product is a sellable item. SalePrice, when set, is a temporary price
// that applies only while it undercuts BasePrice.
type Product struct {
	ID        int64
	Name      string
	BasePrice decimal.Decimal
	SalePrice *decimal.Decimal
	IsActive  bool
}

// CurrentPrice returns the effective product price: the sale price when one
// is set and lower than the base price, the base price otherwise.
func (p Product) CurrentPrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.LessThan(p.BasePrice) {
		return *p.SalePrice
	}
	return p.BasePrice
}

// Variant is a concrete purchasable form of a product (color and size).
type Variant struct {
	ID              int64
	ProductID       int64
	Color           string
	Size            string
	AdditionalPrice decimal.Decimal
}

// UnitPrice is the price of one unit of this variant: the product's
// effective price plus the variant surcharge.
func (v Variant) UnitPrice(p Product) decimal.Decimal {
	return p.CurrentPrice().Add(v.AdditionalPrice)
}

// Repository is the read-only catalog access the checkout paths need.
type Repository interface {
	ProductByID(ctx context.Context, id int64) (*Product, error)
	VariantByID(ctx context.Context, id int64) (*Variant, error)
}
