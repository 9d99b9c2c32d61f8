// Package shipping computes delivery fees for orders.
package shipping

import "github.com/shopspring/decimal"

// FeeCalculator prices delivery for one order. District and ward are part
// of the contract so zone-based policies can slot in without touching
// callers.
type FeeCalculator interface {
	Calculate(district, ward string, subtotal decimal.Decimal) decimal.Decimal
}

var _ FeeCalculator = (*PolicyCalculator)(nil)

// PolicyCalculator is the flat-fee policy: orders at or above FreeThreshold
// ship free, everything else pays FlatFee regardless of destination.
type PolicyCalculator struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// NewPolicyCalculator creates a PolicyCalculator with the given thresholds.
func NewPolicyCalculator(freeThreshold, flatFee decimal.Decimal) *PolicyCalculator {
	return &PolicyCalculator{FreeThreshold: freeThreshold, FlatFee: flatFee}
}

// Calculate returns the delivery fee for the given subtotal.
func (c *PolicyCalculator) Calculate(_, _ string, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.FreeThreshold) {
		return decimal.Zero
	}
	return c.FlatFee
}
