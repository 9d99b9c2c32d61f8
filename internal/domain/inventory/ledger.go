// Package inventory defines the per-variant stock ledger. The ledger tracks
// an on-hand quantity and a reserved counter; the difference is what is
// available to sell, and it never goes negative.
package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// MaxLineQuantity caps a single order line on the checkout paths.
const MaxLineQuantity = 999

// Sentinel errors for ledger operations.
var (
	ErrVariantNotFound   = errors.New("variant has no inventory record")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity out of range")
)

// InsufficientStockError reports a reservation that could not be satisfied.
type InsufficientStockError struct {
	VariantID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("variant %d: requested %d, only %d available",
		e.VariantID, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Record is the ledger state of one variant.
type Record struct {
	VariantID int64
	Quantity  int
	Reserved  int
}

// Available is what can still be reserved.
func (r Record) Available() int {
	return r.Quantity - r.Reserved
}

// CheckQuantity validates a requested line quantity against a path-specific
// upper bound.
func CheckQuantity(qty, limit int) error {
	if qty < 1 || qty > limit {
		return errors.Wrapf(ErrInvalidQuantity, "quantity %d not in [1, %d]", qty, limit)
	}
	return nil
}

// Ledger is the stock mutation contract. Implementations must make each
// operation atomic: a Reserve either holds the full quantity or changes
// nothing.
type Ledger interface {
	// Get returns the current record for a variant.
	Get(ctx context.Context, variantID int64) (*Record, error)
	// Reserve places a hold of qty units if that many are available,
	// returning an InsufficientStockError otherwise.
	Reserve(ctx context.Context, variantID int64, qty int) error
	// Confirm converts a hold into a permanent deduction.
	Confirm(ctx context.Context, variantID int64, qty int) error
	// RestoreReservation gives back a hold without touching quantity.
	RestoreReservation(ctx context.Context, variantID int64, qty int) error
	// Release adds qty units back to on-hand quantity.
	Release(ctx context.Context, variantID int64, qty int) error
	// Adjust applies a signed administrative correction, flooring at zero.
	Adjust(ctx context.Context, variantID int64, delta int, reason string) error
	// SetQuantity sets the absolute on-hand quantity.
	SetQuantity(ctx context.Context, variantID int64, qty int) error
}
