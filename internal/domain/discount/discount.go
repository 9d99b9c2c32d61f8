// Package discount holds the discount model and the eligibility engine that
// validates codes and computes reductions during checkout.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type selects what a discount reduces.
type Type string

const (
	// TypeAmount reduces the order subtotal.
	TypeAmount Type = "AMOUNT"
	// TypeShip reduces the shipping fee.
	TypeShip Type = "SHIP"
)

// Validation failures, ordered roughly by how the engine checks them.
var (
	ErrNotFound              = errors.New("discount code not found")
	ErrInactive              = errors.New("discount is not active")
	ErrExpired               = errors.New("discount is outside its validity window")
	ErrMinOrderNotMet        = errors.New("order amount below discount minimum")
	ErrUsageLimitReached     = errors.New("discount usage limit reached")
	ErrUserUsageLimitReached = errors.New("discount already used by this user")
	ErrMisconfigured         = errors.New("discount rule is misconfigured")
)

// Discount is one promotional rule. Exactly one of Percent and ReduceAmount
// is set: Percent reduces by a percentage of the relevant base, ReduceAmount
// by a fixed sum. A zero UsageLimit or UserUsageLimit means unlimited.
type Discount struct {
	ID             int64
	Code           string
	Name           string
	Type           Type
	Percent        *decimal.Decimal
	ReduceAmount   *decimal.Decimal
	Description    string
	IsActive       bool
	UsageLimit     int
	UserUsageLimit int
	MinOrderAmount decimal.Decimal
	StartDate      *time.Time
	EndDate        *time.Time
}

// Validate checks structural consistency of the rule itself.
func (d *Discount) Validate() error {
	if d.Type != TypeAmount && d.Type != TypeShip {
		return errors.Wrapf(ErrMisconfigured, "unknown type %q", d.Type)
	}
	if (d.Percent == nil) == (d.ReduceAmount == nil) {
		return errors.Wrap(ErrMisconfigured, "exactly one of percent and reduce_amount must be set")
	}
	if d.Percent != nil && (d.Percent.IsNegative() || d.Percent.GreaterThan(decimal.NewFromInt(100))) {
		return errors.Wrapf(ErrMisconfigured, "percent %s out of range", d.Percent)
	}
	if d.ReduceAmount != nil && d.ReduceAmount.IsNegative() {
		return errors.Wrapf(ErrMisconfigured, "reduce_amount %s is negative", d.ReduceAmount)
	}
	return nil
}

// Usage records one application of a discount to an order.
type Usage struct {
	DiscountID int64
	UserID     int64
	OrderID    int64
	UsedAt     time.Time
}

// Value is the computed effect of a discount on one order.
type Value struct {
	// AmountOff reduces the subtotal; never exceeds it.
	AmountOff decimal.Decimal
	// ShipOff reduces the shipping fee; never exceeds it.
	ShipOff decimal.Decimal
}

// Repository is the persistence contract the engine runs against.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Discount, error)
	// FindByCodeForUpdate additionally row-locks the discount for the
	// duration of the surrounding transaction.
	FindByCodeForUpdate(ctx context.Context, code string) (*Discount, error)
	CountUsage(ctx context.Context, discountID int64) (int, error)
	CountUserUsage(ctx context.Context, discountID, userID int64) (int, error)
	InsertUsage(ctx context.Context, u Usage) error
}
