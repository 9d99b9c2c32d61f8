package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Engine validates discount codes against their rules and usage history and
// computes the resulting reductions.
type Engine struct {
	repo   Repository
	filter *CodeFilter

	now func() time.Time
}

// NewEngine creates an Engine over the given repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// UseCodeFilter installs a bloom pre-screen: codes the filter rules out are
// rejected without a database round trip. Optional.
func (e *Engine) UseCodeFilter(f *CodeFilter) {
	e.filter = f
}

// ValidateAndGet runs the full eligibility check for a code and returns the
// rule when every gate passes. Call inside the order-creation transaction:
// the row lock taken here serializes concurrent claims on the last usage
// slot of a limited code.
func (e *Engine) ValidateAndGet(ctx context.Context, code string, userID int64, orderAmount decimal.Decimal) (*Discount, error) {
	if e.filter != nil && !e.filter.MayContain(code) {
		return nil, ErrNotFound
	}

	d, err := e.repo.FindByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, ErrInactive
	}

	now := e.now()
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return nil, ErrExpired
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return nil, ErrExpired
	}

	if orderAmount.LessThan(d.MinOrderAmount) {
		return nil, errors.Wrapf(ErrMinOrderNotMet, "minimum is %s", d.MinOrderAmount)
	}

	if d.UsageLimit > 0 {
		used, err := e.repo.CountUsage(ctx, d.ID)
		if err != nil {
			return nil, errors.Wrap(err, "count usage")
		}
		if used >= d.UsageLimit {
			return nil, ErrUsageLimitReached
		}
	}
	if d.UserUsageLimit > 0 {
		used, err := e.repo.CountUserUsage(ctx, d.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user usage")
		}
		if used >= d.UserUsageLimit {
			return nil, ErrUserUsageLimitReached
		}
	}

	return d, nil
}

// Compute turns a validated rule into concrete reductions for one order.
// An AMOUNT discount never exceeds the subtotal and a SHIP discount never
// exceeds the shipping fee, so totals cannot go negative.
func (e *Engine) Compute(d *Discount, orderAmount, shippingFee decimal.Decimal) (Value, error) {
	base := orderAmount
	if d.Type == TypeShip {
		base = shippingFee
	}

	var off decimal.Decimal
	switch {
	case d.Percent != nil:
		off = base.Mul(*d.Percent).Div(decimal.NewFromInt(100))
	case d.ReduceAmount != nil:
		off = *d.ReduceAmount
	default:
		return Value{}, ErrMisconfigured
	}
	if off.GreaterThan(base) {
		off = base
	}

	if d.Type == TypeShip {
		return Value{ShipOff: off}, nil
	}
	return Value{AmountOff: off}, nil
}

// RecordUsage persists one application of the discount; commit it together
// with the order it applies to.
func (e *Engine) RecordUsage(ctx context.Context, d *Discount, userID, orderID int64) error {
	u := Usage{
		DiscountID: d.ID,
		UserID:     userID,
		OrderID:    orderID,
		UsedAt:     e.now(),
	}
	if err := e.repo.InsertUsage(ctx, u); err != nil {
		return errors.Wrapf(err, "record usage of discount %q", d.Code)
	}
	return nil
}
