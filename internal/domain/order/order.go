// Package order contains the order model, its status state machine, and the
// checkout orchestrator that prices orders, reserves stock, applies
// discounts, and hands off to the payment boundary.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order operations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrAccessDenied   = errors.New("order does not belong to caller")
	ErrCartEmpty      = errors.New("cart is empty")
	ErrNumberConflict = errors.New("order number already taken")
	ErrNotCancellable = errors.New("order can no longer be cancelled")
)

// InactiveProductError indicates a line references a product that is no
// longer for sale.
type InactiveProductError struct {
	ProductID int64
}

func (e *InactiveProductError) Error() string {
	return fmt.Sprintf("product %d is not active", e.ProductID)
}

// Address holds the delivery destination captured on the order.
type Address struct {
	Receiver string
	Phone    string
	District string
	Ward     string
	Detail   string
}

// Item is one order line. UnitPrice is captured at creation time and is
// immutable afterwards.
type Item struct {
	ID        int64
	OrderID   int64
	VariantID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is a persisted customer order.
// Invariant: FinalAmount = TotalAmount + ShippingFee - DiscountAmount, all
// three inputs non-negative. Orders are never physically deleted; terminal
// statuses are DELIVERED and CANCELLED.
type Order struct {
	ID              int64
	Number          int64
	UserID          int64
	Status          Status
	TotalAmount     decimal.Decimal
	ShippingFee     decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalAmount     decimal.Decimal
	Items           []Item
	Address         Address
	PaymentMethodID int64
	Note            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanCancel reports whether the customer-facing cancel path is still open.
func (o *Order) CanCancel() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// Repository defines persistence for orders and their items.
type Repository interface {
	// Create inserts the order and its items, filling in generated IDs.
	// It returns ErrNumberConflict when the order number is already taken.
	Create(ctx context.Context, o *Order) error
	// ByID loads an order with its items.
	ByID(ctx context.Context, id int64) (*Order, error)
	// ByNumber loads an order with its items by its public number.
	ByNumber(ctx context.Context, number int64) (*Order, error)
	// UpdateStatus persists a status change and bumps updated_at.
	UpdateStatus(ctx context.Context, id int64, st Status) error
	// AppendNote appends a line to the order note.
	AppendNote(ctx context.Context, id int64, note string) error
}

// UnitOfWork runs fn inside one transactional boundary: everything the
// callback persists commits or rolls back together.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentBoundary is implemented by the payment component. Create inserts a
// pending payment correlated to the order and, when wantLink is set,
// requests a checkout link from the external gateway.
type PaymentBoundary interface {
	Create(ctx context.Context, o *Order, wantLink bool) (link string, err error)
}
