// Package payment owns payment records and reconciles gateway webhook and
// manual COD outcomes back into the inventory ledger and order lifecycle.
package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
)

// Status is the payment lifecycle state. PAID and FAILED are terminal.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// ResultCodeSuccess is the gateway result code meaning the payment went
// through; every other value is a failure.
const ResultCodeSuccess = "00"

// ErrNotFound is returned when no payment matches a correlation id.
var ErrNotFound = errors.New("payment not found")

// Payment is one payment attempt for an order, created PENDING at
// order-creation time.
type Payment struct {
	ID              int64
	OrderID         int64
	PaymentMethodID int64
	Amount          decimal.Decimal
	TransactionID   string
	Status          Status
	PaidAt          *time.Time
	CreatedAt       time.Time
}

// CorrelationID derives the gateway transaction id for an order number.
func CorrelationID(orderNumber int64) string {
	return "ORD-" + strconv.FormatInt(orderNumber, 10)
}

// Repository defines persistence for payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	ByTransactionID(ctx context.Context, txnID string) (*Payment, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) error
	MarkFailed(ctx context.Context, id int64) error
}

// Gateway is the external payment provider boundary.
type Gateway interface {
	// CreatePaymentLink requests a hosted checkout link for the order.
	CreatePaymentLink(ctx context.Context, o *order.Order) (string, error)
}
