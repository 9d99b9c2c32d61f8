package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/payment"
)

const (
	insertPaymentSQL = `INSERT INTO payments (
			order_id, payment_method_id, amount, transaction_id, status
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	selectPaymentSQL = `SELECT id, order_id, payment_method_id, amount,
			transaction_id, status, paid_at, created_at
		FROM payments WHERE transaction_id = $1`

	markPaidSQL = `UPDATE payments SET status = 'PAID', paid_at = $2
		WHERE id = $1 AND status = 'PENDING'`

	markFailedSQL = `UPDATE payments SET status = 'FAILED'
		WHERE id = $1 AND status = 'PENDING'`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create inserts a payment row.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	err := queryEngine(ctx, r.pool).QueryRow(ctx, insertPaymentSQL,
		p.OrderID, p.PaymentMethodID, p.Amount, p.TransactionID, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert payment for order %d", p.OrderID)
	}
	return nil
}

// ByTransactionID looks up a payment by its gateway correlation id.
func (r *PaymentRepository) ByTransactionID(ctx context.Context, txnID string) (*payment.Payment, error) {
	var (
		p      payment.Payment
		status string
	)
	err := queryEngine(ctx, r.pool).QueryRow(ctx, selectPaymentSQL, txnID).Scan(
		&p.ID, &p.OrderID, &p.PaymentMethodID, &p.Amount,
		&p.TransactionID, &status, &p.PaidAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find payment %q", txnID)
	}
	p.Status = payment.Status(status)
	return &p, nil
}

// MarkPaid transitions a PENDING payment to PAID and stamps paid_at. Guarded
// on the current status so a redelivered webhook cannot flip it twice.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	return r.mark(ctx, markPaidSQL, id, paidAt)
}

// MarkFailed transitions a PENDING payment to FAILED.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.mark(ctx, markFailedSQL, id)
}

func (r *PaymentRepository) mark(ctx context.Context, sql string, args ...any) error {
	tag, err := queryEngine(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "update payment status")
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}
