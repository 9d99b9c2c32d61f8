package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/inventory"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
)

// Compile-time check: the reconciler is the orchestrator's payment boundary.
var _ order.PaymentBoundary = (*Reconciler)(nil)

// Reconciler creates payment records at checkout and reconciles gateway
// webhook / manual outcomes into the ledger and state machine.
type Reconciler struct {
	payments Repository
	orders   order.Repository
	ledger   inventory.Ledger
	sm       *order.StateMachine
	gateway  Gateway
	uow      order.UnitOfWork

	now func() time.Time
}

// NewReconciler wires the payment boundary.
func NewReconciler(
	payments Repository,
	orders order.Repository,
	ledger inventory.Ledger,
	sm *order.StateMachine,
	gateway Gateway,
	uow order.UnitOfWork,
) *Reconciler {
	return &Reconciler{
		payments: payments,
		orders:   orders,
		ledger:   ledger,
		sm:       sm,
		gateway:  gateway,
		uow:      uow,
		now:      time.Now,
	}
}

// Create inserts a PENDING payment correlated to the order and, when
// wantLink is set, requests a hosted checkout link from the gateway.
// Runs inside the order-creation unit of work.
func (r *Reconciler) Create(ctx context.Context, o *order.Order, wantLink bool) (string, error) {
	p := &Payment{
		OrderID:         o.ID,
		PaymentMethodID: o.PaymentMethodID,
		Amount:          o.FinalAmount,
		TransactionID:   CorrelationID(o.Number),
		Status:          StatusPending,
	}
	if err := r.payments.Create(ctx, p); err != nil {
		return "", errors.Wrap(err, "create payment record")
	}

	if !wantLink {
		return "", nil
	}
	link, err := r.gateway.CreatePaymentLink(ctx, o)
	if err != nil {
		return "", errors.Wrap(err, "create payment link")
	}
	return link, nil
}

// HandleOutcome reconciles a gateway result delivered for the given
// correlation id.
//
// Success confirms the order (PENDING -> CONFIRMED, deducting stock);
// failure marks the payment FAILED and restores every item's reservation.
// Redelivery for a payment already in a terminal state is a no-op: the
// gateway retries webhooks, and inventory must move exactly once.
func (r *Reconciler) HandleOutcome(ctx context.Context, correlationID string, succeeded bool, rawCode string) error {
	lg := zctx.From(ctx)

	p, err := r.payments.ByTransactionID(ctx, correlationID)
	if err != nil {
		return err
	}

	if p.Status != StatusPending {
		lg.Info("payment outcome redelivered, ignoring",
			zap.String("transaction_id", correlationID),
			zap.String("status", string(p.Status)),
			zap.String("result_code", rawCode),
		)
		return nil
	}

	o, err := r.orders.ByID(ctx, p.OrderID)
	if err != nil {
		return errors.Wrapf(err, "load order %d", p.OrderID)
	}

	if succeeded {
		return r.uow.WithinTx(ctx, func(ctx context.Context) error {
			if err := r.payments.MarkPaid(ctx, p.ID, r.now()); err != nil {
				return errors.Wrap(err, "mark payment paid")
			}
			return r.sm.Apply(ctx, o, order.StatusConfirmed)
		})
	}

	lg.Warn("payment failed, restoring reservations",
		zap.Int64("order_id", o.ID),
		zap.String("result_code", rawCode),
	)
	return r.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.payments.MarkFailed(ctx, p.ID); err != nil {
			return errors.Wrap(err, "mark payment failed")
		}
		for _, it := range o.Items {
			if err := r.ledger.RestoreReservation(ctx, it.VariantID, it.Quantity); err != nil {
				return errors.Wrapf(err, "restore reservation for variant %d", it.VariantID)
			}
		}
		return nil
	})
}
