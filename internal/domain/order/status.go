package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/inventory"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned for any transition not in the table.
var ErrInvalidTransition = errors.New("invalid order status transition")

// InvalidTransitionError carries the rejected pair.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// allowedTransitions is the full lifecycle graph. DELIVERED and CANCELLED
// are terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// StateMachine validates and applies status transitions, performing the
// inventory side effects bound to specific edges.
type StateMachine struct {
	orders Repository
	ledger inventory.Ledger
	uow    UnitOfWork
}

// NewStateMachine creates a StateMachine over the given repository and
// inventory ledger. The unit of work scopes each ApplyBulk order; single
// Apply calls run in whatever transaction the caller already opened.
func NewStateMachine(orders Repository, ledger inventory.Ledger, uow UnitOfWork) *StateMachine {
	return &StateMachine{orders: orders, ledger: ledger, uow: uow}
}

// Apply transitions o to the target status, running inventory side effects
// and persisting the change. On any error o.Status is left unchanged.
//
// Side effects per edge:
//   - PENDING -> CONFIRMED: confirm every item's reservation. This is where
//     a COD order's stock is actually deducted, and where the gateway
//     success path lands.
//   - PENDING -> CANCELLED: the reservation is still just a hold, so it is
//     restored without touching on-hand quantity.
//   - CONFIRMED/SHIPPED -> CANCELLED: stock was already deducted, so the
//     units are released back to on-hand quantity.
//   - SHIPPED -> DELIVERED: pure status update.
func (m *StateMachine) Apply(ctx context.Context, o *Order, to Status) error {
	if !CanTransition(o.Status, to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}

	switch {
	case o.Status == StatusPending && to == StatusConfirmed:
		for _, it := range o.Items {
			if err := m.ledger.Confirm(ctx, it.VariantID, it.Quantity); err != nil {
				return errors.Wrapf(err, "confirm stock for variant %d", it.VariantID)
			}
		}
	case to == StatusCancelled && o.Status == StatusPending:
		for _, it := range o.Items {
			if err := m.ledger.RestoreReservation(ctx, it.VariantID, it.Quantity); err != nil {
				return errors.Wrapf(err, "restore reservation for variant %d", it.VariantID)
			}
		}
	case to == StatusCancelled:
		for _, it := range o.Items {
			if err := m.ledger.Release(ctx, it.VariantID, it.Quantity); err != nil {
				return errors.Wrapf(err, "release stock for variant %d", it.VariantID)
			}
		}
	}

	if err := m.orders.UpdateStatus(ctx, o.ID, to); err != nil {
		return errors.Wrap(err, "update order status")
	}
	o.Status = to
	return nil
}

// ApplyBulk applies the same target status to many orders, skipping (and
// logging) any order whose current status does not permit the move. It
// returns the IDs that were updated.
//
// Each order gets its own transaction: a failure rolls back that order's
// inventory side effects together with its status write, while orders
// already committed stay committed.
func (m *StateMachine) ApplyBulk(ctx context.Context, ids []int64, to Status) ([]int64, error) {
	lg := zctx.From(ctx)

	updated := make([]int64, 0, len(ids))
	for _, id := range ids {
		o, err := m.orders.ByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				lg.Warn("bulk status update: order not found", zap.Int64("order_id", id))
				continue
			}
			return updated, errors.Wrapf(err, "load order %d", id)
		}

		err = m.uow.WithinTx(ctx, func(ctx context.Context) error {
			return m.Apply(ctx, o, to)
		})
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				lg.Warn("bulk status update: transition not allowed",
					zap.Int64("order_id", id),
					zap.String("from", string(o.Status)),
					zap.String("to", string(to)),
				)
				continue
			}
			return updated, errors.Wrapf(err, "update order %d", id)
		}
		updated = append(updated, id)
	}
	return updated, nil
}
