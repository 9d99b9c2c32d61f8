package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/inventory"
)

const (
	getInventorySQL = `SELECT variant_id, quantity, reserved_quantity
		FROM inventory WHERE variant_id = $1`

	// The availability check and the increment are one conditional UPDATE:
	// two racing reservations on the same variant serialize on the row and
	// the loser sees the already-updated counters.
	reserveSQL = `UPDATE inventory
		SET reserved_quantity = reserved_quantity + $2
		WHERE variant_id = $1 AND quantity - reserved_quantity >= $2`

	confirmSQL = `UPDATE inventory
		SET quantity = GREATEST(quantity - $2, 0),
		    reserved_quantity = GREATEST(reserved_quantity - $2, 0)
		WHERE variant_id = $1`

	restoreReservationSQL = `UPDATE inventory
		SET reserved_quantity = GREATEST(reserved_quantity - $2, 0)
		WHERE variant_id = $1`

	releaseSQL = `UPDATE inventory
		SET quantity = quantity + $2
		WHERE variant_id = $1`

	adjustSQL = `UPDATE inventory
		SET quantity = GREATEST(quantity + $2, 0)
		WHERE variant_id = $1`

	setQuantitySQL = `UPDATE inventory
		SET quantity = $2
		WHERE variant_id = $1`
)

var _ inventory.Ledger = (*InventoryLedger)(nil)

// InventoryLedger implements inventory.Ledger with single-statement
// conditional updates so every operation is atomic at the storage layer.
type InventoryLedger struct {
	pool *pgxpool.Pool
}

// NewInventoryLedger returns an InventoryLedger that uses the given pool.
func NewInventoryLedger(pool *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{pool: pool}
}

// Get returns the current record for a variant.
func (l *InventoryLedger) Get(ctx context.Context, variantID int64) (*inventory.Record, error) {
	var rec inventory.Record
	err := queryEngine(ctx, l.pool).
		QueryRow(ctx, getInventorySQL, variantID).
		Scan(&rec.VariantID, &rec.Quantity, &rec.Reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrVariantNotFound
		}
		return nil, errors.Wrapf(err, "get inventory for variant %d", variantID)
	}
	return &rec, nil
}

// Reserve places a hold of qty units in one conditional update.
func (l *InventoryLedger) Reserve(ctx context.Context, variantID int64, qty int) error {
	if err := inventory.CheckQuantity(qty, inventory.MaxLineQuantity); err != nil {
		return err
	}

	tag, err := queryEngine(ctx, l.pool).Exec(ctx, reserveSQL, variantID, qty)
	if err != nil {
		return errors.Wrapf(err, "reserve %d of variant %d", qty, variantID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The update matched nothing: missing row or not enough available.
	rec, err := l.Get(ctx, variantID)
	if err != nil {
		return err
	}
	return &inventory.InsufficientStockError{
		VariantID: variantID,
		Requested: qty,
		Available: rec.Available(),
	}
}

// Confirm converts a hold into a permanent deduction.
func (l *InventoryLedger) Confirm(ctx context.Context, variantID int64, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	return l.exec(ctx, confirmSQL, variantID, qty, "confirm")
}

// RestoreReservation gives back a hold without touching quantity.
func (l *InventoryLedger) RestoreReservation(ctx context.Context, variantID int64, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	return l.exec(ctx, restoreReservationSQL, variantID, qty, "restore reservation")
}

// Release adds qty units back to on-hand quantity.
func (l *InventoryLedger) Release(ctx context.Context, variantID int64, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	return l.exec(ctx, releaseSQL, variantID, qty, "release")
}

// Adjust applies an administrative correction, flooring quantity at zero.
func (l *InventoryLedger) Adjust(ctx context.Context, variantID int64, delta int, reason string) error {
	zctx.From(ctx).Info("inventory adjustment",
		zap.Int64("variant_id", variantID),
		zap.Int("delta", delta),
		zap.String("reason", reason),
	)
	return l.exec(ctx, adjustSQL, variantID, delta, "adjust")
}

// SetQuantity sets the absolute on-hand quantity.
func (l *InventoryLedger) SetQuantity(ctx context.Context, variantID int64, qty int) error {
	if qty < 0 {
		return inventory.ErrInvalidQuantity
	}
	return l.exec(ctx, setQuantitySQL, variantID, qty, "set quantity")
}

func (l *InventoryLedger) exec(ctx context.Context, sql string, variantID int64, arg int, op string) error {
	tag, err := queryEngine(ctx, l.pool).Exec(ctx, sql, variantID, arg)
	if err != nil {
		return errors.Wrapf(err, "%s for variant %d", op, variantID)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrVariantNotFound
	}
	return nil
}
