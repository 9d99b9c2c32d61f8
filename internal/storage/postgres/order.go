package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
			order_number, user_id, status, total_amount, shipping_fee,
			discount_amount, final_amount, receiver, phone, district, ward,
			address_detail, payment_method_id, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, variant_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	selectOrderSQL = `SELECT id, order_number, user_id, status, total_amount,
			shipping_fee, discount_amount, final_amount, receiver, phone,
			district, ward, address_detail, payment_method_id, note,
			created_at, updated_at
		FROM orders`

	selectOrderItemsSQL = `SELECT id, order_id, variant_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1`

	appendOrderNoteSQL = `UPDATE orders
		SET note = CASE WHEN note = '' THEN $2 ELSE note || E'\n' || $2 END,
		    updated_at = now()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order and its items, filling in generated IDs. A
// unique violation on order_number maps to order.ErrNumberConflict so the
// orchestrator can regenerate and retry.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	q := queryEngine(ctx, r.pool)

	err := q.QueryRow(ctx, insertOrderSQL,
		o.Number, o.UserID, string(o.Status), o.TotalAmount, o.ShippingFee,
		o.DiscountAmount, o.FinalAmount, o.Address.Receiver, o.Address.Phone,
		o.Address.District, o.Address.Ward, o.Address.Detail,
		o.PaymentMethodID, o.Note,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrNumberConflict
		}
		return errors.Wrapf(err, "insert order %d", o.Number)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err := q.QueryRow(ctx, insertOrderItemSQL,
			o.ID, it.VariantID, it.Quantity, it.UnitPrice,
		).Scan(&it.ID)
		if err != nil {
			return errors.Wrapf(err, "insert order item for variant %d", it.VariantID)
		}
	}
	return nil
}

// ByID loads an order with its items.
func (r *OrderRepository) ByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.selectOne(ctx, selectOrderSQL+` WHERE id = $1`, id)
}

// ByNumber loads an order with its items by its public number.
func (r *OrderRepository) ByNumber(ctx context.Context, number int64) (*order.Order, error) {
	return r.selectOne(ctx, selectOrderSQL+` WHERE order_number = $1`, number)
}

// UpdateStatus persists a status change and bumps updated_at.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, st order.Status) error {
	tag, err := queryEngine(ctx, r.pool).Exec(ctx, updateOrderStatusSQL, id, string(st))
	if err != nil {
		return errors.Wrapf(err, "update status of order %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// AppendNote appends a line to the order note.
func (r *OrderRepository) AppendNote(ctx context.Context, id int64, note string) error {
	tag, err := queryEngine(ctx, r.pool).Exec(ctx, appendOrderNoteSQL, id, note)
	if err != nil {
		return errors.Wrapf(err, "append note to order %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) selectOne(ctx context.Context, sql string, arg any) (*order.Order, error) {
	q := queryEngine(ctx, r.pool)

	var o order.Order
	var status string
	err := q.QueryRow(ctx, sql, arg).Scan(
		&o.ID, &o.Number, &o.UserID, &status, &o.TotalAmount,
		&o.ShippingFee, &o.DiscountAmount, &o.FinalAmount,
		&o.Address.Receiver, &o.Address.Phone, &o.Address.District,
		&o.Address.Ward, &o.Address.Detail, &o.PaymentMethodID, &o.Note,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "select order")
	}
	o.Status = order.Status(status)

	rows, err := q.Query(ctx, selectOrderItemsSQL, o.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "select items of order %d", o.ID)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.Quantity, &it.UnitPrice)
		return it, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan items of order %d", o.ID)
	}

	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
