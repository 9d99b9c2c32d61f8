package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/discount"
)

const (
	selectDiscountSQL = `SELECT id, code, name, discount_type, percent,
			reduce_amount, description, is_active, usage_limit,
			user_usage_limit, min_order_amount, start_date, end_date
		FROM discounts WHERE UPPER(code) = UPPER($1)`

	// FOR UPDATE serializes concurrent validations of the same code for the
	// duration of the order-creation transaction.
	selectDiscountForUpdateSQL = selectDiscountSQL + ` FOR UPDATE`

	countUsageSQL = `SELECT COUNT(*) FROM discount_usages WHERE discount_id = $1`

	countUserUsageSQL = `SELECT COUNT(*) FROM discount_usages
		WHERE discount_id = $1 AND user_id = $2`

	insertUsageSQL = `INSERT INTO discount_usages (discount_id, user_id, order_id, used_at)
		VALUES ($1, $2, $3, $4)`

	insertDiscountSQL = `INSERT INTO discounts (
			code, name, discount_type, percent, reduce_amount, description,
			is_active, usage_limit, user_usage_limit, min_order_amount,
			start_date, end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO NOTHING
		RETURNING id`

	listDiscountCodesSQL = `SELECT code FROM discounts WHERE is_active = TRUE`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a discount by its code (case-insensitive).
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	return r.find(ctx, selectDiscountSQL, code)
}

// FindByCodeForUpdate looks up a discount and takes a row lock on it.
// Meaningful inside a transaction; outside one it degrades to FindByCode.
func (r *DiscountRepository) FindByCodeForUpdate(ctx context.Context, code string) (*discount.Discount, error) {
	return r.find(ctx, selectDiscountForUpdateSQL, code)
}

// CountUsage returns the aggregate number of recorded usages.
func (r *DiscountRepository) CountUsage(ctx context.Context, discountID int64) (int, error) {
	var n int
	err := queryEngine(ctx, r.pool).QueryRow(ctx, countUsageSQL, discountID).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "count usage of discount %d", discountID)
	}
	return n, nil
}

// CountUserUsage returns one user's recorded usages of one discount.
func (r *DiscountRepository) CountUserUsage(ctx context.Context, discountID, userID int64) (int, error) {
	var n int
	err := queryEngine(ctx, r.pool).QueryRow(ctx, countUserUsageSQL, discountID, userID).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "count user usage of discount %d", discountID)
	}
	return n, nil
}

// InsertUsage writes a usage row; committed with the order it belongs to.
func (r *DiscountRepository) InsertUsage(ctx context.Context, u discount.Usage) error {
	_, err := queryEngine(ctx, r.pool).Exec(ctx, insertUsageSQL,
		u.DiscountID, u.UserID, u.OrderID, u.UsedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert usage of discount %d", u.DiscountID)
	}
	return nil
}

// Create inserts a new discount rule, skipping codes that already exist.
// Used by the seed and ingest tools.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	if err := d.Validate(); err != nil {
		return err
	}
	err := queryEngine(ctx, r.pool).QueryRow(ctx, insertDiscountSQL,
		d.Code, d.Name, string(d.Type), d.Percent, d.ReduceAmount,
		d.Description, d.IsActive, d.UsageLimit, d.UserUsageLimit,
		d.MinOrderAmount, d.StartDate, d.EndDate,
	).Scan(&d.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict: the code exists already.
			return nil
		}
		return errors.Wrapf(err, "insert discount %q", d.Code)
	}
	return nil
}

// ListCodes returns every active code, used to warm the bloom pre-screen.
func (r *DiscountRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := queryEngine(ctx, r.pool).Query(ctx, listDiscountCodesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discount codes")
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var c string
		err := row.Scan(&c)
		return c, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan discount codes")
	}
	return codes, nil
}

func (r *DiscountRepository) find(ctx context.Context, sql, code string) (*discount.Discount, error) {
	var (
		d     discount.Discount
		dtype string
	)
	err := queryEngine(ctx, r.pool).QueryRow(ctx, sql, code).Scan(
		&d.ID, &d.Code, &d.Name, &dtype, &d.Percent, &d.ReduceAmount,
		&d.Description, &d.IsActive, &d.UsageLimit, &d.UserUsageLimit,
		&d.MinOrderAmount, &d.StartDate, &d.EndDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find discount by code %q", code)
	}
	d.Type = discount.Type(dtype)
	return &d, nil
}
