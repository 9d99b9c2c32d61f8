package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/cart"
)

const (
	selectCartItemsSQL = `SELECT variant_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY id`

	removeCartVariantsSQL = `DELETE FROM cart_items
		WHERE user_id = $1 AND variant_id = ANY($2)`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ItemsByUser returns every line in the user's cart.
func (r *CartRepository) ItemsByUser(ctx context.Context, userID int64) ([]cart.Item, error) {
	rows, err := queryEngine(ctx, r.pool).Query(ctx, selectCartItemsSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "load cart of user %d", userID)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.VariantID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan cart of user %d", userID)
	}
	return items, nil
}

// RemoveVariants deletes only the given variants from the user's cart.
func (r *CartRepository) RemoveVariants(ctx context.Context, userID int64, variantIDs []int64) error {
	_, err := queryEngine(ctx, r.pool).Exec(ctx, removeCartVariantsSQL, userID, variantIDs)
	if err != nil {
		return errors.Wrapf(err, "remove variants from cart of user %d", userID)
	}
	return nil
}

// Clear removes all lines from the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := queryEngine(ctx, r.pool).Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return errors.Wrapf(err, "clear cart of user %d", userID)
	}
	return nil
}
