package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/catalog"
)

const (
	selectProductSQL = `SELECT id, name, base_price, sale_price, is_active
		FROM products WHERE id = $1`

	selectVariantSQL = `SELECT id, product_id, color, size, additional_price
		FROM variants WHERE id = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements the read-only catalog.Repository contract.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ProductByID returns a single product by its identifier.
func (r *CatalogRepository) ProductByID(ctx context.Context, id int64) (*catalog.Product, error) {
	var p catalog.Product
	err := queryEngine(ctx, r.pool).QueryRow(ctx, selectProductSQL, id).Scan(
		&p.ID, &p.Name, &p.BasePrice, &p.SalePrice, &p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// VariantByID returns a single variant by its identifier.
func (r *CatalogRepository) VariantByID(ctx context.Context, id int64) (*catalog.Variant, error) {
	var v catalog.Variant
	err := queryEngine(ctx, r.pool).QueryRow(ctx, selectVariantSQL, id).Scan(
		&v.ID, &v.ProductID, &v.Color, &v.Size, &v.AdditionalPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, errors.Wrapf(err, "get variant %d", id)
	}
	return &v, nil
}
