// Command seed-db loads catalog, inventory, and discount fixtures into
// PostgreSQL from JSON files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/discount"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/storage/postgres"
)

type variantJSON struct {
	Color           string          `json:"color"`
	Size            string          `json:"size"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
	Quantity        int             `json:"quantity"`
}

type productJSON struct {
	Name      string           `json:"name"`
	BasePrice decimal.Decimal  `json:"basePrice"`
	SalePrice *decimal.Decimal `json:"salePrice"`
	IsActive  bool             `json:"isActive"`
	Variants  []variantJSON    `json:"variants"`
}

type discountJSON struct {
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Type           string           `json:"type"`
	Percent        *decimal.Decimal `json:"percent"`
	ReduceAmount   *decimal.Decimal `json:"reduceAmount"`
	Description    string           `json:"description"`
	IsActive       bool             `json:"isActive"`
	UsageLimit     int              `json:"usageLimit"`
	UserUsageLimit int              `json:"userUsageLimit"`
	MinOrderAmount decimal.Decimal  `json:"minOrderAmount"`
	StartDate      *time.Time       `json:"startDate"`
	EndDate        *time.Time       `json:"endDate"`
}

func main() {
	var (
		databaseURL   string
		catalogFile   string
		discountsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&discountsFile, "discounts-file", "db/seed/discounts.json", "path to discounts JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, discountsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed")
}

func run(ctx context.Context, databaseURL, catalogFile, discountsFile string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedDiscounts(ctx, pool, discountsFile); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var products []productJSON
	if err := json.Unmarshal(raw, &products); err != nil {
		return errors.Wrap(err, "parse catalog file")
	}

	for _, p := range products {
		var productID int64
		err := pool.QueryRow(ctx,
			`INSERT INTO products (name, base_price, sale_price, is_active)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			p.Name, p.BasePrice, p.SalePrice, p.IsActive,
		).Scan(&productID)
		if err != nil {
			return errors.Wrapf(err, "insert product %q", p.Name)
		}

		for _, v := range p.Variants {
			var variantID int64
			err := pool.QueryRow(ctx,
				`INSERT INTO variants (product_id, color, size, additional_price)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				productID, v.Color, v.Size, v.AdditionalPrice,
			).Scan(&variantID)
			if err != nil {
				return errors.Wrapf(err, "insert variant %s/%s of %q", v.Color, v.Size, p.Name)
			}

			_, err = pool.Exec(ctx,
				`INSERT INTO inventory (variant_id, quantity, reserved_quantity)
				 VALUES ($1, $2, 0)`,
				variantID, v.Quantity,
			)
			if err != nil {
				return errors.Wrapf(err, "insert inventory for variant %d", variantID)
			}
		}
		slog.Info("seeded product", slog.String("name", p.Name), slog.Int("variants", len(p.Variants)))
	}
	return nil
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no discounts file, skipping", slog.String("path", path))
			return nil
		}
		return errors.Wrap(err, "read discounts file")
	}
	var rows []discountJSON
	if err := json.Unmarshal(raw, &rows); err != nil {
		return errors.Wrap(err, "parse discounts file")
	}

	repo := postgres.NewDiscountRepository(pool)
	for _, row := range rows {
		d := &discount.Discount{
			Code:           row.Code,
			Name:           row.Name,
			Type:           discount.Type(row.Type),
			Percent:        row.Percent,
			ReduceAmount:   row.ReduceAmount,
			Description:    row.Description,
			IsActive:       row.IsActive,
			UsageLimit:     row.UsageLimit,
			UserUsageLimit: row.UserUsageLimit,
			MinOrderAmount: row.MinOrderAmount,
			StartDate:      row.StartDate,
			EndDate:        row.EndDate,
		}
		if err := repo.Create(ctx, d); err != nil {
			return errors.Wrapf(err, "insert discount %q", row.Code)
		}
	}
	slog.Info("seeded discounts", slog.Int("count", len(rows)))
	return nil
}
