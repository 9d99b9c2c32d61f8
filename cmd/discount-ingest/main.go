// Command discount-ingest bulk-loads promotional discount codes from
// gzipped text files (one code per line) into PostgreSQL and writes a bloom
// filter sidecar the API server uses to pre-screen code lookups.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/discount"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/storage/postgres"
)

const (
	minCodeLen    = 6
	maxCodeLen    = 12
	progressEvery = 1_000_000
)

// defaultRule is the discount applied to every ingested promo code: 10%
// off the subtotal, once per user.
var defaultRule = struct {
	percent        decimal.Decimal
	userUsageLimit int
	description    string
}{
	percent:        decimal.NewFromInt(10),
	userUsageLimit: 1,
	description:    "Promo code: 10% off",
}

func main() {
	var (
		dataDir     string
		filterPath  string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz code files")
	flag.StringVar(&filterPath, "filter-out", "discount-codes.bloom", "bloom filter output path")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, filterPath, databaseURL); err != nil {
		slog.Error("discount ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("discount ingest completed")
}

func run(ctx context.Context, dataDir, filterPath, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz files in %s", dataDir)
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	repo := postgres.NewDiscountRepository(pool)

	filter := discount.NewCodeFilter(nil)
	var (
		mu    sync.Mutex
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, file := range files {
		g.Go(func() error {
			codes, err := readCodes(gctx, file)
			if err != nil {
				return errors.Wrapf(err, "read %s", file)
			}

			for _, code := range codes {
				d := &discount.Discount{
					Code:           code,
					Name:           code,
					Type:           discount.TypeAmount,
					Percent:        &defaultRule.percent,
					Description:    defaultRule.description,
					IsActive:       true,
					UserUsageLimit: defaultRule.userUsageLimit,
					MinOrderAmount: decimal.Zero,
				}
				if err := repo.Create(gctx, d); err != nil {
					return errors.Wrapf(err, "insert code %q", code)
				}

				mu.Lock()
				filter.Add(code)
				total++
				if total%progressEvery == 0 {
					slog.Info("progress", slog.Int("codes", total))
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := os.Create(filterPath)
	if err != nil {
		return errors.Wrap(err, "create filter file")
	}
	defer func() { _ = out.Close() }()
	if _, err := filter.WriteTo(out); err != nil {
		return errors.Wrap(err, "write filter")
	}

	slog.Info("ingested codes", slog.Int("count", total), slog.String("filter", filterPath))
	return nil
}

// readCodes decompresses one file and returns its valid codes.
func readCodes(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip stream")
	}
	defer func() { _ = gz.Close() }()

	var codes []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		codes = append(codes, code)
	}
	return codes, sc.Err()
}
