package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/discount"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/payment"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/shipping"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/gateway"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/handler"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/storage/postgres"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/pkg/health"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	txRunner := postgres.NewTxRunner(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	ledger := postgres.NewInventoryLedger(pool)

	// Discount engine with its bloom pre-screen.
	engine := discount.NewEngine(discountRepo)
	if filter, err := loadCodeFilter(ctx, cfg, discountRepo); err != nil {
		lg.Warn("Discount code filter unavailable", zap.Error(err))
	} else {
		engine.UseCodeFilter(filter)
	}

	// Shipping policy.
	freeThreshold, err := cfg.Shipping.FreeThresholdAmount()
	if err != nil {
		return errors.Wrap(err, "parse shipping free threshold")
	}
	flatFee, err := cfg.Shipping.FlatFeeAmount()
	if err != nil {
		return errors.Wrap(err, "parse shipping flat fee")
	}
	feeCalc := shipping.NewPolicyCalculator(freeThreshold, flatFee)

	// Order lifecycle + payment boundary.
	sm := order.NewStateMachine(orderRepo, ledger, txRunner)
	gw := gateway.NewClient(cfg.Payment.GatewayURL)
	reconciler := payment.NewReconciler(paymentRepo, orderRepo, ledger, sm, gw, txRunner)
	orderSvc := order.NewService(
		txRunner, orderRepo, cartRepo, catalogRepo, ledger,
		engine, feeCalc, reconciler, sm, cfg.Payment.GatewayMethodIDs,
	)

	// HTTP surface: probes + webhook/operator routes.
	h := handler.New(orderSvc, reconciler)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-User-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("neki-api", m.TracerProvider(), m.MeterProvider(), m.TextMapPropagator()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// loadCodeFilter restores the ingest tool's bloom sidecar when configured,
// falling back to a filter built from the live discounts table.
func loadCodeFilter(ctx context.Context, cfg *Config, repo *postgres.DiscountRepository) (*discount.CodeFilter, error) {
	if path := cfg.Payment.CodeFilterPath; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open code filter")
		}
		defer func() { _ = f.Close() }()
		return discount.ReadCodeFilter(f)
	}

	codes, err := repo.ListCodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list discount codes")
	}
	return discount.NewCodeFilter(codes), nil
}
