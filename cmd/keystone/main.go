package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/keystone-pos/keystone-pos/internal/accounting/accounts"
	"github.com/keystone-pos/keystone-pos/internal/accounting/journals"
	"github.com/keystone-pos/keystone-pos/internal/accounting/periods"
	"github.com/keystone-pos/keystone-pos/internal/accounting/reports"
	"github.com/keystone-pos/keystone-pos/internal/app"
	"github.com/keystone-pos/keystone-pos/internal/inventory"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/masterdata/products"
	"github.com/keystone-pos/keystone-pos/internal/masterdata/suppliers"
	"github.com/keystone-pos/keystone-pos/internal/observability"
	"github.com/keystone-pos/keystone-pos/internal/platform/cache"
	"github.com/keystone-pos/keystone-pos/internal/platform/db"
	"github.com/keystone-pos/keystone-pos/internal/platform/httpx"
	"github.com/keystone-pos/keystone-pos/internal/sales/customers"
	"github.com/keystone-pos/keystone-pos/internal/sales/orders"
	"github.com/keystone-pos/keystone-pos/internal/shared"
	"github.com/keystone-pos/keystone-pos/jobs"
)

// orderCosts resolves the cost fallbacks order completion freezes: the
// moving-average cost from the inventory record first, then the static
// product cost from master data.
type orderCosts struct {
	records  *inventory.Repository
	products *products.Service
}

func (c orderCosts) AverageCost(ctx context.Context, productID int64) (float64, error) {
	rec, err := c.records.FindByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return rec.AverageCost, nil
}

func (c orderCosts) ProductCost(ctx context.Context, productID int64) (float64, error) {
	return c.products.ProductCost(ctx, productID)
}

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := runMigrations(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	snapshotCache := reports.NewSnapshotCache(redisClient, cfg.SnapshotTTL)

	periodsRepo := periods.NewRepository(pool)
	periodGuard := periods.NewGuard(periodsRepo)
	periodsService := periods.NewService(periodsRepo, auditLogger, snapshotCache)
	periodsHandler := periods.NewHandler(logger, periodsService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, periodGuard, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, idempotencyStore, inventory.ServiceConfig{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	journalsService := journals.NewService(journals.NewRepository(pool), periodGuard, auditLogger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	reportsService := reports.NewService(reports.NewRepository(pool), snapshotCache, periodGuard)
	reportsHandler := reports.NewHandler(logger, reportsService)

	accountsService := accounts.NewService(accounts.NewRepository(pool))
	accountsHandler := accounts.NewHandler(logger, accountsService)

	productsService := products.NewService(products.NewRepository(pool), auditLogger)
	productsHandler := products.NewHandler(logger, productsService)

	suppliersService := suppliers.NewService(suppliers.NewRepository(pool), auditLogger)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService)

	customersService := customers.NewService(customers.NewRepository(pool), auditLogger)
	customersHandler := customers.NewHandler(logger, customersService)

	ordersRepo := orders.NewRepository(pool)
	costs := orderCosts{records: inventoryRepo, products: productsService}
	ordersService := orders.NewService(ordersRepo, inventoryService, costs, ledgerService, periodGuard, auditLogger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	metrics := observability.NewMetrics()
	httpx.SetRejectionObserver(metrics.ObserveRejection)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventoryHandler,
		LedgerHandler:    ledgerHandler,
		PeriodsHandler:   periodsHandler,
		JournalsHandler:  journalsHandler,
		ReportsHandler:   reportsHandler,
		AccountsHandler:  accountsHandler,
		OrdersHandler:    ordersHandler,
		CustomersHandler: customersHandler,
		ProductsHandler:  productsHandler,
		SuppliersHandler: suppliersHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
