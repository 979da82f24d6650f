package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/keystone-pos/keystone-pos/internal/app"
	"github.com/keystone-pos/keystone-pos/internal/inventory"
	jobmetrics "github.com/keystone-pos/keystone-pos/internal/jobs"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/platform/db"
	"github.com/keystone-pos/keystone-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	// The scans only read history and rewrite cached projections, so the
	// worker wires repositories without the HTTP-facing audit plumbing.
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, nil, nil)
	balanceJob := jobs.NewBalanceIntegrityJob(ledgerRepo, ledgerService, logger, metrics)

	inventoryRepo := inventory.NewRepository(pool)
	stockJob := jobs.NewStockIntegrityJob(inventoryRepo, inventoryRepo, logger, metrics)

	balanceScan, err := jobs.NewBalanceScanTask(jobs.BalanceScanPayload{})
	if err != nil {
		logger.Error("build balance scan task", slog.Any("error", err))
		os.Exit(1)
	}
	stockScan, err := jobs.NewStockScanTask(jobs.StockScanPayload{})
	if err != nil {
		logger.Error("build stock scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBalanceScan, Handler: balanceJob.Handle},
			{Type: jobs.TaskStockScan, Handler: stockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: balanceScan, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: stockScan, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
