package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/keystone-pos/keystone-pos/internal/app"
	"github.com/keystone-pos/keystone-pos/jobs"
)

// keystone-scan enqueues an integrity sweep out of band, for operators who
// do not want to wait for the nightly schedule. With -repair the scan also
// rewrites drifted caches from replayed history.
func main() {
	var (
		job     = flag.String("job", "balance", "scan to enqueue: balance or stock")
		repair  = flag.Bool("repair", false, "rewrite drifted caches instead of only reporting them")
		inspect = flag.Bool("inspect", false, "print queue depth after enqueueing")
	)
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("client close", slog.Any("error", err))
		}
	}()

	ctx := context.Background()

	var info *asynq.TaskInfo
	switch *job {
	case "balance":
		info, err = client.EnqueueBalanceScan(ctx, jobs.BalanceScanPayload{Repair: *repair})
	case "stock":
		info, err = client.EnqueueStockScan(ctx, jobs.StockScanPayload{Repair: *repair})
	default:
		logger.Error("unsupported job", slog.String("job", *job))
		os.Exit(2)
	}
	if err != nil {
		logger.Error("enqueue scan", slog.String("job", *job), slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Printf("enqueued %s scan: id=%s queue=%s\n", *job, info.ID, info.Queue)

	if *inspect {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = inspector.Close() }()
		queueInfo, err := inspector.GetQueueInfo(jobs.QueueDefault)
		if err != nil {
			logger.Warn("inspect queue", slog.Any("error", err))
			return
		}
		fmt.Printf("queue %s: pending=%d active=%d scheduled=%d retry=%d\n",
			queueInfo.Queue, queueInfo.Pending, queueInfo.Active, queueInfo.Scheduled, queueInfo.Retry)
	}
}
