package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/keystone-pos/keystone-pos/internal/inventory"
	jobmetrics "github.com/keystone-pos/keystone-pos/internal/jobs"
)

// StockReader lists tracked products and reads their stock state.
type StockReader interface {
	ListTrackedProducts(ctx context.Context) ([]int64, error)
	SumMovements(ctx context.Context, productID int64) (int64, error)
	FindByProduct(ctx context.Context, productID int64) (inventory.Record, error)
}

// StockRepairer rewrites a drifted record from its movement history. The
// movement log stays untouched; only the cached projection moves.
type StockRepairer interface {
	ResyncFromMovements(ctx context.Context, productID int64) (inventory.Record, error)
}

// StockIntegrityJob sweeps every stock record and compares the cached
// quantity against the sum of its movement history.
type StockIntegrityJob struct {
	reader   StockReader
	repairer StockRepairer
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewStockIntegrityJob wires the sweep.
func NewStockIntegrityJob(reader StockReader, repairer StockRepairer, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockIntegrityJob {
	return &StockIntegrityJob{reader: reader, repairer: repairer, logger: logger, metrics: metrics}
}

// Handle processes TaskStockScan tasks.
func (j *StockIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("stock_scan")
	_, err := j.Run(ctx, payload)
	return tracker.End(err)
}

// Run executes one sweep.
func (j *StockIntegrityJob) Run(ctx context.Context, payload StockScanPayload) (ScanReport, error) {
	ids, err := j.reader.ListTrackedProducts(ctx)
	if err != nil {
		return ScanReport{}, err
	}

	results := make([]scanResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			res, err := j.scanProduct(gctx, id, payload.Repair)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanReport{}, err
	}

	report := ScanReport{Scanned: len(ids)}
	for _, res := range results {
		if res.drifted {
			report.Drifted++
		}
		if res.repaired {
			report.Repaired++
		}
	}
	if j.metrics != nil {
		j.metrics.AddDrift("stock", report.Drifted)
	}
	if j.logger != nil {
		j.logger.Info("stock scan finished",
			slog.Int("scanned", report.Scanned),
			slog.Int("drifted", report.Drifted),
			slog.Int("repaired", report.Repaired))
	}
	return report, nil
}

func (j *StockIntegrityJob) scanProduct(ctx context.Context, productID int64, repair bool) (scanResult, error) {
	rec, err := j.reader.FindByProduct(ctx, productID)
	if err != nil {
		return scanResult{}, err
	}
	expected, err := j.reader.SumMovements(ctx, productID)
	if err != nil {
		return scanResult{}, err
	}
	if rec.CurrentStock == expected {
		return scanResult{}, nil
	}

	if j.logger != nil {
		j.logger.Warn("stock record drifted from movement history",
			slog.Int64("product_id", productID),
			slog.Int64("cached", rec.CurrentStock),
			slog.Int64("replayed", expected))
	}
	res := scanResult{drifted: true}
	if repair && j.repairer != nil {
		if _, err := j.repairer.ResyncFromMovements(ctx, productID); err != nil {
			return res, err
		}
		res.repaired = true
	}
	return res, nil
}
