package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/keystone-pos/keystone-pos/internal/jobs"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// BalanceReader lists parties and reads their cached balance columns.
type BalanceReader interface {
	ListEntities(ctx context.Context, entityType ledger.EntityType) ([]int64, error)
	GetCachedBalance(ctx context.Context, entityType ledger.EntityType, entityID int64) (ledger.Balance, error)
}

// BalanceReplayer computes the authoritative balance and can rewrite the
// cached copy from it.
type BalanceReplayer interface {
	AuthoritativeBalance(ctx context.Context, entityType ledger.EntityType, entityID int64) (ledger.Balance, error)
	RefreshEntityBalance(ctx context.Context, entityType ledger.EntityType, entityID int64) (ledger.Balance, error)
}

// ScanReport summarises one integrity sweep.
type ScanReport struct {
	Scanned  int `json:"scanned"`
	Drifted  int `json:"drifted"`
	Repaired int `json:"repaired"`
}

// BalanceIntegrityJob sweeps every customer and supplier, replaying their
// ledger history and comparing it with the cached summary columns. Drift
// means something wrote the cache outside the ledger path.
type BalanceIntegrityJob struct {
	reader   BalanceReader
	replayer BalanceReplayer
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewBalanceIntegrityJob wires the sweep.
func NewBalanceIntegrityJob(reader BalanceReader, replayer BalanceReplayer, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalanceIntegrityJob {
	return &BalanceIntegrityJob{reader: reader, replayer: replayer, logger: logger, metrics: metrics}
}

// Handle processes TaskBalanceScan tasks.
func (j *BalanceIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BalanceScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("balance_scan")
	_, err := j.Run(ctx, payload)
	return tracker.End(err)
}

// Run executes one sweep across both entity types.
func (j *BalanceIntegrityJob) Run(ctx context.Context, payload BalanceScanPayload) (ScanReport, error) {
	var report ScanReport
	for _, entityType := range []ledger.EntityType{ledger.EntityCustomer, ledger.EntitySupplier} {
		partial, err := j.scanEntityType(ctx, entityType, payload.Repair)
		if err != nil {
			return report, err
		}
		report.Scanned += partial.Scanned
		report.Drifted += partial.Drifted
		report.Repaired += partial.Repaired
	}
	if j.metrics != nil {
		j.metrics.AddDrift("balance", report.Drifted)
	}
	if j.logger != nil {
		j.logger.Info("balance scan finished",
			slog.Int("scanned", report.Scanned),
			slog.Int("drifted", report.Drifted),
			slog.Int("repaired", report.Repaired))
	}
	return report, nil
}

func (j *BalanceIntegrityJob) scanEntityType(ctx context.Context, entityType ledger.EntityType, repair bool) (ScanReport, error) {
	ids, err := j.reader.ListEntities(ctx, entityType)
	if err != nil {
		return ScanReport{}, err
	}

	results := make([]scanResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			res, err := j.scanEntity(gctx, entityType, id, repair)
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
	return report, nil
}

type scanResult struct {
	drifted  bool
	repaired bool
}

func (j *BalanceIntegrityJob) scanEntity(ctx context.Context, entityType ledger.EntityType, id int64, repair bool) (scanResult, error) {
	cached, err := j.reader.GetCachedBalance(ctx, entityType, id)
	if err != nil {
		return scanResult{}, err
	}
	truth, err := j.replayer.AuthoritativeBalance(ctx, entityType, id)
	if err != nil {
		return scanResult{}, err
	}
	if shared.AmountsEqual(cached.Pending, truth.Pending) && shared.AmountsEqual(cached.Advance, truth.Advance) {
		return scanResult{}, nil
	}

	if j.logger != nil {
		j.logger.Warn("cached balance drifted from replay",
			slog.String("entity_type", string(entityType)),
			slog.Int64("entity_id", id),
			slog.Float64("cached_pending", cached.Pending),
			slog.Float64("replayed_pending", truth.Pending),
			slog.Float64("cached_advance", cached.Advance),
			slog.Float64("replayed_advance", truth.Advance))
	}
	res := scanResult{drifted: true}
	if repair {
		if _, err := j.replayer.RefreshEntityBalance(ctx, entityType, id); err != nil {
			return res, err
		}
		res.repaired = true
	}
	return res, nil
}
