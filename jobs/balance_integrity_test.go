package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/inventory"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
)

type fakeBalances struct {
	entities  map[ledger.EntityType][]int64
	cached    map[int64]ledger.Balance
	replayed  map[int64]ledger.Balance
	refreshes []int64
}

func (f *fakeBalances) ListEntities(_ context.Context, entityType ledger.EntityType) ([]int64, error) {
	return f.entities[entityType], nil
}

func (f *fakeBalances) GetCachedBalance(_ context.Context, _ ledger.EntityType, id int64) (ledger.Balance, error) {
	return f.cached[id], nil
}

func (f *fakeBalances) AuthoritativeBalance(_ context.Context, _ ledger.EntityType, id int64) (ledger.Balance, error) {
	return f.replayed[id], nil
}

func (f *fakeBalances) RefreshEntityBalance(_ context.Context, _ ledger.EntityType, id int64) (ledger.Balance, error) {
	f.refreshes = append(f.refreshes, id)
	f.cached[id] = f.replayed[id]
	return f.cached[id], nil
}

func TestBalanceScanDetectsDrift(t *testing.T) {
	fake := &fakeBalances{
		entities: map[ledger.EntityType][]int64{ledger.EntityCustomer: {1, 2, 3}},
		cached: map[int64]ledger.Balance{
			1: {Pending: 100},
			2: {Pending: 250, Advance: 10}, // drifted
			3: {Advance: 40},
		},
		replayed: map[int64]ledger.Balance{
			1: {Pending: 100},
			2: {Pending: 200},
			3: {Advance: 40},
		},
	}
	job := NewBalanceIntegrityJob(fake, fake, nil, nil)

	report, err := job.Run(context.Background(), BalanceScanPayload{})
	require.NoError(t, err)
	require.Equal(t, 3, report.Scanned)
	require.Equal(t, 1, report.Drifted)
	require.Zero(t, report.Repaired)
	require.Empty(t, fake.refreshes, "detect-only run must not rewrite caches")
}

func TestBalanceScanRepairsDrift(t *testing.T) {
	fake := &fakeBalances{
		entities: map[ledger.EntityType][]int64{ledger.EntitySupplier: {7}},
		cached:   map[int64]ledger.Balance{7: {Pending: 1}},
		replayed: map[int64]ledger.Balance{7: {Pending: 55.5}},
	}
	job := NewBalanceIntegrityJob(fake, fake, nil, nil)

	report, err := job.Run(context.Background(), BalanceScanPayload{Repair: true})
	require.NoError(t, err)
	require.Equal(t, 1, report.Drifted)
	require.Equal(t, 1, report.Repaired)
	require.Equal(t, []int64{7}, fake.refreshes)
	require.InDelta(t, 55.5, fake.cached[7].Pending, 0.001)
}

func TestBalanceScanToleratesRoundingNoise(t *testing.T) {
	fake := &fakeBalances{
		entities: map[ledger.EntityType][]int64{ledger.EntityCustomer: {1}},
		cached:   map[int64]ledger.Balance{1: {Pending: 100.004}},
		replayed: map[int64]ledger.Balance{1: {Pending: 100.0}},
	}
	job := NewBalanceIntegrityJob(fake, fake, nil, nil)

	report, err := job.Run(context.Background(), BalanceScanPayload{})
	require.NoError(t, err)
	require.Zero(t, report.Drifted)
}

type fakeStock struct {
	records map[int64]inventory.Record
	sums    map[int64]int64
	resyncs []int64
}

func (f *fakeStock) ListTrackedProducts(context.Context) ([]int64, error) {
	var ids []int64
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStock) SumMovements(_ context.Context, productID int64) (int64, error) {
	return f.sums[productID], nil
}

func (f *fakeStock) FindByProduct(_ context.Context, productID int64) (inventory.Record, error) {
	return f.records[productID], nil
}

func (f *fakeStock) ResyncFromMovements(_ context.Context, productID int64) (inventory.Record, error) {
	f.resyncs = append(f.resyncs, productID)
	rec := f.records[productID]
	rec.CurrentStock = f.sums[productID]
	f.records[productID] = rec
	return rec, nil
}

func TestStockScanDetectsAndRepairsDrift(t *testing.T) {
	fake := &fakeStock{
		records: map[int64]inventory.Record{
			1: {ProductID: 1, CurrentStock: 10},
			2: {ProductID: 2, CurrentStock: 99}, // drifted
		},
		sums: map[int64]int64{1: 10, 2: 42},
	}
	job := NewStockIntegrityJob(fake, fake, nil, nil)

	report, err := job.Run(context.Background(), StockScanPayload{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Scanned)
	require.Equal(t, 1, report.Drifted)
	require.Empty(t, fake.resyncs)

	report, err = job.Run(context.Background(), StockScanPayload{Repair: true})
	require.NoError(t, err)
	require.Equal(t, 1, report.Drifted)
	require.Equal(t, 1, report.Repaired)
	require.Equal(t, []int64{2}, fake.resyncs)
	require.Equal(t, int64(42), fake.records[2].CurrentStock)
}
