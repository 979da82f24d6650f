package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type memoryRepo struct {
	records   map[int64]Record
	movements []Movement
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[int64]Record)}
}

func (r *memoryRepo) seed(rec Record) {
	r.records[rec.ProductID] = rec
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) FindByProduct(_ context.Context, productID int64) (Record, error) {
	rec, ok := r.records[productID]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	return rec, nil
}

func (r *memoryRepo) ListMovements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.ProductID == filter.ProductID {
			out = append(out, m)
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetRecordForUpdate(ctx context.Context, productID int64) (Record, error) {
	return t.repo.FindByProduct(ctx, productID)
}

func (t *memoryTx) InsertMovement(_ context.Context, m Movement) (int64, error) {
	t.repo.nextID++
	m.ID = t.repo.nextID
	t.repo.movements = append(t.repo.movements, m)
	return m.ID, nil
}

func (t *memoryTx) ApplyStockChange(_ context.Context, productID, change int64, allowNegative bool, newAvgCost float64) (Record, error) {
	rec := t.repo.records[productID]
	if rec.CurrentStock+change < 0 && !allowNegative {
		return Record{}, &NegativeStockError{ProductID: productID, CurrentStock: rec.CurrentStock, Change: change, NewStock: rec.CurrentStock + change}
	}
	rec.CurrentStock += change
	rec.AverageCost = newAvgCost
	t.repo.records[productID] = rec
	return rec, nil
}

func (t *memoryTx) ApplyReservationChange(_ context.Context, productID, change int64) (Record, error) {
	rec := t.repo.records[productID]
	next := rec.ReservedStock + change
	if next < 0 {
		return Record{}, &ReservationError{ProductID: productID, Requested: change, Reason: "release exceeds reserved quantity"}
	}
	if next > rec.CurrentStock {
		return Record{}, &ReservationError{ProductID: productID, Requested: change, Reason: "exceeds stock on hand"}
	}
	rec.ReservedStock = next
	t.repo.records[productID] = rec
	return rec, nil
}

func TestMovingAverageCost(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Record{ProductID: 1})
	svc := NewService(repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	rec, err := svc.PostInbound(ctx, InboundInput{ProductID: 1, Quantity: 10, UnitCost: 100, Note: "GRN#1"})
	require.NoError(t, err)
	require.Equal(t, int64(10), rec.CurrentStock)
	require.InDelta(t, 100.0, rec.AverageCost, 0.01)

	rec, err = svc.PostInbound(ctx, InboundInput{ProductID: 1, Quantity: 5, UnitCost: 130, Note: "GRN#2"})
	require.NoError(t, err)
	require.Equal(t, int64(15), rec.CurrentStock)
	require.InDelta(t, 110.0, rec.AverageCost, 0.01)

	// Issues keep the average.
	rec, err = svc.PostOutbound(ctx, OutboundInput{ProductID: 1, Quantity: 8, Note: "Sale"})
	require.NoError(t, err)
	require.Equal(t, int64(7), rec.CurrentStock)
	require.InDelta(t, 110.0, rec.AverageCost, 0.01)
}

func TestNegativeStockGuardOnMovement(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Record{ProductID: 1, CurrentStock: 3})
	svc := NewService(repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostAdjustment(ctx, AdjustmentInput{ProductID: 1, Quantity: -4, Note: "shrinkage"})
	var negErr *NegativeStockError
	require.ErrorAs(t, err, &negErr)

	// The record is untouched after rejection.
	rec, err := svc.GetRecord(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.CurrentStock)

	// Explicit escape hatch per movement.
	rec, err = svc.PostAdjustment(ctx, AdjustmentInput{ProductID: 1, Quantity: -4, AllowNegative: true, Note: "stocktake"})
	require.NoError(t, err)
	require.Equal(t, int64(-1), rec.CurrentStock)
}

func TestOutboundRespectsReservations(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Record{ProductID: 1, CurrentStock: 10})
	svc := NewService(repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Reserve(ctx, 1, 6, 0, "SO-1")
	require.NoError(t, err)

	_, err = svc.PostOutbound(ctx, OutboundInput{ProductID: 1, Quantity: 5, Note: "walk-in sale"})
	var insErr *InsufficientStockError
	require.ErrorAs(t, err, &insErr)
	require.Equal(t, int64(4), insErr.AvailableStock)

	rec, err := svc.PostOutbound(ctx, OutboundInput{ProductID: 1, Quantity: 4, Note: "walk-in sale"})
	require.NoError(t, err)
	require.Equal(t, int64(6), rec.CurrentStock)
}

func TestReservationBounds(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Record{ProductID: 1, CurrentStock: 5})
	svc := NewService(repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Reserve(ctx, 1, 6, 0, "SO-1")
	var resErr *ReservationError
	require.ErrorAs(t, err, &resErr)

	_, err = svc.Reserve(ctx, 1, 5, 0, "SO-1")
	require.NoError(t, err)

	_, err = svc.Release(ctx, 1, 6, 0, "SO-1")
	require.ErrorAs(t, err, &resErr)

	rec, err := svc.Release(ctx, 1, 5, 0, "SO-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), rec.ReservedStock)
}

func TestMovementRequiresInventoryRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, ServiceConfig{})

	_, err := svc.PostInbound(context.Background(), InboundInput{ProductID: 42, Quantity: 1, UnitCost: 10})
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	require.Equal(t, int64(42), nfErr.ProductID)
}
