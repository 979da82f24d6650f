package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/inventory"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
)

type memoryRepo struct {
	orders map[int64]SalesOrder
	frozen map[int64][]FrozenCOGSLine
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[int64]SalesOrder{}, frozen: map[int64][]FrozenCOGSLine{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(_ context.Context, id int64) (SalesOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return SalesOrder{}, fmt.Errorf("order %d missing", id)
	}
	return order, nil
}

func (r *memoryRepo) List(context.Context, ListFilter) ([]SalesOrder, error) {
	var out []SalesOrder
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryRepo) GetFrozenLines(_ context.Context, orderID int64) ([]FrozenCOGSLine, error) {
	return r.frozen[orderID], nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (SalesOrder, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) InsertOrder(_ context.Context, order SalesOrder) (int64, error) {
	t.repo.nextID++
	order.ID = t.repo.nextID
	t.repo.orders[order.ID] = order
	return order.ID, nil
}

func (t *memoryTx) InsertLines(_ context.Context, orderID int64, lines []SalesOrderLine) error {
	order := t.repo.orders[orderID]
	for i := range lines {
		lines[i].ID = int64(i + 1)
		lines[i].SalesOrderID = orderID
	}
	order.Lines = lines
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryTx) DeleteLines(_ context.Context, orderID int64) error {
	order := t.repo.orders[orderID]
	order.Lines = nil
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryTx) UpdateFields(_ context.Context, id int64, updates map[string]any) error {
	order := t.repo.orders[id]
	if notes, ok := updates["notes"].(string); ok {
		order.Notes = &notes
	}
	if date, ok := updates["order_date"].(time.Time); ok {
		order.OrderDate = date
	}
	if v, ok := updates["total_amount"].(float64); ok {
		order.TotalAmount = v
	}
	if status, ok := updates["status"].(OrderStatus); ok {
		order.Status = status
	}
	if v, ok := updates["completed_at"]; ok && v == nil {
		order.CompletedAt = nil
	}
	t.repo.orders[id] = order
	return nil
}

func (t *memoryTx) UpdateStatus(_ context.Context, id int64, status OrderStatus, at time.Time, reason *string) error {
	order := t.repo.orders[id]
	order.Status = status
	switch status {
	case StatusConfirmed:
		order.ConfirmedAt = &at
	case StatusCompleted:
		order.CompletedAt = &at
	case StatusCancelled:
		order.CancelledAt = &at
		order.CancellationReason = reason
	}
	t.repo.orders[id] = order
	return nil
}

func (t *memoryTx) InsertFrozenLines(_ context.Context, lines []FrozenCOGSLine) error {
	for _, line := range lines {
		t.repo.frozen[line.SalesOrderID] = append(t.repo.frozen[line.SalesOrderID], line)
	}
	return nil
}

func (t *memoryTx) DeleteFrozenLines(_ context.Context, orderID int64) error {
	delete(t.repo.frozen, orderID)
	return nil
}

type fakeStock struct {
	reserved  map[int64]int64
	outbound  []inventory.OutboundInput
	failAfter int // fail the Nth Reserve call, 0 disables
	calls     int
}

func newFakeStock() *fakeStock {
	return &fakeStock{reserved: map[int64]int64{}}
}

func (f *fakeStock) Reserve(_ context.Context, productID, quantity, _ int64, _ string) (inventory.Record, error) {
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return inventory.Record{}, &inventory.ReservationError{ProductID: productID, Requested: quantity, Reason: "exceeds stock on hand"}
	}
	f.reserved[productID] += quantity
	return inventory.Record{ProductID: productID}, nil
}

func (f *fakeStock) Release(_ context.Context, productID, quantity, _ int64, _ string) (inventory.Record, error) {
	f.reserved[productID] -= quantity
	return inventory.Record{ProductID: productID}, nil
}

func (f *fakeStock) PostOutbound(_ context.Context, input inventory.OutboundInput) (inventory.Record, error) {
	f.outbound = append(f.outbound, input)
	return inventory.Record{ProductID: input.ProductID}, nil
}

type fakeLedger struct {
	recorded  []ledger.RecordInput
	checkErr  error // returned by ValidateCreditLimit
	recordErr error // returned by RecordTransaction
}

func (f *fakeLedger) ValidateCreditLimit(_ context.Context, _ int64, amount float64) (ledger.CreditCheck, error) {
	if f.checkErr != nil {
		return ledger.CreditCheck{}, f.checkErr
	}
	return ledger.CreditCheck{TransactionAmount: amount}, nil
}

func (f *fakeLedger) RecordTransaction(_ context.Context, input ledger.RecordInput) (ledger.RecordResult, error) {
	if f.recordErr != nil {
		return ledger.RecordResult{}, f.recordErr
	}
	f.recorded = append(f.recorded, input)
	return ledger.RecordResult{}, nil
}

type openPeriods struct{}

func (openPeriods) EnsureOpen(context.Context, time.Time, string) error { return nil }

type lockedPeriods struct {
	err error
}

func (g lockedPeriods) EnsureOpen(context.Context, time.Time, string) error { return g.err }

func newTestService(repo *memoryRepo, stock *fakeStock, ledgers *fakeLedger, periods PeriodGuard) *Service {
	costs := stubCosts{
		averages: map[int64]float64{1: 10, 2: 5},
		products: map[int64]float64{1: 12, 2: 6},
	}
	return NewService(repo, stock, costs, ledgers, periods, nil)
}

func draftOrder(t *testing.T, svc *Service) SalesOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 9,
		Currency:   "USD",
		ActorID:    1,
		Lines: []LineInput{
			{ProductID: 1, Quantity: 4, UnitPrice: 25},
			{ProductID: 2, Quantity: 2, UnitPrice: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, order.Status)
	return order
}

func TestOrderLifecycleCompleteFlow(t *testing.T) {
	repo := newMemoryRepo()
	stock := newFakeStock()
	ledgers := &fakeLedger{}
	svc := newTestService(repo, stock, ledgers, openPeriods{})
	ctx := context.Background()

	order := draftOrder(t, svc)
	require.InDelta(t, 120.0, order.TotalAmount, 0.001)

	confirmed, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.Equal(t, int64(4), stock.reserved[1])
	require.Equal(t, int64(2), stock.reserved[2])

	_, err = svc.StartProcessing(ctx, order.ID, 1)
	require.NoError(t, err)

	completed, freeze, err := svc.Complete(ctx, order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	// Costs froze at the current average, reservations drained, stock
	// shipped, invoice raised.
	require.InDelta(t, 50.0, freeze.TotalCOGS, 0.001) // 4*10 + 2*5
	require.Len(t, repo.frozen[order.ID], 2)
	require.Zero(t, stock.reserved[1])
	require.Zero(t, stock.reserved[2])
	require.Len(t, stock.outbound, 2)
	require.Len(t, ledgers.recorded, 1)
	require.Equal(t, ledger.TypeInvoice, ledgers.recorded[0].Type)
	require.InDelta(t, 120.0, ledgers.recorded[0].Amount, 0.001)
}

func TestCompletedOrderIsImmutable(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeStock(), &fakeLedger{}, openPeriods{})
	ctx := context.Background()

	order := draftOrder(t, svc)
	_, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)
	_, err = svc.StartProcessing(ctx, order.ID, 1)
	require.NoError(t, err)
	_, _, err = svc.Complete(ctx, order.ID, 1)
	require.NoError(t, err)

	note := "too late"
	_, err = svc.Update(ctx, order.ID, UpdateInput{Notes: &note})
	var locked *LockedError
	require.ErrorAs(t, err, &locked)

	_, err = svc.Cancel(ctx, order.ID, 1, "regret")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmedOrderAllowsOnlyMetadataEdits(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeStock(), &fakeLedger{}, openPeriods{})
	ctx := context.Background()

	order := draftOrder(t, svc)
	_, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)

	note := "deliver after 5pm"
	updated, err := svc.Update(ctx, order.ID, UpdateInput{Notes: &note})
	require.NoError(t, err)
	require.Equal(t, note, *updated.Notes)

	lines := []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 1}}
	_, err = svc.Update(ctx, order.ID, UpdateInput{Lines: &lines})
	var partial *PartialLockError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, "lines", partial.Field)
}

func TestConfirmRollsBackReservationsOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	stock := newFakeStock()
	stock.failAfter = 2
	svc := newTestService(repo, stock, &fakeLedger{}, openPeriods{})

	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	var resErr *inventory.ReservationError
	require.ErrorAs(t, err, &resErr)
	require.Zero(t, stock.reserved[1], "first reservation must be rolled back")

	current, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, current.Status)
}

func TestCancelReleasesReservations(t *testing.T) {
	repo := newMemoryRepo()
	stock := newFakeStock()
	svc := newTestService(repo, stock, &fakeLedger{}, openPeriods{})
	ctx := context.Background()

	order := draftOrder(t, svc)
	_, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID, 1, "customer changed mind")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, "customer changed mind", *cancelled.CancellationReason)
	require.Zero(t, stock.reserved[1])
	require.Zero(t, stock.reserved[2])
}

func TestCompleteBlockedInClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	stock := newFakeStock()
	guardErr := fmt.Errorf("accounting: period closed")
	svc := newTestService(repo, stock, &fakeLedger{}, lockedPeriods{err: guardErr})
	ctx := context.Background()

	order := draftOrder(t, svc)
	_, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)
	_, err = svc.StartProcessing(ctx, order.ID, 1)
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, order.ID, 1)
	require.ErrorIs(t, err, guardErr)
	require.Empty(t, repo.frozen[order.ID])
	require.Empty(t, stock.outbound)

	current, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, current.Status)
}

func TestCompleteCreditRejectionLeavesNoTrace(t *testing.T) {
	repo := newMemoryRepo()
	stock := newFakeStock()
	ledgers := &fakeLedger{checkErr: &ledger.CreditLimitError{
		EntityID: 9, CurrentBalance: 950, CreditLimit: 1000, TransactionAmount: 120, NewBalance: 1070,
	}}
	svc := newTestService(repo, stock, ledgers, openPeriods{})
	ctx := context.Background()

	order := draftOrder(t, svc)
	_, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)
	_, err = svc.StartProcessing(ctx, order.ID, 1)
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, order.ID, 1)
	var credit *ledger.CreditLimitError
	require.ErrorAs(t, err, &credit)

	// The rejection happens before the first write: status unchanged, no
	// frozen costs, nothing shipped, reservations intact, no receivable.
	current, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, current.Status)
	require.Empty(t, repo.frozen[order.ID])
	require.Empty(t, stock.outbound)
	require.Equal(t, int64(4), stock.reserved[1])
	require.Equal(t, int64(2), stock.reserved[2])
	require.Empty(t, ledgers.recorded)
}

func TestCompleteInvoiceRejectionRevertsCommit(t *testing.T) {
	repo := newMemoryRepo()
	stock := newFakeStock()
	// The pre-check passes but the ledger rejects at record time, as when a
	// concurrent invoice consumed the headroom in between.
	ledgers := &fakeLedger{recordErr: &ledger.CreditLimitError{
		EntityID: 9, CurrentBalance: 950, CreditLimit: 1000, TransactionAmount: 120, NewBalance: 1070,
	}}
	svc := newTestService(repo, stock, ledgers, openPeriods{})
	ctx := context.Background()

	order := draftOrder(t, svc)
	_, err := svc.Confirm(ctx, order.ID, 1)
	require.NoError(t, err)
	_, err = svc.StartProcessing(ctx, order.ID, 1)
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, order.ID, 1)
	var credit *ledger.CreditLimitError
	require.ErrorAs(t, err, &credit)

	// The committed completion unwinds: status reverts, the cost snapshot
	// is gone, and no stock moved.
	current, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, current.Status)
	require.Nil(t, current.CompletedAt)
	require.Empty(t, repo.frozen[order.ID])
	require.Empty(t, stock.outbound)
	require.Equal(t, int64(4), stock.reserved[1])
	require.Equal(t, int64(2), stock.reserved[2])
}
