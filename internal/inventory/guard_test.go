package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type stubRecordStore struct {
	records map[int64]Record
}

func (s stubRecordStore) FindByProduct(_ context.Context, productID int64) (Record, error) {
	rec, ok := s.records[productID]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	return rec, nil
}

func TestCheckStockNonNegativity(t *testing.T) {
	rec := Record{ProductID: 1, CurrentStock: 5}

	check, err := CheckStock(rec, StockUpdate{ProductID: 1, QuantityChange: -5, Type: MovementAdjust})
	require.NoError(t, err)
	require.Equal(t, int64(0), check.NewStock)

	_, err = CheckStock(rec, StockUpdate{ProductID: 1, QuantityChange: -6, Type: MovementAdjust})
	var negErr *NegativeStockError
	require.ErrorAs(t, err, &negErr)
	require.Equal(t, int64(-1), negErr.NewStock)
	require.Equal(t, int64(5), negErr.CurrentStock)
}

func TestCheckStockAllowNegative(t *testing.T) {
	rec := Record{ProductID: 1, CurrentStock: 2}

	check, err := CheckStock(rec, StockUpdate{ProductID: 1, QuantityChange: -10, Type: MovementAdjust, AllowNegative: true})
	require.NoError(t, err)
	require.Equal(t, int64(-8), check.NewStock)
}

func TestCheckStockReservationRespected(t *testing.T) {
	rec := Record{ProductID: 1, CurrentStock: 10, ReservedStock: 6}

	// 4 available; issuing 4 is fine.
	check, err := CheckStock(rec, StockUpdate{ProductID: 1, QuantityChange: -4, Type: MovementOut})
	require.NoError(t, err)
	require.Equal(t, int64(4), check.AvailableStock)
	require.Equal(t, int64(6), check.NewStock)

	// Issuing 5 would consume reserved stock.
	_, err = CheckStock(rec, StockUpdate{ProductID: 1, QuantityChange: -5, Type: MovementOut})
	var insErr *InsufficientStockError
	require.ErrorAs(t, err, &insErr)
	require.Equal(t, int64(4), insErr.AvailableStock)
	require.Equal(t, int64(5), insErr.Requested)
	require.Equal(t, "INSUFFICIENT_AVAILABLE_STOCK", insErr.Code())
}

func TestCheckStockAdjustmentIgnoresReservations(t *testing.T) {
	rec := Record{ProductID: 1, CurrentStock: 10, ReservedStock: 6}

	// Adjustments are not reservation-aware, only non-negative.
	check, err := CheckStock(rec, StockUpdate{ProductID: 1, QuantityChange: -10, Type: MovementAdjust})
	require.NoError(t, err)
	require.Equal(t, int64(0), check.NewStock)
}

func TestGuardValidateStockUpdate(t *testing.T) {
	guard := NewGuard(stubRecordStore{records: map[int64]Record{
		7: {ProductID: 7, CurrentStock: 3},
	}})
	ctx := context.Background()

	check, err := guard.ValidateStockUpdate(ctx, StockUpdate{ProductID: 7, QuantityChange: 2, Type: MovementIn})
	require.NoError(t, err)
	require.Equal(t, int64(5), check.NewStock)

	_, err = guard.ValidateStockUpdate(ctx, StockUpdate{ProductID: 99, QuantityChange: 1, Type: MovementIn})
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	require.Equal(t, int64(99), nfErr.ProductID)
	require.Equal(t, "INVENTORY_NOT_FOUND", nfErr.Code())
}

func TestValidateProductStockEdit(t *testing.T) {
	err := ValidateProductStockEdit(3, map[string]any{"name": "Coffee", "price": 12.5})
	require.NoError(t, err)

	// Even writing the current value back is rejected; intent matters.
	err = ValidateProductStockEdit(3, map[string]any{"current_stock": 10})
	var editErr *shared.DirectEditError
	require.ErrorAs(t, err, &editErr)
	require.Equal(t, "current_stock", editErr.Field)
	require.Equal(t, "DIRECT_EDIT_BLOCKED", editErr.Code())
	require.Contains(t, editErr.UseInstead, "movements")

	err = ValidateProductStockEdit(3, map[string]any{"inventory.current_stock": 0})
	require.ErrorAs(t, err, &editErr)
}
