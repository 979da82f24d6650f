package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type stubCosts struct {
	averages map[int64]float64
	products map[int64]float64
}

func (s stubCosts) AverageCost(_ context.Context, productID int64) (float64, error) {
	cost, ok := s.averages[productID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return cost, nil
}

func (s stubCosts) ProductCost(_ context.Context, productID int64) (float64, error) {
	cost, ok := s.products[productID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return cost, nil
}

func TestFreezeCOGSFallbackChain(t *testing.T) {
	costs := stubCosts{
		averages: map[int64]float64{1: 12.5},
		products: map[int64]float64{1: 99, 2: 8.0, 3: 0},
	}
	frozenAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	lines := []SalesOrderLine{
		{ProductID: 1, Quantity: 4},  // average cost wins
		{ProductID: 2, Quantity: 10}, // falls back to product cost
		{ProductID: 3, Quantity: 2},  // no cost anywhere, freezes zero
	}

	freeze, err := FreezeCOGS(context.Background(), costs, 55, lines, frozenAt)
	require.NoError(t, err)
	require.Len(t, freeze.Lines, 3)

	require.Equal(t, CostSourceAverage, freeze.Lines[0].CostSource)
	require.InDelta(t, 12.5, freeze.Lines[0].UnitCost, 0.001)
	require.InDelta(t, 50.0, freeze.Lines[0].TotalCost, 0.001)

	require.Equal(t, CostSourceProduct, freeze.Lines[1].CostSource)
	require.InDelta(t, 80.0, freeze.Lines[1].TotalCost, 0.001)

	require.Equal(t, CostSourceZero, freeze.Lines[2].CostSource)
	require.InDelta(t, 0.0, freeze.Lines[2].TotalCost, 0.001)

	require.InDelta(t, 130.0, freeze.TotalCOGS, 0.001)
	for _, line := range freeze.Lines {
		require.Equal(t, int64(55), line.SalesOrderID)
		require.Equal(t, frozenAt, line.FrozenAt)
	}
}

func TestFreezeCOGSMissingProduct(t *testing.T) {
	costs := stubCosts{averages: map[int64]float64{}, products: map[int64]float64{}}
	lines := []SalesOrderLine{{ProductID: 42, Quantity: 1}}

	_, err := FreezeCOGS(context.Background(), costs, 1, lines, time.Now())
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "PRODUCT_NOT_FOUND", notFound.Code())
	require.Equal(t, int64(42), notFound.ProductID)
}
