package orders

import (
	"context"
	"errors"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// Cost source labels recorded on each frozen line.
const (
	CostSourceAverage = "AVERAGE_COST"
	CostSourceProduct = "PRODUCT_COST"
	CostSourceZero    = "ZERO"
)

// CostLookup resolves the two cost fallbacks. Either call may return
// shared.ErrNotFound; a missing inventory record is survivable, a missing
// product is not.
type CostLookup interface {
	AverageCost(ctx context.Context, productID int64) (float64, error)
	ProductCost(ctx context.Context, productID int64) (float64, error)
}

// COGSFreeze is the result of freezing costs for one order.
type COGSFreeze struct {
	Lines     []FrozenCOGSLine `json:"lines"`
	TotalCOGS float64          `json:"total_cogs"`
}

// FreezeCOGS resolves the unit cost for every line at the instant of sale:
// inventory average cost, then the product's own cost, then zero. The
// result is the permanent cost basis for the sale.
func FreezeCOGS(ctx context.Context, costs CostLookup, orderID int64, lines []SalesOrderLine, frozenAt time.Time) (COGSFreeze, error) {
	var freeze COGSFreeze
	for _, line := range lines {
		// Existence check runs first so a dangling product reference is
		// reported even when an inventory record would have answered.
		productCost, err := costs.ProductCost(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return COGSFreeze{}, &ProductNotFoundError{ProductID: line.ProductID}
			}
			return COGSFreeze{}, err
		}

		unitCost, source := 0.0, CostSourceZero
		avgCost, err := costs.AverageCost(ctx, line.ProductID)
		switch {
		case err == nil && avgCost > 0:
			unitCost, source = avgCost, CostSourceAverage
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return COGSFreeze{}, err
		case productCost > 0:
			unitCost, source = productCost, CostSourceProduct
		}

		frozen := FrozenCOGSLine{
			SalesOrderID: orderID,
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			UnitCost:     unitCost,
			TotalCost:    unitCost * float64(line.Quantity),
			CostSource:   source,
			FrozenAt:     frozenAt,
		}
		freeze.Lines = append(freeze.Lines, frozen)
		freeze.TotalCOGS += frozen.TotalCost
	}
	return freeze, nil
}
