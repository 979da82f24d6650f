package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// StockUpdate describes a proposed stock change to validate.
type StockUpdate struct {
	ProductID      int64
	QuantityChange int64
	Type           MovementType
	AllowNegative  bool
}

// StockCheck is the approved plan returned by the validator. The caller
// applies it atomically; the validator itself never writes.
type StockCheck struct {
	CurrentStock   int64
	ReservedStock  int64
	AvailableStock int64
	NewStock       int64
}

// CheckStock decides whether a stock change is allowed against a consistent
// read of the record. Outbound movements are reservation-aware: they may
// only consume stock not already held for other orders.
func CheckStock(rec Record, upd StockUpdate) (StockCheck, error) {
	check := StockCheck{
		CurrentStock:   rec.CurrentStock,
		ReservedStock:  rec.ReservedStock,
		AvailableStock: rec.Available(),
		NewStock:       rec.CurrentStock + upd.QuantityChange,
	}
	if !upd.AllowNegative && check.NewStock < 0 {
		return StockCheck{}, &NegativeStockError{
			ProductID:    upd.ProductID,
			CurrentStock: rec.CurrentStock,
			Change:       upd.QuantityChange,
			NewStock:     check.NewStock,
		}
	}
	if upd.Type == MovementOut {
		requested := upd.QuantityChange
		if requested < 0 {
			requested = -requested
		}
		if check.AvailableStock < requested {
			return StockCheck{}, &InsufficientStockError{
				ProductID:      upd.ProductID,
				CurrentStock:   rec.CurrentStock,
				ReservedStock:  rec.ReservedStock,
				AvailableStock: check.AvailableStock,
				Requested:      requested,
			}
		}
	}
	return check, nil
}

// RecordStore is the read side the guard depends on.
type RecordStore interface {
	FindByProduct(ctx context.Context, productID int64) (Record, error)
}

// Guard validates stock changes against the inventory store.
type Guard struct {
	store RecordStore
}

// NewGuard constructs a Guard.
func NewGuard(store RecordStore) *Guard {
	return &Guard{store: store}
}

// ValidateStockUpdate loads the product's record and runs CheckStock.
func (g *Guard) ValidateStockUpdate(ctx context.Context, upd StockUpdate) (StockCheck, error) {
	rec, err := g.store.FindByProduct(ctx, upd.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return StockCheck{}, &NotFoundError{ProductID: upd.ProductID}
		}
		return StockCheck{}, fmt.Errorf("inventory: load record: %w", err)
	}
	return CheckStock(rec, upd)
}

// blockedStockFields are projections of movement history on product
// payloads. Writes must go through movement posting instead.
var blockedStockFields = []string{
	"current_stock",
	"reserved_stock",
	"stock",
	"inventory.current_stock",
	"inventory.reserved_stock",
}

// ValidateProductStockEdit rejects patches that touch derived stock fields,
// whatever the value carried. Intent is enough; forcing every write through
// movements keeps the record replayable.
func ValidateProductStockEdit(productID int64, patch map[string]any) error {
	if field, found := shared.ScanPatch(patch, blockedStockFields); found {
		return &shared.DirectEditError{
			Entity:     fmt.Sprintf("product %d", productID),
			Field:      field,
			UseInstead: "POST /api/v1/inventory/movements",
		}
	}
	return nil
}
