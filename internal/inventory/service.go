package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindByProduct(ctx context.Context, productID int64) (Record, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// TxRepository exposes the operations available inside a movement transaction.
type TxRepository interface {
	GetRecordForUpdate(ctx context.Context, productID int64) (Record, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	ApplyStockChange(ctx context.Context, productID, change int64, allowNegative bool, newAvgCost float64) (Record, error)
	ApplyReservationChange(ctx context.Context, productID, change int64) (Record, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MovementFilter filters movement listings.
type MovementFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// Service coordinates inventory mutations. Every stock-affecting operation
// passes the invariant check and the conditional update inside one
// transaction, so validate-then-write is a single atomic unit per product.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	allowNeg    bool
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AllowNegativeStock globally permits negative balances, for
	// deployments that sell ahead of receiving.
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CheckProposed dry-runs the stock invariant for a proposed change without
// writing anything. Point-of-sale clients use it to validate a cart line
// before posting the movement; the movement path re-checks inside its
// transaction regardless.
func (s *Service) CheckProposed(ctx context.Context, upd StockUpdate) (StockCheck, error) {
	if upd.QuantityChange == 0 {
		return StockCheck{}, ErrInvalidQuantity
	}
	upd.AllowNegative = upd.AllowNegative || s.allowNeg
	return NewGuard(s.repo).ValidateStockUpdate(ctx, upd)
}

// InboundInput describes a goods receipt.
type InboundInput struct {
	Code      string
	ProductID int64
	Quantity  int64
	UnitCost  float64
	Note      string
	ActorID   int64
	RefModule string
	RefID     string
}

// OutboundInput describes a stock issue.
type OutboundInput struct {
	Code      string
	ProductID int64
	Quantity  int64
	Note      string
	ActorID   int64
	RefModule string
	RefID     string
}

// AdjustmentInput describes a manual correction, positive or negative.
type AdjustmentInput struct {
	Code          string
	ProductID     int64
	Quantity      int64
	UnitCost      float64
	AllowNegative bool
	Note          string
	ActorID       int64
	RefModule     string
	RefID         string
}

// ErrInvalidQuantity indicates invalid qty.
var ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")

// ErrInvalidUnitCost indicates invalid cost value.
var ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")

// PostInbound receives stock and folds the unit cost into the moving average.
func (s *Service) PostInbound(ctx context.Context, input InboundInput) (Record, error) {
	if input.ProductID == 0 {
		return Record{}, errors.New("inventory: product required")
	}
	if input.Quantity <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return Record{}, ErrInvalidUnitCost
	}
	return s.postMovement(ctx, movementParams{
		Code:      input.Code,
		ProductID: input.ProductID,
		Change:    input.Quantity,
		UnitCost:  input.UnitCost,
		Type:      MovementIn,
		Note:      input.Note,
		ActorID:   input.ActorID,
		RefModule: input.RefModule,
		RefID:     input.RefID,
	})
}

// PostOutbound issues stock. The issue is reservation-aware and priced at
// the current moving average.
func (s *Service) PostOutbound(ctx context.Context, input OutboundInput) (Record, error) {
	if input.ProductID == 0 {
		return Record{}, errors.New("inventory: product required")
	}
	if input.Quantity <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	return s.postMovement(ctx, movementParams{
		Code:      input.Code,
		ProductID: input.ProductID,
		Change:    -input.Quantity,
		Type:      MovementOut,
		Note:      input.Note,
		ActorID:   input.ActorID,
		RefModule: input.RefModule,
		RefID:     input.RefID,
	})
}

// PostAdjustment corrects stock up or down. Negative balances require the
// per-movement AllowNegative escape hatch or the global setting.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Record, error) {
	if input.ProductID == 0 {
		return Record{}, errors.New("inventory: product required")
	}
	if input.Quantity == 0 {
		return Record{}, ErrInvalidQuantity
	}
	if input.Quantity > 0 && input.UnitCost < 0 {
		return Record{}, ErrInvalidUnitCost
	}
	return s.postMovement(ctx, movementParams{
		Code:          input.Code,
		ProductID:     input.ProductID,
		Change:        input.Quantity,
		UnitCost:      input.UnitCost,
		Type:          MovementAdjust,
		AllowNegative: input.AllowNegative,
		Note:          input.Note,
		ActorID:       input.ActorID,
		RefModule:     input.RefModule,
		RefID:         input.RefID,
	})
}

// Reserve holds stock for an order without moving it.
func (s *Service) Reserve(ctx context.Context, productID, quantity, actorID int64, ref string) (Record, error) {
	if quantity <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	return s.changeReservation(ctx, productID, quantity, actorID, ref)
}

// Release returns previously reserved stock to the available pool.
func (s *Service) Release(ctx context.Context, productID, quantity, actorID int64, ref string) (Record, error) {
	if quantity <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	return s.changeReservation(ctx, productID, -quantity, actorID, ref)
}

// GetRecord returns the stock position for a product.
func (s *Service) GetRecord(ctx context.Context, productID int64) (Record, error) {
	rec, err := s.repo.FindByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Record{}, &NotFoundError{ProductID: productID}
		}
		return Record{}, err
	}
	return rec, nil
}

// ListMovements lists stock movements.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID == 0 {
		return nil, errors.New("inventory: product required")
	}
	return s.repo.ListMovements(ctx, filter)
}

type movementParams struct {
	Code          string
	ProductID     int64
	Change        int64
	UnitCost      float64
	Type          MovementType
	AllowNegative bool
	Note          string
	ActorID       int64
	RefModule     string
	RefID         string
}

func (s *Service) postMovement(ctx context.Context, params movementParams) (Record, error) {
	now := s.now().UTC()
	code := params.Code
	if code == "" {
		code = fmt.Sprintf("INV-%d", now.UnixNano())
	}
	if params.RefID != "" {
		if _, err := uuid.Parse(params.RefID); err != nil {
			return Record{}, fmt.Errorf("inventory: invalid ref id: %w", err)
		}
	}
	allowNeg := s.allowNeg || params.AllowNegative

	key := fmt.Sprintf("%s:%s:%d", params.Type, code, params.ProductID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Record{}, err
		}
		insertedKey = true
	}

	var result Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetRecordForUpdate(ctx, params.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return &NotFoundError{ProductID: params.ProductID}
			}
			return err
		}
		check, err := CheckStock(rec, StockUpdate{
			ProductID:      params.ProductID,
			QuantityChange: params.Change,
			Type:           params.Type,
			AllowNegative:  allowNeg,
		})
		if err != nil {
			return err
		}

		unitCost := params.UnitCost
		newAvg := rec.AverageCost
		if params.Change > 0 {
			totalCost := float64(rec.CurrentStock)*rec.AverageCost + float64(params.Change)*unitCost
			if check.NewStock != 0 {
				newAvg = totalCost / float64(check.NewStock)
			}
		} else {
			unitCost = rec.AverageCost
			if check.NewStock <= 0 {
				newAvg = 0
			}
		}

		if _, err := tx.InsertMovement(ctx, Movement{
			Code:      code,
			ProductID: params.ProductID,
			Type:      params.Type,
			Quantity:  params.Change,
			UnitCost:  unitCost,
			Note:      params.Note,
			RefModule: params.RefModule,
			RefID:     params.RefID,
			PostedAt:  now,
			CreatedBy: params.ActorID,
		}); err != nil {
			return err
		}
		// Conditional update re-asserts non-negativity at write time, so a
		// concurrent decrement between check and apply still cannot take
		// the balance below zero.
		updated, err := tx.ApplyStockChange(ctx, params.ProductID, params.Change, allowNeg, newAvg)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Record{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  params.ActorID,
			Action:   fmt.Sprintf("inventory:%s", params.Type),
			Entity:   "inventory_movement",
			EntityID: code,
			Meta: map[string]any{
				"product_id": params.ProductID,
				"qty":        params.Change,
				"note":       params.Note,
			},
			At: now,
		})
	}
	return result, nil
}

func (s *Service) changeReservation(ctx context.Context, productID, change, actorID int64, ref string) (Record, error) {
	var result Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetRecordForUpdate(ctx, productID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return &NotFoundError{ProductID: productID}
			}
			return err
		}
		updated, err := tx.ApplyReservationChange(ctx, productID, change)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	if s.audit != nil {
		action := "inventory:RESERVE"
		if change < 0 {
			action = "inventory:RELEASE"
		}
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "inventory_record",
			EntityID: fmt.Sprintf("%d", productID),
			Meta:     map[string]any{"qty": change, "ref": ref},
			At:       s.now().UTC(),
		})
	}
	return result, nil
}
