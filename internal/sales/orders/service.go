package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/inventory"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (SalesOrder, error)
	List(ctx context.Context, filter ListFilter) ([]SalesOrder, error)
	GetFrozenLines(ctx context.Context, orderID int64) ([]FrozenCOGSLine, error)
}

// TxRepository exposes the operations available inside an order transaction.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, id int64) (SalesOrder, error)
	InsertOrder(ctx context.Context, order SalesOrder) (int64, error)
	InsertLines(ctx context.Context, orderID int64, lines []SalesOrderLine) error
	DeleteLines(ctx context.Context, orderID int64) error
	UpdateFields(ctx context.Context, id int64, updates map[string]any) error
	UpdateStatus(ctx context.Context, id int64, status OrderStatus, at time.Time, reason *string) error
	InsertFrozenLines(ctx context.Context, lines []FrozenCOGSLine) error
	DeleteFrozenLines(ctx context.Context, orderID int64) error
}

// StockPort is the slice of the inventory service orders depend on.
type StockPort interface {
	Reserve(ctx context.Context, productID, quantity, actorID int64, ref string) (inventory.Record, error)
	Release(ctx context.Context, productID, quantity, actorID int64, ref string) (inventory.Record, error)
	PostOutbound(ctx context.Context, input inventory.OutboundInput) (inventory.Record, error)
}

// LedgerPort validates credit headroom and posts the customer invoice at
// completion.
type LedgerPort interface {
	ValidateCreditLimit(ctx context.Context, customerID int64, amount float64) (ledger.CreditCheck, error)
	RecordTransaction(ctx context.Context, input ledger.RecordInput) (ledger.RecordResult, error)
}

// PeriodGuard gates completion on the accounting calendar.
type PeriodGuard interface {
	EnsureOpen(ctx context.Context, date time.Time, operation string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilter filters order listings.
type ListFilter struct {
	CustomerID int64
	Status     OrderStatus
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Service drives the sales order lifecycle. Confirmation reserves stock,
// completion freezes costs, issues stock, and raises the invoice.
type Service struct {
	repo    RepositoryPort
	stock   StockPort
	costs   CostLookup
	ledgers LedgerPort
	periods PeriodGuard
	audit   AuditPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, stock StockPort, costs CostLookup, ledgers LedgerPort, periods PeriodGuard, audit AuditPort) *Service {
	return &Service{repo: repo, stock: stock, costs: costs, ledgers: ledgers, periods: periods, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput describes a new draft order.
type CreateInput struct {
	Code       string
	CustomerID int64
	OrderDate  time.Time
	Currency   string
	Notes      *string
	ActorID    int64
	Lines      []LineInput
}

// LineInput is one requested item.
type LineInput struct {
	ProductID       int64
	Description     *string
	Quantity        int64
	UnitPrice       float64
	DiscountPercent float64
	TaxPercent      float64
}

// Create opens a draft order with a priced line snapshot.
func (s *Service) Create(ctx context.Context, input CreateInput) (SalesOrder, error) {
	if input.CustomerID == 0 {
		return SalesOrder{}, errors.New("sales: customer required")
	}
	if len(input.Lines) == 0 {
		return SalesOrder{}, errors.New("sales: at least one line required")
	}
	now := s.now().UTC()
	order := SalesOrder{
		Code:       input.Code,
		CustomerID: input.CustomerID,
		OrderDate:  input.OrderDate,
		Status:     StatusDraft,
		Currency:   input.Currency,
		Notes:      input.Notes,
		CreatedBy:  input.ActorID,
	}
	if order.Code == "" {
		order.Code = fmt.Sprintf("SO-%d", now.UnixNano())
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}
	lines := buildLines(input.Lines)
	for _, line := range lines {
		net, tax, total := lineTotals(line.Quantity, line.UnitPrice, line.DiscountPercent, line.TaxPercent)
		order.Subtotal += net
		order.TaxAmount += tax
		order.TotalAmount += total
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return tx.InsertLines(ctx, id, lines)
	})
	if err != nil {
		return SalesOrder{}, err
	}
	order.Lines = lines
	s.logAudit(ctx, input.ActorID, "order.create", order.ID, map[string]any{"code": order.Code})
	return s.repo.Get(ctx, order.ID)
}

// UpdateInput carries a partial edit. Nil fields are untouched.
type UpdateInput struct {
	OrderDate *time.Time
	Notes     *string
	Lines     *[]LineInput
	ActorID   int64
}

// patch renders the input as the field map the mutability guard checks.
func (in UpdateInput) patch() map[string]any {
	patch := map[string]any{}
	if in.OrderDate != nil {
		patch["order_date"] = *in.OrderDate
	}
	if in.Notes != nil {
		patch["notes"] = *in.Notes
	}
	if in.Lines != nil {
		patch["lines"] = *in.Lines
	}
	return patch
}

// ValidateEditByID answers whether the patch would be accepted, without
// applying anything.
func (s *Service) ValidateEditByID(ctx context.Context, id int64, patch map[string]any) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return ValidateEdit(order, patch)
}

// Update applies a guarded edit.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (SalesOrder, error) {
	patch := input.patch()
	if len(patch) == 0 {
		return s.repo.Get(ctx, id)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateEdit(order, patch); err != nil {
			return err
		}
		updates := map[string]any{}
		if input.OrderDate != nil {
			updates["order_date"] = *input.OrderDate
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if input.Lines != nil {
			lines := buildLines(*input.Lines)
			var subtotal, tax, total float64
			for _, line := range lines {
				net, lineTax, lineTotal := lineTotals(line.Quantity, line.UnitPrice, line.DiscountPercent, line.TaxPercent)
				subtotal += net
				tax += lineTax
				total += lineTotal
			}
			updates["subtotal"] = subtotal
			updates["tax_amount"] = tax
			updates["total_amount"] = total
			if err := tx.DeleteLines(ctx, id); err != nil {
				return err
			}
			if err := tx.InsertLines(ctx, id, lines); err != nil {
				return err
			}
		}
		return tx.UpdateFields(ctx, id, updates)
	})
	if err != nil {
		return SalesOrder{}, err
	}
	s.logAudit(ctx, input.ActorID, "order.update", id, map[string]any{"fields": len(patch)})
	return s.repo.Get(ctx, id)
}

// Confirm moves a draft order to CONFIRMED and reserves stock for every
// line. A failed reservation rolls the earlier ones back.
func (s *Service) Confirm(ctx context.Context, id, actorID int64) (SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, err
	}
	if err := ValidateTransition(order.Status, StatusConfirmed); err != nil {
		return SalesOrder{}, err
	}
	ref := order.Code
	var reserved []SalesOrderLine
	for _, line := range order.Lines {
		if _, err := s.stock.Reserve(ctx, line.ProductID, line.Quantity, actorID, ref); err != nil {
			for _, done := range reserved {
				_, _ = s.stock.Release(ctx, done.ProductID, done.Quantity, actorID, ref)
			}
			return SalesOrder{}, err
		}
		reserved = append(reserved, line)
	}
	if err := s.transition(ctx, id, StatusConfirmed, nil); err != nil {
		for _, done := range reserved {
			_, _ = s.stock.Release(ctx, done.ProductID, done.Quantity, actorID, ref)
		}
		return SalesOrder{}, err
	}
	s.logAudit(ctx, actorID, "order.confirm", id, map[string]any{"code": order.Code})
	return s.repo.Get(ctx, id)
}

// StartProcessing moves a confirmed order into fulfilment.
func (s *Service) StartProcessing(ctx context.Context, id, actorID int64) (SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, err
	}
	if err := ValidateTransition(order.Status, StatusProcessing); err != nil {
		return SalesOrder{}, err
	}
	if err := s.transition(ctx, id, StatusProcessing, nil); err != nil {
		return SalesOrder{}, err
	}
	s.logAudit(ctx, actorID, "order.process", id, nil)
	return s.repo.Get(ctx, id)
}

// Complete finalises the sale: the cost basis freezes, the invoice posts
// to the customer ledger, and reserved stock ships. After this the order
// is permanently immutable. Every validation, including the credit check,
// runs before the first write; a rejection leaves the order untouched.
func (s *Service) Complete(ctx context.Context, id, actorID int64) (SalesOrder, COGSFreeze, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, COGSFreeze{}, err
	}
	if err := ValidateTransition(order.Status, StatusCompleted); err != nil {
		return SalesOrder{}, COGSFreeze{}, err
	}
	now := s.now().UTC()
	if s.periods != nil {
		if err := s.periods.EnsureOpen(ctx, now, "order.complete"); err != nil {
			return SalesOrder{}, COGSFreeze{}, err
		}
	}
	if s.ledgers != nil {
		if _, err := s.ledgers.ValidateCreditLimit(ctx, order.CustomerID, order.TotalAmount); err != nil {
			return SalesOrder{}, COGSFreeze{}, err
		}
	}

	freeze, err := FreezeCOGS(ctx, s.costs, order.ID, order.Lines, now)
	if err != nil {
		return SalesOrder{}, COGSFreeze{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(current.Status, StatusCompleted); err != nil {
			return err
		}
		if err := tx.InsertFrozenLines(ctx, freeze.Lines); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, id, StatusCompleted, now, nil)
	})
	if err != nil {
		return SalesOrder{}, COGSFreeze{}, err
	}

	// The invoice posts before any stock moves. The ledger re-runs the
	// credit check under its entity lock; if the headroom vanished since
	// the pre-check, the completion unwinds while nothing has shipped.
	if s.ledgers != nil {
		if _, err := s.ledgers.RecordTransaction(ctx, ledger.RecordInput{
			EntityType: ledger.EntityCustomer,
			EntityID:   order.CustomerID,
			Type:       ledger.TypeInvoice,
			Amount:     order.TotalAmount,
			Note:       order.Code,
			ActorID:    actorID,
			OccurredAt: now,
		}); err != nil {
			if revertErr := s.revertCompletion(ctx, id); revertErr != nil {
				return SalesOrder{}, COGSFreeze{}, fmt.Errorf("sales: post invoice: %w (revert failed: %v)", err, revertErr)
			}
			return SalesOrder{}, COGSFreeze{}, fmt.Errorf("sales: post invoice: %w", err)
		}
	}

	// Shipping draws on stock reserved at confirmation; a failure here is
	// infrastructure, not validation.
	ref := order.Code
	for _, line := range order.Lines {
		if _, err := s.stock.Release(ctx, line.ProductID, line.Quantity, actorID, ref); err != nil {
			return SalesOrder{}, COGSFreeze{}, fmt.Errorf("sales: release reservation: %w", err)
		}
		if _, err := s.stock.PostOutbound(ctx, inventory.OutboundInput{
			Code:      fmt.Sprintf("%s-L%d", order.Code, line.ID),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Note:      "sales order fulfilment",
			ActorID:   actorID,
			RefModule: "SALES",
		}); err != nil {
			return SalesOrder{}, COGSFreeze{}, fmt.Errorf("sales: issue stock: %w", err)
		}
	}

	s.logAudit(ctx, actorID, "order.complete", id, map[string]any{
		"code":       order.Code,
		"total_cogs": freeze.TotalCOGS,
	})
	completed, err := s.repo.Get(ctx, id)
	return completed, freeze, err
}

// revertCompletion undoes the status commit after a post-commit invoice
// rejection: the frozen cost lines are removed and the order returns to
// PROCESSING with no receivable and no stock movement.
func (s *Service) revertCompletion(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetOrderForUpdate(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteFrozenLines(ctx, id); err != nil {
			return err
		}
		return tx.UpdateFields(ctx, id, map[string]any{"status": StatusProcessing, "completed_at": nil})
	})
}

// Cancel aborts a non-final order, returning any reserved stock.
func (s *Service) Cancel(ctx context.Context, id, actorID int64, reason string) (SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, err
	}
	if err := ValidateTransition(order.Status, StatusCancelled); err != nil {
		return SalesOrder{}, err
	}
	if order.Status == StatusConfirmed || order.Status == StatusProcessing {
		for _, line := range order.Lines {
			if _, err := s.stock.Release(ctx, line.ProductID, line.Quantity, actorID, order.Code); err != nil {
				return SalesOrder{}, fmt.Errorf("sales: release reservation: %w", err)
			}
		}
	}
	if err := s.transition(ctx, id, StatusCancelled, &reason); err != nil {
		return SalesOrder{}, err
	}
	s.logAudit(ctx, actorID, "order.cancel", id, map[string]any{"reason": reason})
	return s.repo.Get(ctx, id)
}

// Get loads one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	return s.repo.List(ctx, filter)
}

// FrozenCOGS returns the permanent cost basis recorded at completion.
func (s *Service) FrozenCOGS(ctx context.Context, orderID int64) (COGSFreeze, error) {
	lines, err := s.repo.GetFrozenLines(ctx, orderID)
	if err != nil {
		return COGSFreeze{}, err
	}
	freeze := COGSFreeze{Lines: lines}
	for _, line := range lines {
		freeze.TotalCOGS += line.TotalCost
	}
	return freeze, nil
}

func (s *Service) transition(ctx context.Context, id int64, target OrderStatus, reason *string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(current.Status, target); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, id, target, s.now().UTC(), reason)
	})
}

func (s *Service) logAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
		At:       s.now().UTC(),
	})
}

func buildLines(inputs []LineInput) []SalesOrderLine {
	lines := make([]SalesOrderLine, 0, len(inputs))
	for _, in := range inputs {
		_, _, total := lineTotals(in.Quantity, in.UnitPrice, in.DiscountPercent, in.TaxPercent)
		lines = append(lines, SalesOrderLine{
			ProductID:       in.ProductID,
			Description:     in.Description,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.DiscountPercent,
			TaxPercent:      in.TaxPercent,
			LineTotal:       total,
		})
	}
	return lines
}
