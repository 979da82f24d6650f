package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// ErrCodeTaken is returned when a customer code is already in use.
var ErrCodeTaken = errors.New("sales: customer code already exists")

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	FindByCode(ctx context.Context, code string) (Customer, error)
	Insert(ctx context.Context, c Customer) (Customer, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]any) (Customer, error)
}

// AuditPort records who changed what.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// Service owns customer master data. Balance columns are read-only here;
// the ledger maintains them through replay.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock in tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput carries a new customer.
type CreateInput struct {
	Code         string
	Name         string
	Email        *string
	Phone        *string
	Address      *string
	CreditLimit  float64
	PaymentTerms string
	Notes        *string
	ActorID      int64
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Customer, error) {
	if input.PaymentTerms == "" {
		input.PaymentTerms = ledger.TermsCash
	}
	if _, err := s.repo.FindByCode(ctx, input.Code); err == nil {
		return Customer{}, ErrCodeTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Customer{}, err
	}
	created, err := s.repo.Insert(ctx, Customer{
		Code:         input.Code,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		CreditLimit:  input.CreditLimit,
		PaymentTerms: input.PaymentTerms,
		IsActive:     true,
		Notes:        input.Notes,
		CreatedBy:    input.ActorID,
	})
	if err != nil {
		return Customer{}, err
	}
	s.logAudit(ctx, input.ActorID, "customer.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Update applies a field patch. The raw patch is checked against the ledger's
// cached balance columns before anything touches the row: pending_balance,
// advance_balance and friends only move via ledger transactions.
func (s *Service) Update(ctx context.Context, id int64, patch map[string]any, actorID int64) (Customer, error) {
	if err := ledger.ValidateBalanceEdit(ledger.EntityCustomer, id, patch); err != nil {
		return Customer{}, err
	}
	updates := map[string]any{}
	for _, field := range []string{"name", "email", "phone", "address", "credit_limit", "payment_terms", "is_active", "notes"} {
		if v, ok := patch[field]; ok {
			updates[field] = v
		}
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, id)
	}
	updated, err := s.repo.UpdateFields(ctx, id, updates)
	if err != nil {
		return Customer{}, err
	}
	s.logAudit(ctx, actorID, "customer.update", id, map[string]any{"fields": len(updates)})
	return updated, nil
}

func (s *Service) logAudit(ctx context.Context, actorID int64, action string, customerID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "customer",
		EntityID: fmt.Sprintf("%d", customerID),
		Meta:     meta,
		At:       s.now(),
	})
}
