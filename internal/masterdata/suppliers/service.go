package suppliers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// ErrCodeTaken is returned when a supplier code is already in use.
var ErrCodeTaken = errors.New("masterdata: supplier code already exists")

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	FindByCode(ctx context.Context, code string) (Supplier, error)
	Insert(ctx context.Context, s Supplier) (Supplier, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]any) (Supplier, error)
}

// AuditPort records who changed what.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// Service owns supplier master data.
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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Supplier, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput carries a new supplier.
type CreateInput struct {
	Code         string
	Name         string
	Email        *string
	Phone        *string
	Address      *string
	CreditLimit  float64
	PaymentTerms string
	ActorID      int64
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Supplier, error) {
	if input.PaymentTerms == "" {
		input.PaymentTerms = ledger.TermsCash
	}
	if _, err := s.repo.FindByCode(ctx, input.Code); err == nil {
		return Supplier{}, ErrCodeTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Supplier{}, err
	}
	created, err := s.repo.Insert(ctx, Supplier{
		Code:         input.Code,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		CreditLimit:  input.CreditLimit,
		PaymentTerms: input.PaymentTerms,
		IsActive:     true,
		CreatedBy:    input.ActorID,
	})
	if err != nil {
		return Supplier{}, err
	}
	s.logAudit(ctx, input.ActorID, "supplier.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Update applies a field patch. The same balance guard as customers applies;
// pending and advance balances only move through ledger transactions.
func (s *Service) Update(ctx context.Context, id int64, patch map[string]any, actorID int64) (Supplier, error) {
	if err := ledger.ValidateBalanceEdit(ledger.EntitySupplier, id, patch); err != nil {
		return Supplier{}, err
	}
	updates := map[string]any{}
	for _, field := range []string{"name", "email", "phone", "address", "credit_limit", "payment_terms", "is_active"} {
		if v, ok := patch[field]; ok {
			updates[field] = v
		}
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, id)
	}
	updated, err := s.repo.UpdateFields(ctx, id, updates)
	if err != nil {
		return Supplier{}, err
	}
	s.logAudit(ctx, actorID, "supplier.update", id, map[string]any{"fields": len(updates)})
	return updated, nil
}

func (s *Service) logAudit(ctx context.Context, actorID int64, action string, supplierID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "supplier",
		EntityID: fmt.Sprintf("%d", supplierID),
		Meta:     meta,
		At:       s.now(),
	})
}
