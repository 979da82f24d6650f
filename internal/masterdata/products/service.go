package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/inventory"
	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// ErrCodeTaken is returned when a product code is already in use.
var ErrCodeTaken = errors.New("masterdata: product code already exists")

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	FindByCode(ctx context.Context, code string) (Product, error)
	GetCost(ctx context.Context, id int64) (float64, error)
	Insert(ctx context.Context, p Product) (Product, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]any) (Product, error)
}

// AuditPort records who changed what.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// Service owns the product catalog. Stock quantities are projections of
// inventory movements and may not be edited through this package.
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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// ProductCost serves the static fallback cost for order costing.
func (s *Service) ProductCost(ctx context.Context, productID int64) (float64, error) {
	return s.repo.GetCost(ctx, productID)
}

// CreateInput carries a new catalog entry.
type CreateInput struct {
	Code    string
	Name    string
	Barcode *string
	Unit    string
	Price   float64
	Cost    float64
	ActorID int64
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	if input.Unit == "" {
		input.Unit = "EA"
	}
	if _, err := s.repo.FindByCode(ctx, input.Code); err == nil {
		return Product{}, ErrCodeTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Product{}, err
	}
	created, err := s.repo.Insert(ctx, Product{
		Code:     input.Code,
		Name:     input.Name,
		Barcode:  input.Barcode,
		Unit:     input.Unit,
		Price:    input.Price,
		Cost:     input.Cost,
		IsActive: true,
	})
	if err != nil {
		return Product{}, err
	}
	s.logAudit(ctx, input.ActorID, "product.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Update applies a field patch. The raw patch runs through the inventory
// guard first so current_stock and friends bounce with DIRECT_EDIT_BLOCKED
// instead of silently desyncing the movement history.
func (s *Service) Update(ctx context.Context, id int64, patch map[string]any, actorID int64) (Product, error) {
	if err := inventory.ValidateProductStockEdit(id, patch); err != nil {
		return Product{}, err
	}
	updates := map[string]any{}
	for _, field := range []string{"name", "barcode", "unit", "price", "cost", "is_active"} {
		if v, ok := patch[field]; ok {
			updates[field] = v
		}
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, id)
	}
	updated, err := s.repo.UpdateFields(ctx, id, updates)
	if err != nil {
		return Product{}, err
	}
	s.logAudit(ctx, actorID, "product.update", id, map[string]any{"fields": len(updates)})
	return updated, nil
}

func (s *Service) logAudit(ctx context.Context, actorID int64, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", productID),
		Meta:     meta,
		At:       s.now(),
	})
}
