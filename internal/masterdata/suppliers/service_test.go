package suppliers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type memoryRepo struct {
	suppliers map[int64]Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: map[int64]Supplier{}}
}

func (r *memoryRepo) List(context.Context, ListFilter) ([]Supplier, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) FindByCode(_ context.Context, code string) (Supplier, error) {
	for _, s := range r.suppliers {
		if s.Code == code {
			return s, nil
		}
	}
	return Supplier{}, shared.ErrNotFound
}

func (r *memoryRepo) Insert(_ context.Context, s Supplier) (Supplier, error) {
	r.nextID++
	s.ID = r.nextID
	r.suppliers[s.ID] = s
	return s, nil
}

func (r *memoryRepo) UpdateFields(_ context.Context, id int64, updates map[string]any) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	if v, ok := updates["name"].(string); ok {
		s.Name = v
	}
	r.suppliers[id] = s
	return s, nil
}

func TestUpdateBlocksCachedBalanceColumns(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "SUP-001", Name: "Beans Inc"})
	require.NoError(t, err)
	require.Equal(t, "CASH", created.PaymentTerms)

	_, err = svc.Update(ctx, created.ID, map[string]any{"pending_balance": 100.0}, 1)
	var direct *shared.DirectEditError
	require.ErrorAs(t, err, &direct)
	require.Equal(t, "DIRECT_EDIT_BLOCKED", direct.Code())

	updated, err := svc.Update(ctx, created.ID, map[string]any{"name": "Beans International"}, 1)
	require.NoError(t, err)
	require.Equal(t, "Beans International", updated.Name)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "SUP-001", Name: "Beans Inc"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "SUP-001", Name: "Copycat"})
	require.ErrorIs(t, err, ErrCodeTaken)
}
