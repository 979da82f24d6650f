package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]Customer{}}
}

func (r *memoryRepo) List(context.Context, ListFilter) ([]Customer, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) FindByCode(_ context.Context, code string) (Customer, error) {
	for _, c := range r.customers {
		if c.Code == code {
			return c, nil
		}
	}
	return Customer{}, shared.ErrNotFound
}

func (r *memoryRepo) Insert(_ context.Context, c Customer) (Customer, error) {
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepo) UpdateFields(_ context.Context, id int64, updates map[string]any) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	if v, ok := updates["name"].(string); ok {
		c.Name = v
	}
	if v, ok := updates["credit_limit"].(float64); ok {
		c.CreditLimit = v
	}
	r.customers[id] = c
	return c, nil
}

func TestCreateDefaultsToCashTerms(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	created, err := svc.Create(context.Background(), CreateInput{Code: "CUST-001", Name: "Acme", ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, "CASH", created.PaymentTerms)
	require.True(t, created.IsActive)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "CUST-001", Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "CUST-001", Name: "Acme Two"})
	require.ErrorIs(t, err, ErrCodeTaken)
}

func TestUpdateBlocksCachedBalanceColumns(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "CUST-001", Name: "Acme"})
	require.NoError(t, err)

	for _, field := range []string{"pending_balance", "advance_balance", "current_balance"} {
		_, err := svc.Update(ctx, created.ID, map[string]any{field: 500.0}, 1)
		var direct *shared.DirectEditError
		require.ErrorAs(t, err, &direct, "field %s", field)
		require.Equal(t, "DIRECT_EDIT_BLOCKED", direct.Code())
		require.Equal(t, field, direct.Field)
	}

	// A patch mixing a good field with a blocked one is rejected whole.
	_, err = svc.Update(ctx, created.ID, map[string]any{"name": "Acme Corp", "pending_balance": 0.0}, 1)
	require.Error(t, err)
	current, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", current.Name)
}

func TestUpdateAllowsProfileFields(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "CUST-001", Name: "Acme"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, map[string]any{"name": "Acme Corp", "credit_limit": 2500.0}, 1)
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", updated.Name)
	require.InDelta(t, 2500.0, updated.CreditLimit, 0.001)
}
