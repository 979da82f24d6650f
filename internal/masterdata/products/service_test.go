package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}}
}

func (r *memoryRepo) List(context.Context, ListFilter) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) FindByCode(_ context.Context, code string) (Product, error) {
	for _, p := range r.products {
		if p.Code == code {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (r *memoryRepo) GetCost(_ context.Context, id int64) (float64, error) {
	p, ok := r.products[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return p.Cost, nil
}

func (r *memoryRepo) Insert(_ context.Context, p Product) (Product, error) {
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) UpdateFields(_ context.Context, id int64, updates map[string]any) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	if v, ok := updates["price"].(float64); ok {
		p.Price = v
	}
	if v, ok := updates["cost"].(float64); ok {
		p.Cost = v
	}
	r.products[id] = p
	return p, nil
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "SKU-1", Name: "Coffee", Cost: 4.5})
	require.NoError(t, err)
	require.Equal(t, "EA", created.Unit)

	_, err = svc.Create(ctx, CreateInput{Code: "SKU-1", Name: "Other"})
	require.ErrorIs(t, err, ErrCodeTaken)
}

func TestUpdateBlocksStockProjections(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "SKU-1", Name: "Coffee"})
	require.NoError(t, err)

	for _, field := range []string{"current_stock", "reserved_stock", "stock"} {
		_, err := svc.Update(ctx, created.ID, map[string]any{field: 99}, 1)
		var direct *shared.DirectEditError
		require.ErrorAs(t, err, &direct, "field %s", field)
		require.Equal(t, "DIRECT_EDIT_BLOCKED", direct.Code())
	}

	updated, err := svc.Update(ctx, created.ID, map[string]any{"price": 12.5, "cost": 6.0}, 1)
	require.NoError(t, err)
	require.InDelta(t, 12.5, updated.Price, 0.001)
}

func TestProductCostServesFallback(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "SKU-1", Name: "Coffee", Cost: 7.25})
	require.NoError(t, err)

	cost, err := svc.ProductCost(ctx, created.ID)
	require.NoError(t, err)
	require.InDelta(t, 7.25, cost, 0.001)

	_, err = svc.ProductCost(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
