package products

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

const productColumns = `id, code, name, barcode, unit, price, cost, is_active, created_at, updated_at`

// Repository persists products in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilter narrows List output.
type ListFilter struct {
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d OR barcode ILIKE $%d)", n, n, n)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY code LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *Repository) FindByCode(ctx context.Context, code string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
	return scanProduct(row)
}

// GetCost reads just the static cost column.
func (r *Repository) GetCost(ctx context.Context, id int64) (float64, error) {
	var cost float64
	err := r.pool.QueryRow(ctx, `SELECT cost FROM products WHERE id = $1`, id).Scan(&cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return cost, err
}

func (r *Repository) Insert(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (code, name, barcode, unit, price, cost, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+productColumns,
		p.Code, p.Name, p.Barcode, p.Unit, p.Price, p.Cost, p.IsActive)
	return scanProduct(row)
}

// UpdateFields applies a validated patch. Stock projections are gated out
// by the caller; only catalog columns arrive here.
func (r *Repository) UpdateFields(ctx context.Context, id int64, updates map[string]any) (Product, error) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	for _, k := range keys {
		args = append(args, updates[k])
		sets = append(sets, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+productColumns,
		args...)
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Barcode, &p.Unit, &p.Price, &p.Cost,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}
