package suppliers

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

const supplierColumns = `id, code, name, email, phone, address, credit_limit, payment_terms,
pending_balance, advance_balance, balance_refreshed_at, is_active, created_by, created_at, updated_at`

// Repository persists suppliers in Postgres.
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

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE 1=1`
	args := []any{}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d)", n, n, n)
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

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id)
	return scanSupplier(row)
}

func (r *Repository) FindByCode(ctx context.Context, code string) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE code = $1`, code)
	return scanSupplier(row)
}

func (r *Repository) Insert(ctx context.Context, s Supplier) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO suppliers
(code, name, email, phone, address, credit_limit, payment_terms, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+supplierColumns,
		s.Code, s.Name, s.Email, s.Phone, s.Address, s.CreditLimit, s.PaymentTerms, s.IsActive, s.CreatedBy)
	return scanSupplier(row)
}

// UpdateFields applies a validated patch; balance columns never reach here.
func (r *Repository) UpdateFields(ctx context.Context, id int64, updates map[string]any) (Supplier, error) {
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
		`UPDATE suppliers SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+supplierColumns,
		args...)
	return scanSupplier(row)
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.Phone, &s.Address,
		&s.CreditLimit, &s.PaymentTerms, &s.PendingBalance, &s.AdvanceBalance,
		&s.BalanceRefreshedAt, &s.IsActive, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}
