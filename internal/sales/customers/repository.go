package customers

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

const customerColumns = `id, code, name, email, phone, address, credit_limit, payment_terms,
pending_balance, advance_balance, balance_refreshed_at, is_active, notes, created_by, created_at, updated_at`

// Repository persists customers in Postgres.
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

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE 1=1`
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

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *Repository) FindByCode(ctx context.Context, code string) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE code = $1`, code)
	return scanCustomer(row)
}

func (r *Repository) Insert(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO customers
(code, name, email, phone, address, credit_limit, payment_terms, is_active, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+customerColumns,
		c.Code, c.Name, c.Email, c.Phone, c.Address, c.CreditLimit, c.PaymentTerms, c.IsActive, c.Notes, c.CreatedBy)
	return scanCustomer(row)
}

// UpdateFields applies a validated patch. Callers gate the patch through
// ledger.ValidateBalanceEdit first; cached balance columns never pass here.
func (r *Repository) UpdateFields(ctx context.Context, id int64, updates map[string]any) (Customer, error) {
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
		`UPDATE customers SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+customerColumns,
		args...)
	return scanCustomer(row)
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.CreditLimit, &c.PaymentTerms, &c.PendingBalance, &c.AdvanceBalance,
		&c.BalanceRefreshedAt, &c.IsActive, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}
