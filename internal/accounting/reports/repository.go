package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates posted journal lines into account balances.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SumBalances returns per-account totals for journal activity in
// [from, to]. Void entries do not count.
func (r *Repository) SumBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.code, a.name, a.class,
	CASE WHEN a.class IN ('ASSET','EXPENSE','COGS')
		THEN COALESCE(SUM(jl.debit) FILTER (WHERE je.date < $1), 0) - COALESCE(SUM(jl.credit) FILTER (WHERE je.date < $1), 0)
		ELSE COALESCE(SUM(jl.credit) FILTER (WHERE je.date < $1), 0) - COALESCE(SUM(jl.debit) FILTER (WHERE je.date < $1), 0)
	END AS opening,
	COALESCE(SUM(jl.debit) FILTER (WHERE je.date >= $1), 0) AS debit,
	COALESCE(SUM(jl.credit) FILTER (WHERE je.date >= $1), 0) AS credit
FROM accounts a
JOIN journal_lines jl ON jl.account_id = a.id
JOIN journal_entries je ON je.id = jl.je_id AND je.status = 'POSTED' AND je.date <= $2
GROUP BY a.code, a.name, a.class
ORDER BY a.code`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Class, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
