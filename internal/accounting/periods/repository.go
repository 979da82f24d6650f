package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const periodColumns = `id, code, start_date, end_date, status, closed_at, locked_by, created_at, updated_at`

// FindCoveringPeriod returns the period containing date with one of the
// given statuses.
func (r *Repository) FindCoveringPeriod(ctx context.Context, date time.Time, statuses []PeriodStatus) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE start_date <= $1 AND end_date >= $1 AND status = ANY($2)
ORDER BY start_date LIMIT 1`, date, statusStrings(statuses))
	return scanPeriod(row)
}

// FindCoveringRange returns the first closed or locked period overlapping
// [from, to].
func (r *Repository) FindCoveringRange(ctx context.Context, from, to time.Time) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE start_date <= $2 AND end_date >= $1 AND status IN ('CLOSED','LOCKED')
ORDER BY start_date LIMIT 1`, from, to)
	return scanPeriod(row)
}

// GetPeriod loads a period by id.
func (r *Repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id = $1`, id)
	return scanPeriod(row)
}

// ListPeriods returns all periods ordered by start date.
func (r *Repository) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriodRow(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// InsertPeriod creates a new open period.
func (r *Repository) InsertPeriod(ctx context.Context, code string, start, end time.Time) (Period, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounting_periods (code, start_date, end_date, status)
VALUES ($1, $2, $3, 'OPEN') RETURNING `+periodColumns, code, start, end)
	return scanPeriod(row)
}

// RangeConflict reports whether an existing period overlaps [start, end].
func (r *Repository) RangeConflict(ctx context.Context, start, end time.Time) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounting_periods WHERE start_date <= $2 AND end_date >= $1`, start, end).Scan(&count)
	return count > 0, err
}

// GetPeriodForUpdate locks a period row inside a transaction.
func (r *Repository) GetPeriodForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Period, error) {
	row := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id = $1 FOR UPDATE`, id)
	return scanPeriod(row)
}

// UpdateStatus writes a validated transition.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status PeriodStatus, closedAt *time.Time, lockedBy *int64) error {
	_, err := tx.Exec(ctx, `UPDATE accounting_periods SET status = $2, closed_at = COALESCE($3, closed_at), locked_by = COALESCE($4, locked_by), updated_at = NOW() WHERE id = $1`,
		id, status, closedAt, lockedBy)
	return err
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func statusStrings(statuses []PeriodStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrNotFound
	}
	return p, err
}

func scanPeriodRow(rows pgx.Rows) (Period, error) {
	var p Period
	err := rows.Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
