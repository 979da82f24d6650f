package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

const recordColumns = `product_id, current_stock, reserved_stock, average_cost, updated_at`

// FindByProduct loads the stock record for a product.
func (r *Repository) FindByProduct(ctx context.Context, productID int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE product_id = $1`, productID)
	return scanRecord(row)
}

// ListMovements returns movements for a product ordered by posting time.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, product_id, type, quantity, unit_cost, note, ref_module, ref_id, posted_at, created_by
FROM inventory_movements
WHERE product_id = $1 AND ($2::timestamptz IS NULL OR posted_at >= $2) AND ($3::timestamptz IS NULL OR posted_at <= $3)
ORDER BY posted_at, id LIMIT $4`, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Code, &m.ProductID, &m.Type, &m.Quantity, &m.UnitCost, &m.Note, &m.RefModule, &m.RefID, &m.PostedAt, &m.CreatedBy); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ListTrackedProducts returns ids of every product with a stock record.
func (r *Repository) ListTrackedProducts(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM inventory_records ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SumMovements folds the full movement history for a product. Quantities are
// stored signed, so the sum is the stock the record should show.
func (r *Repository) SumMovements(ctx context.Context, productID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM inventory_movements WHERE product_id = $1`, productID).Scan(&total)
	return total, err
}

// ResyncFromMovements rewrites the cached quantity from the movement sum.
// This is the only code path allowed to write current_stock directly; it is
// reserved for integrity scans repairing a drifted record.
func (r *Repository) ResyncFromMovements(ctx context.Context, productID int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `UPDATE inventory_records
SET current_stock = (SELECT COALESCE(SUM(quantity), 0) FROM inventory_movements WHERE product_id = $1), updated_at = NOW()
WHERE product_id = $1
RETURNING `+recordColumns, productID)
	return scanRecord(row)
}

// GetRecordForUpdate locks the record row for the rest of the transaction.
func (t *txRepo) GetRecordForUpdate(ctx context.Context, productID int64) (Record, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE product_id = $1 FOR UPDATE`, productID)
	return scanRecord(row)
}

// InsertMovement appends a movement row. History is append-only; nothing in
// the engine ever deletes movements.
func (t *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO inventory_movements (code, product_id, type, quantity, unit_cost, note, ref_module, ref_id, posted_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		m.Code, m.ProductID, m.Type, m.Quantity, m.UnitCost, m.Note, m.RefModule, m.RefID, m.PostedAt, m.CreatedBy).Scan(&id)
	return id, err
}

// ApplyStockChange performs the conditional decrement. The WHERE clause
// carries the non-negativity invariant so it holds even against writers
// outside this transaction's snapshot.
func (t *txRepo) ApplyStockChange(ctx context.Context, productID, change int64, allowNegative bool, newAvgCost float64) (Record, error) {
	row := t.tx.QueryRow(ctx, `UPDATE inventory_records
SET current_stock = current_stock + $2, average_cost = $3, updated_at = NOW()
WHERE product_id = $1 AND (current_stock + $2 >= 0 OR $4)
RETURNING `+recordColumns, productID, change, newAvgCost, allowNegative)
	rec, err := scanRecord(row)
	if errors.Is(err, shared.ErrNotFound) {
		return Record{}, &NegativeStockError{ProductID: productID, Change: change}
	}
	return rec, err
}

// ApplyReservationChange adjusts the reserved quantity, keeping
// 0 <= reserved <= current.
func (t *txRepo) ApplyReservationChange(ctx context.Context, productID, change int64) (Record, error) {
	row := t.tx.QueryRow(ctx, `UPDATE inventory_records
SET reserved_stock = reserved_stock + $2, updated_at = NOW()
WHERE product_id = $1 AND reserved_stock + $2 >= 0 AND reserved_stock + $2 <= current_stock
RETURNING `+recordColumns, productID, change)
	rec, err := scanRecord(row)
	if errors.Is(err, shared.ErrNotFound) {
		reason := "exceeds stock on hand"
		if change < 0 {
			reason = "release exceeds reserved quantity"
		}
		return Record{}, &ReservationError{ProductID: productID, Requested: change, Reason: reason}
	}
	return rec, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ProductID, &rec.CurrentStock, &rec.ReservedStock, &rec.AverageCost, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}
