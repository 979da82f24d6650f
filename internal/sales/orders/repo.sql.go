package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

const orderColumns = `id, code, customer_id, order_date, status, currency, subtotal, tax_amount, total_amount, notes, created_by, confirmed_at, completed_at, cancelled_at, cancellation_reason, created_at, updated_at`

const lineColumns = `id, sales_order_id, product_id, description, quantity, unit_price, discount_percent, tax_percent, line_total`

// Get loads one order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (SalesOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return SalesOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM sales_order_lines WHERE sales_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return SalesOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SalesOrderLine
		if err := rows.Scan(&line.ID, &line.SalesOrderID, &line.ProductID, &line.Description, &line.Quantity, &line.UnitPrice, &line.DiscountPercent, &line.TaxPercent, &line.LineTotal); err != nil {
			return SalesOrder{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

// List returns orders matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM sales_orders
WHERE ($1 = 0 OR customer_id = $1)
  AND ($2 = '' OR status = $2)
  AND ($3::timestamptz IS NULL OR order_date >= $3)
  AND ($4::timestamptz IS NULL OR order_date <= $4)
ORDER BY order_date DESC, id DESC LIMIT $5 OFFSET $6`,
		filter.CustomerID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []SalesOrder
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetFrozenLines returns the frozen cost lines for an order.
func (r *Repository) GetFrozenLines(ctx context.Context, orderID int64) ([]FrozenCOGSLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sales_order_id, product_id, quantity, unit_cost, total_cost, cost_source, frozen_at
FROM frozen_cogs_lines WHERE sales_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []FrozenCOGSLine
	for rows.Next() {
		var line FrozenCOGSLine
		if err := rows.Scan(&line.ID, &line.SalesOrderID, &line.ProductID, &line.Quantity, &line.UnitCost, &line.TotalCost, &line.CostSource, &line.FrozenAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// GetOrderForUpdate locks the order row for the rest of the transaction.
func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (SalesOrder, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

// InsertOrder creates the order header.
func (t *txRepo) InsertOrder(ctx context.Context, order SalesOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_orders (code, customer_id, order_date, status, currency, subtotal, tax_amount, total_amount, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		order.Code, order.CustomerID, order.OrderDate, order.Status, order.Currency, order.Subtotal, order.TaxAmount, order.TotalAmount, order.Notes, order.CreatedBy).Scan(&id)
	return id, err
}

// InsertLines appends line rows.
func (t *txRepo) InsertLines(ctx context.Context, orderID int64, lines []SalesOrderLine) error {
	for _, line := range lines {
		if _, err := t.tx.Exec(ctx, `INSERT INTO sales_order_lines (sales_order_id, product_id, description, quantity, unit_price, discount_percent, tax_percent, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			orderID, line.ProductID, line.Description, line.Quantity, line.UnitPrice, line.DiscountPercent, line.TaxPercent, line.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

// DeleteLines clears lines before a draft rewrite.
func (t *txRepo) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sales_order_lines WHERE sales_order_id = $1`, orderID)
	return err
}

// UpdateFields applies a whitelisted field patch.
func (t *txRepo) UpdateFields(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	set := ""
	args := []any{id}
	for i, key := range keys {
		if i > 0 {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", key, i+2)
		args = append(args, updates[key])
	}
	cmd, err := t.tx.Exec(ctx, `UPDATE sales_orders SET `+set+`, updated_at = NOW() WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus writes a validated transition and stamps the matching
// timestamp column.
func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status OrderStatus, at time.Time, reason *string) error {
	column := ""
	switch status {
	case StatusConfirmed:
		column = "confirmed_at"
	case StatusCompleted:
		column = "completed_at"
	case StatusCancelled:
		column = "cancelled_at"
	}
	query := `UPDATE sales_orders SET status = $2, updated_at = NOW()`
	args := []any{id, status}
	if column != "" {
		query += fmt.Sprintf(", %s = $3", column)
		args = append(args, at)
		if status == StatusCancelled {
			query += ", cancellation_reason = $4"
			args = append(args, reason)
		}
	}
	cmd, err := t.tx.Exec(ctx, query+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// InsertFrozenLines writes the one-time cost snapshot.
func (t *txRepo) InsertFrozenLines(ctx context.Context, lines []FrozenCOGSLine) error {
	for _, line := range lines {
		if _, err := t.tx.Exec(ctx, `INSERT INTO frozen_cogs_lines (sales_order_id, product_id, quantity, unit_cost, total_cost, cost_source, frozen_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			line.SalesOrderID, line.ProductID, line.Quantity, line.UnitCost, line.TotalCost, line.CostSource, line.FrozenAt); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFrozenLines removes the cost snapshot when a completion unwinds.
func (t *txRepo) DeleteFrozenLines(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM frozen_cogs_lines WHERE sales_order_id = $1`, orderID)
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanOrder(row pgx.Row) (SalesOrder, error) {
	var o SalesOrder
	err := row.Scan(&o.ID, &o.Code, &o.CustomerID, &o.OrderDate, &o.Status, &o.Currency, &o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.ConfirmedAt, &o.CompletedAt, &o.CancelledAt, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesOrder{}, shared.ErrNotFound
	}
	return o, err
}

func scanOrderRow(rows pgx.Rows) (SalesOrder, error) {
	var o SalesOrder
	err := rows.Scan(&o.ID, &o.Code, &o.CustomerID, &o.OrderDate, &o.Status, &o.Currency, &o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.ConfirmedAt, &o.CompletedAt, &o.CancelledAt, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
