package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

const txColumns = `id, entity_type, entity_id, type, net_amount, status, note, occurred_at, created_by, created_at`

const txSelect = `SELECT ` + txColumns + ` FROM ledger_transactions
WHERE entity_type = $1 AND entity_id = $2 AND ($3 = false OR status <> 'CANCELLED')
ORDER BY occurred_at, id`

// FindByEntity returns a party's transactions in chronological order.
func (r *Repository) FindByEntity(ctx context.Context, entityType EntityType, entityID int64, excludeCancelled bool) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, txSelect, entityType, entityID, excludeCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// GetCreditProfile loads credit policy data for a party.
func (r *Repository) GetCreditProfile(ctx context.Context, entityType EntityType, entityID int64) (CreditProfile, error) {
	table := "customers"
	if entityType == EntitySupplier {
		table = "suppliers"
	}
	var p CreditProfile
	err := r.pool.QueryRow(ctx, `SELECT id, credit_limit, payment_terms FROM `+table+` WHERE id = $1`, entityID).
		Scan(&p.EntityID, &p.CreditLimit, &p.PaymentTerms)
	if errors.Is(err, pgx.ErrNoRows) {
		return CreditProfile{}, shared.ErrNotFound
	}
	return p, err
}

// ListEntities returns ids of all parties with ledger activity.
func (r *Repository) ListEntities(ctx context.Context, entityType EntityType) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT entity_id FROM ledger_transactions WHERE entity_type = $1 ORDER BY entity_id`, entityType)
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

// GetCachedBalance reads the summary columns for drift comparison.
func (r *Repository) GetCachedBalance(ctx context.Context, entityType EntityType, entityID int64) (Balance, error) {
	table := "customers"
	if entityType == EntitySupplier {
		table = "suppliers"
	}
	var b Balance
	err := r.pool.QueryRow(ctx, `SELECT pending_balance, advance_balance FROM `+table+` WHERE id = $1`, entityID).
		Scan(&b.Pending, &b.Advance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, shared.ErrNotFound
	}
	return b, err
}

// LockEntity takes the party's row lock for the rest of the transaction.
func (t *txRepo) LockEntity(ctx context.Context, entityType EntityType, entityID int64) error {
	table := "customers"
	if entityType == EntitySupplier {
		table = "suppliers"
	}
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR UPDATE`, entityID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return err
}

// ListTransactions returns the party's history within the transaction.
func (t *txRepo) ListTransactions(ctx context.Context, entityType EntityType, entityID int64, excludeCancelled bool) ([]Transaction, error) {
	rows, err := t.tx.Query(ctx, txSelect, entityType, entityID, excludeCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// InsertTransaction appends a ledger row.
func (t *txRepo) InsertTransaction(ctx context.Context, row Transaction) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO ledger_transactions (entity_type, entity_id, type, net_amount, status, note, occurred_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		row.EntityType, row.EntityID, row.Type, row.NetAmount, row.Status, row.Note, row.OccurredAt, row.CreatedBy).Scan(&id)
	return id, err
}

// GetTransaction loads a single transaction.
func (t *txRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+txColumns+` FROM ledger_transactions WHERE id = $1`, id)
	var tr Transaction
	err := row.Scan(&tr.ID, &tr.EntityType, &tr.EntityID, &tr.Type, &tr.NetAmount, &tr.Status, &tr.Note, &tr.OccurredAt, &tr.CreatedBy, &tr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	return tr, err
}

// MarkCancelled flips status; the row itself stays.
func (t *txRepo) MarkCancelled(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE ledger_transactions SET status = 'CANCELLED' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateCachedBalance writes the replay result into the summary columns.
func (t *txRepo) UpdateCachedBalance(ctx context.Context, entityType EntityType, entityID int64, b Balance, at time.Time) error {
	table := "customers"
	if entityType == EntitySupplier {
		table = "suppliers"
	}
	_, err := t.tx.Exec(ctx, `UPDATE `+table+` SET pending_balance = $2, advance_balance = $3, balance_refreshed_at = $4 WHERE id = $1`,
		entityID, b.Pending, b.Advance, at)
	return err
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		var tr Transaction
		if err := rows.Scan(&tr.ID, &tr.EntityType, &tr.EntityID, &tr.Type, &tr.NetAmount, &tr.Status, &tr.Note, &tr.OccurredAt, &tr.CreatedBy, &tr.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tr)
	}
	return txs, rows.Err()
}
