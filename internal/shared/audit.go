package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row of the integrity trail. Every guarded mutation in
// the engine records who did what to which entity; the trail is how a
// detected balance drift gets traced back to its writer.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

const insertAuditLog = `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`

// AuditLogger appends to audit_logs. Rows are never updated or deleted.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a logger writing through the given pool.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists one entry. Action, entity and entity id are mandatory;
// an unattributable row is useless for tracing.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, insertAuditLog, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, log.At)
	return err
}
