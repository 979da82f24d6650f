package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

var (
	// ErrPeriodOverlap indicates a new period would overlap an existing one.
	ErrPeriodOverlap = errors.New("accounting: period overlaps an existing period")
	// ErrInvalidPeriodRange indicates end date precedes start date.
	ErrInvalidPeriodRange = errors.New("accounting: period end before start")
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Store
	GetPeriod(ctx context.Context, id int64) (Period, error)
	ListPeriods(ctx context.Context) ([]Period, error)
	InsertPeriod(ctx context.Context, code string, start, end time.Time) (Period, error)
	RangeConflict(ctx context.Context, start, end time.Time) (bool, error)
	GetPeriodForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Period, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status PeriodStatus, closedAt *time.Time, lockedBy *int64) error
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

// SnapshotInvalidator drops cached report snapshots when a period changes
// state. Closing a period publishes its numbers, so stale drafts must go.
type SnapshotInvalidator interface {
	InvalidateRange(ctx context.Context, from, to time.Time) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the period lifecycle.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	snapshots SnapshotInvalidator
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, audit AuditPort, snapshots SnapshotInvalidator) *Service {
	return &Service{repo: repo, audit: audit, snapshots: snapshots, now: time.Now}
}

// WithNow overrides the clock, used in tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreatePeriod opens a new period. Overlapping windows are refused so every
// date maps to at most one period.
func (s *Service) CreatePeriod(ctx context.Context, code string, start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriodRange
	}
	conflict, err := s.repo.RangeConflict(ctx, start, end)
	if err != nil {
		return Period{}, fmt.Errorf("accounting: period overlap check: %w", err)
	}
	if conflict {
		return Period{}, ErrPeriodOverlap
	}
	period, err := s.repo.InsertPeriod(ctx, code, start, end)
	if err != nil {
		return Period{}, fmt.Errorf("accounting: create period: %w", err)
	}
	s.logAudit(ctx, 0, "period.create", period.ID, map[string]any{"code": code})
	return period, nil
}

// GetPeriod loads one period.
func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetPeriod(ctx, id)
}

// ListPeriods returns all periods ordered by start date.
func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.repo.ListPeriods(ctx)
}

// ClosePeriod moves an open period to CLOSED.
func (s *Service) ClosePeriod(ctx context.Context, id, actorID int64) (Period, error) {
	return s.transition(ctx, id, actorID, PeriodStatusClosed)
}

// LockPeriod moves a period to LOCKED, the terminal state.
func (s *Service) LockPeriod(ctx context.Context, id, actorID int64) (Period, error) {
	return s.transition(ctx, id, actorID, PeriodStatusLocked)
}

func (s *Service) transition(ctx context.Context, id, actorID int64, target PeriodStatus) (Period, error) {
	var updated Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		period, err := s.repo.GetPeriodForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(period.Status, target); err != nil {
			return fmt.Errorf("%w: %s -> %s", err, period.Status, target)
		}
		if period.Status == target {
			updated = period
			return nil
		}
		now := s.now()
		var closedAt *time.Time
		var lockedBy *int64
		if target == PeriodStatusClosed || period.ClosedAt == nil {
			closedAt = &now
		}
		if target == PeriodStatusLocked {
			lockedBy = &actorID
		}
		if err := s.repo.UpdateStatus(ctx, tx, id, target, closedAt, lockedBy); err != nil {
			return err
		}
		updated = period
		updated.Status = target
		if closedAt != nil {
			updated.ClosedAt = closedAt
		}
		updated.LockedBy = lockedBy
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	if s.snapshots != nil {
		if err := s.snapshots.InvalidateRange(ctx, updated.StartDate, updated.EndDate); err != nil {
			return Period{}, fmt.Errorf("accounting: invalidate snapshots: %w", err)
		}
	}
	s.logAudit(ctx, actorID, "period."+string(target), id, map[string]any{"code": updated.Code})
	return updated, nil
}

func (s *Service) logAudit(ctx context.Context, actorID int64, action string, periodID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "accounting_period",
		EntityID: fmt.Sprintf("%d", periodID),
		Meta:     meta,
		At:       s.now(),
	})
}
