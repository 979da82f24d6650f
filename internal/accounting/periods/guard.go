package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// Store is the read side the guard depends on. Both lookups return
// shared.ErrNotFound when no closed or locked period matches.
type Store interface {
	FindCoveringPeriod(ctx context.Context, date time.Time, statuses []PeriodStatus) (Period, error)
	// FindCoveringRange returns the first closed or locked period
	// overlapping [from, to].
	FindCoveringRange(ctx context.Context, from, to time.Time) (Period, error)
}

// Guard is the single period-lock gate. Transaction creation, order edits
// after completion, and statement recalculation all go through it so a
// closed period refuses every write the same way.
type Guard struct {
	store Store
}

// NewGuard constructs a Guard.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// EnsureOpen fails when date falls inside a closed or locked period. A date
// covered by no period, or by an open one, passes.
func (g *Guard) EnsureOpen(ctx context.Context, date time.Time, operation string) error {
	period, err := g.store.FindCoveringPeriod(ctx, date, []PeriodStatus{PeriodStatusClosed, PeriodStatusLocked})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("accounting: period lookup: %w", err)
	}
	return &LockedError{
		PeriodCode: period.Code,
		Status:     period.Status,
		Date:       date,
		Operation:  operation,
	}
}

// EnsureRangeOpen fails when any closed or locked period overlaps the
// [from, to] interval. Used by statement recalculation, where touching any
// published day is enough to refuse.
func (g *Guard) EnsureRangeOpen(ctx context.Context, from, to time.Time, operation string) error {
	period, err := g.store.FindCoveringRange(ctx, from, to)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("accounting: period range lookup: %w", err)
	}
	return &LockedError{
		PeriodCode: period.Code,
		Status:     period.Status,
		Date:       period.StartDate,
		Operation:  operation,
	}
}
