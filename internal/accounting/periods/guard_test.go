package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

type stubStore struct {
	periods []Period
}

func (s *stubStore) FindCoveringPeriod(_ context.Context, date time.Time, statuses []PeriodStatus) (Period, error) {
	for _, p := range s.periods {
		if !p.Contains(date) {
			continue
		}
		for _, st := range statuses {
			if p.Status == st {
				return p, nil
			}
		}
	}
	return Period{}, shared.ErrNotFound
}

func (s *stubStore) FindCoveringRange(_ context.Context, from, to time.Time) (Period, error) {
	for _, p := range s.periods {
		if p.Status == PeriodStatusOpen {
			continue
		}
		if !p.StartDate.After(to) && !p.EndDate.Before(from) {
			return p, nil
		}
	}
	return Period{}, shared.ErrNotFound
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEnsureOpenBlocksClosedPeriod(t *testing.T) {
	store := &stubStore{periods: []Period{
		{Code: "2026-01", StartDate: day("2026-01-01"), EndDate: day("2026-01-31"), Status: PeriodStatusClosed},
	}}
	guard := NewGuard(store)

	err := guard.EnsureOpen(context.Background(), day("2026-01-15"), "ledger.record")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, "PERIOD_LOCKED", locked.Code())
	require.Equal(t, "2026-01", locked.PeriodCode)
	require.Equal(t, "ledger.record", locked.Operation)
}

func TestEnsureOpenAllowsOpenPeriod(t *testing.T) {
	store := &stubStore{periods: []Period{
		{Code: "2026-02", StartDate: day("2026-02-01"), EndDate: day("2026-02-28"), Status: PeriodStatusOpen},
	}}
	guard := NewGuard(store)
	require.NoError(t, guard.EnsureOpen(context.Background(), day("2026-02-10"), "ledger.record"))
}

func TestEnsureOpenAllowsUncoveredDate(t *testing.T) {
	guard := NewGuard(&stubStore{})
	require.NoError(t, guard.EnsureOpen(context.Background(), day("2026-03-05"), "journal.post"))
}

func TestEnsureRangeOpenBlocksOverlap(t *testing.T) {
	store := &stubStore{periods: []Period{
		{Code: "2026-01", StartDate: day("2026-01-01"), EndDate: day("2026-01-31"), Status: PeriodStatusLocked},
	}}
	guard := NewGuard(store)

	// Range brushes the locked period by a single day.
	err := guard.EnsureRangeOpen(context.Background(), day("2026-01-31"), day("2026-02-28"), "report.recalculate")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, PeriodStatusLocked, locked.Status)

	require.NoError(t, guard.EnsureRangeOpen(context.Background(), day("2026-02-01"), day("2026-02-28"), "report.recalculate"))
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to PeriodStatus
		ok       bool
	}{
		{PeriodStatusOpen, PeriodStatusClosed, true},
		{PeriodStatusOpen, PeriodStatusLocked, true},
		{PeriodStatusClosed, PeriodStatusLocked, true},
		{PeriodStatusClosed, PeriodStatusOpen, false},
		{PeriodStatusLocked, PeriodStatusOpen, false},
		{PeriodStatusLocked, PeriodStatusClosed, false},
		{PeriodStatusOpen, PeriodStatusOpen, true},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			require.ErrorIs(t, err, ErrInvalidPeriodTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}
