package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/accounting/periods"
	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// BalancePort provides aggregated account balances.
type BalancePort interface {
	SumBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error)
}

// CachePort stores generated snapshots.
type CachePort interface {
	Get(ctx context.Context, asOf time.Time) (BalanceSheet, error)
	Put(ctx context.Context, sheet BalanceSheet) error
}

// RangeGuard gates recalculations on the accounting calendar.
type RangeGuard interface {
	EnsureRangeOpen(ctx context.Context, from, to time.Time, operation string) error
}

// Service generates and validates financial statements.
type Service struct {
	balances BalancePort
	cache    CachePort
	periods  RangeGuard
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(balances BalancePort, cache CachePort, periods RangeGuard) *Service {
	return &Service{balances: balances, cache: cache, periods: periods, now: time.Now}
}

// WithNow overrides the clock, used in tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// epoch anchors full-history aggregation.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// BalanceSheet returns the statement as of the given date, serving a cached
// snapshot when one exists. Every generated sheet passes the equation check
// before it is returned or cached.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, asOf)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return BalanceSheet{}, fmt.Errorf("reports: snapshot cache: %w", err)
		}
	}
	sheet, err := s.generate(ctx, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, sheet); err != nil {
			return BalanceSheet{}, fmt.Errorf("reports: snapshot cache: %w", err)
		}
	}
	return sheet, nil
}

func (s *Service) generate(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	balances, err := s.balances.SumBalances(ctx, epoch, asOf)
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("reports: aggregate balances: %w", err)
	}
	income := BuildIncomeStatement(epoch, asOf, balances)
	sheet := BuildBalanceSheet(asOf, balances)
	// Retained earnings live in equity until closing entries are posted.
	sheet.TotalEquity += income.NetIncome
	if _, err := ValidateEquation(sheet.TotalAssets, sheet.TotalLiabilities, sheet.TotalEquity); err != nil {
		return BalanceSheet{}, err
	}
	sheet.GeneratedAt = s.now()
	return sheet, nil
}

// IncomeStatement builds the profit and loss view over [from, to].
func (s *Service) IncomeStatement(ctx context.Context, from, to time.Time) (IncomeStatement, error) {
	balances, err := s.balances.SumBalances(ctx, from, to)
	if err != nil {
		return IncomeStatement{}, fmt.Errorf("reports: aggregate balances: %w", err)
	}
	return BuildIncomeStatement(from, to, balances), nil
}

// Recalculate regenerates statements over [from, to], refusing when the
// window touches a closed or locked period.
func (s *Service) Recalculate(ctx context.Context, from, to time.Time) (IncomeStatement, error) {
	if err := s.ValidateRecalculation(ctx, from, to); err != nil {
		return IncomeStatement{}, err
	}
	return s.IncomeStatement(ctx, from, to)
}

// ValidateRecalculation is the pure gate: it answers whether the window may
// be rebuilt without touching published history.
func (s *Service) ValidateRecalculation(ctx context.Context, from, to time.Time) error {
	if s.periods == nil {
		return nil
	}
	err := s.periods.EnsureRangeOpen(ctx, from, to, "report.recalculate")
	if err == nil {
		return nil
	}
	var locked *periods.LockedError
	if errors.As(err, &locked) {
		return &HistoricalLockedError{PeriodCode: locked.PeriodCode, From: from, To: to}
	}
	return err
}
