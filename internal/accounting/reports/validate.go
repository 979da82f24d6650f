package reports

import (
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// ImbalanceError rejects a balance sheet whose sides disagree by more than
// the amount tolerance.
type ImbalanceError struct {
	Assets      float64
	Liabilities float64
	Equity      float64
	Difference  float64
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("reports: balance sheet out of balance, assets %.2f != liabilities %.2f + equity %.2f (difference %.2f)",
		e.Assets, e.Liabilities, e.Equity, e.Difference)
}

// Code identifies the rejection for API consumers.
func (e *ImbalanceError) Code() string { return "BALANCE_SHEET_IMBALANCE" }

// HistoricalLockedError rejects a recalculation whose window touches a
// closed or locked period. Published statements stay as published.
type HistoricalLockedError struct {
	PeriodCode string
	From       time.Time
	To         time.Time
}

func (e *HistoricalLockedError) Error() string {
	return fmt.Sprintf("reports: recalculation over %s..%s touches closed period %s",
		e.From.Format("2006-01-02"), e.To.Format("2006-01-02"), e.PeriodCode)
}

// Code identifies the rejection for API consumers.
func (e *HistoricalLockedError) Code() string { return "HISTORICAL_STATEMENT_LOCKED" }

// EquationCheck is the successful result of the equation validation.
type EquationCheck struct {
	Assets            float64 `json:"assets"`
	LiabilitiesEquity float64 `json:"liabilities_plus_equity"`
	Balanced          bool    `json:"balanced"`
}

// ValidateEquation enforces Assets = Liabilities + Equity within the amount
// tolerance.
func ValidateEquation(assets, liabilities, equity float64) (EquationCheck, error) {
	other := liabilities + equity
	if !shared.AmountsEqual(assets, other) {
		return EquationCheck{}, &ImbalanceError{
			Assets:      assets,
			Liabilities: liabilities,
			Equity:      equity,
			Difference:  shared.AmountDiff(assets, other),
		}
	}
	return EquationCheck{Assets: assets, LiabilitiesEquity: other, Balanced: true}, nil
}
