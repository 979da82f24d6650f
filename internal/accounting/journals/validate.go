package journals

import (
	"fmt"
	"math"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// ErrEmptyEntrySet rejects a posting with no lines.
var ErrEmptyEntrySet = shared.CodedError("EMPTY_ENTRY_SET", "accounting: journal entry set is empty")

// DoubleEntryError rejects an entry set whose debits and credits disagree by
// more than the shared amount tolerance.
type DoubleEntryError struct {
	TotalDebits  float64
	TotalCredits float64
	Difference   float64
}

func (e *DoubleEntryError) Error() string {
	return fmt.Sprintf("accounting: journal unbalanced, debits %.2f != credits %.2f (difference %.2f)",
		e.TotalDebits, e.TotalCredits, e.Difference)
}

// Code identifies the rejection for API consumers.
func (e *DoubleEntryError) Code() string { return "DOUBLE_ENTRY_VIOLATION" }

// BalanceTotals is the successful result of a double-entry check.
type BalanceTotals struct {
	TotalDebits  float64 `json:"total_debits"`
	TotalCredits float64 `json:"total_credits"`
	Balanced     bool    `json:"balanced"`
}

// EntryAmounts is the minimal shape the balancing check needs.
type EntryAmounts struct {
	Debit  float64
	Credit float64
}

// ValidateDoubleEntry sums debits and credits across the entry set and
// accepts only when the totals agree within the amount tolerance. Negative
// amounts count as zero; sign flips belong on the opposite column.
func ValidateDoubleEntry(entries []EntryAmounts) (BalanceTotals, error) {
	if len(entries) == 0 {
		return BalanceTotals{}, ErrEmptyEntrySet
	}
	var debits, credits float64
	for _, e := range entries {
		debits += math.Max(e.Debit, 0)
		credits += math.Max(e.Credit, 0)
	}
	if !shared.AmountsEqual(debits, credits) {
		return BalanceTotals{}, &DoubleEntryError{
			TotalDebits:  debits,
			TotalCredits: credits,
			Difference:   shared.AmountDiff(debits, credits),
		}
	}
	return BalanceTotals{TotalDebits: debits, TotalCredits: credits, Balanced: true}, nil
}
