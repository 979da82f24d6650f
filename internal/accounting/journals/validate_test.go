package journals

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDoubleEntryBalanced(t *testing.T) {
	totals, err := ValidateDoubleEntry([]EntryAmounts{
		{Debit: 100},
		{Credit: 100},
	})
	require.NoError(t, err)
	require.True(t, totals.Balanced)
	require.InDelta(t, 100.0, totals.TotalDebits, 0.001)
	require.InDelta(t, 100.0, totals.TotalCredits, 0.001)
}

func TestValidateDoubleEntryUnbalanced(t *testing.T) {
	_, err := ValidateDoubleEntry([]EntryAmounts{
		{Debit: 100},
		{Credit: 99},
	})
	var violation *DoubleEntryError
	require.ErrorAs(t, err, &violation)
	require.Equal(t, "DOUBLE_ENTRY_VIOLATION", violation.Code())
	require.InDelta(t, 100.0, violation.TotalDebits, 0.001)
	require.InDelta(t, 99.0, violation.TotalCredits, 0.001)
	require.InDelta(t, 1.0, violation.Difference, 0.001)
}

func TestValidateDoubleEntryToleratesRounding(t *testing.T) {
	// 0.1+0.2 style float noise stays inside the tolerance.
	totals, err := ValidateDoubleEntry([]EntryAmounts{
		{Debit: 33.33},
		{Debit: 33.33},
		{Debit: 33.34},
		{Credit: 100.00},
	})
	require.NoError(t, err)
	require.True(t, totals.Balanced)

	_, err = ValidateDoubleEntry([]EntryAmounts{
		{Debit: 100.02},
		{Credit: 100.00},
	})
	require.Error(t, err)
}

func TestValidateDoubleEntryEmptySet(t *testing.T) {
	_, err := ValidateDoubleEntry(nil)
	require.ErrorIs(t, err, ErrEmptyEntrySet)
}

func TestValidateDoubleEntryNegativeGuardedToZero(t *testing.T) {
	totals, err := ValidateDoubleEntry([]EntryAmounts{
		{Debit: 50, Credit: -10},
		{Credit: 50, Debit: -3},
	})
	require.NoError(t, err)
	require.InDelta(t, 50.0, totals.TotalDebits, 0.001)
	require.InDelta(t, 50.0, totals.TotalCredits, 0.001)
}
