package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckCreditBoundary(t *testing.T) {
	profile := CreditProfile{EntityID: 1, CreditLimit: 1000, PaymentTerms: "NET30"}

	// Exactly at the limit passes.
	check, err := CheckCredit(profile, 900, 100)
	require.NoError(t, err)
	require.False(t, check.Skipped)
	require.InDelta(t, 1000.0, check.NewBalance, 0.001)

	// A cent over fails.
	_, err = CheckCredit(profile, 900, 100.01)
	var limitErr *CreditLimitError
	require.ErrorAs(t, err, &limitErr)
	require.InDelta(t, 900.0, limitErr.CurrentBalance, 0.001)
	require.InDelta(t, 1000.0, limitErr.CreditLimit, 0.001)
	require.InDelta(t, 1000.01, limitErr.NewBalance, 0.001)
	require.Equal(t, "CREDIT_LIMIT_EXCEEDED", limitErr.Code())
}

func TestCheckCreditCashTermsSkipped(t *testing.T) {
	profile := CreditProfile{EntityID: 2, CreditLimit: 0, PaymentTerms: TermsCash}

	check, err := CheckCredit(profile, 5000, 10000)
	require.NoError(t, err)
	require.True(t, check.Skipped)
}

func TestSplitOverpayment(t *testing.T) {
	split := SplitOverpayment(150, 100)
	require.True(t, split.HasOverpayment)
	require.InDelta(t, 100.0, split.AppliedToPending, 0.001)
	require.InDelta(t, 50.0, split.GoesToAdvance, 0.001)

	split = SplitOverpayment(80, 100)
	require.False(t, split.HasOverpayment)
	require.InDelta(t, 80.0, split.AppliedToPending, 0.001)
	require.Zero(t, split.GoesToAdvance)

	// Paying the exact pending amount is not an overpayment.
	split = SplitOverpayment(100, 100)
	require.False(t, split.HasOverpayment)
	require.InDelta(t, 100.0, split.AppliedToPending, 0.001)
}
