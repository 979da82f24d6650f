package ledger

// CreditCheck is the approved result of a credit limit validation.
type CreditCheck struct {
	Skipped           bool    `json:"credit_check_skipped"`
	CurrentBalance    float64 `json:"current_balance"`
	CreditLimit       float64 `json:"credit_limit"`
	TransactionAmount float64 `json:"transaction_amount"`
	NewBalance        float64 `json:"new_balance"`
}

// CheckCredit enforces the credit ceiling for a proposed transaction.
// Cash-terms customers are exempt: they settle immediately, so there is no
// exposure to limit.
func CheckCredit(profile CreditProfile, currentBalance, amount float64) (CreditCheck, error) {
	if profile.PaymentTerms == TermsCash {
		return CreditCheck{Skipped: true, CurrentBalance: currentBalance, TransactionAmount: amount}, nil
	}
	newBalance := currentBalance + amount
	if newBalance > profile.CreditLimit {
		return CreditCheck{}, &CreditLimitError{
			EntityID:          profile.EntityID,
			CurrentBalance:    currentBalance,
			CreditLimit:       profile.CreditLimit,
			TransactionAmount: amount,
			NewBalance:        newBalance,
		}
	}
	return CreditCheck{
		CurrentBalance:    currentBalance,
		CreditLimit:       profile.CreditLimit,
		TransactionAmount: amount,
		NewBalance:        newBalance,
	}, nil
}

// OverpaymentSplit routes a payment across pending debt and advance credit.
type OverpaymentSplit struct {
	HasOverpayment   bool    `json:"has_overpayment"`
	AppliedToPending float64 `json:"applied_to_pending"`
	GoesToAdvance    float64 `json:"goes_to_advance"`
}

// SplitOverpayment deterministically allocates a payment: pending debt is
// settled first and any excess becomes advance balance.
func SplitOverpayment(paymentAmount, pendingBalance float64) OverpaymentSplit {
	if paymentAmount > pendingBalance {
		return OverpaymentSplit{
			HasOverpayment:   true,
			AppliedToPending: pendingBalance,
			GoesToAdvance:    paymentAmount - pendingBalance,
		}
	}
	return OverpaymentSplit{AppliedToPending: paymentAmount}
}
