package ledger

import (
	"fmt"
	"time"
)

// EntityType identifies which party a ledger transaction belongs to.
type EntityType string

const (
	EntityCustomer EntityType = "CUSTOMER"
	EntitySupplier EntityType = "SUPPLIER"
)

// TransactionType enumerates ledger transaction kinds.
type TransactionType string

const (
	// TypeInvoice raises what the party owes.
	TypeInvoice TransactionType = "INVOICE"
	// TypeDebitNote raises what the party owes.
	TypeDebitNote TransactionType = "DEBIT_NOTE"
	// TypePayment settles pending debt; overshoot becomes advance.
	TypePayment TransactionType = "PAYMENT"
	// TypeCreditNote settles pending debt; overshoot becomes advance.
	TypeCreditNote TransactionType = "CREDIT_NOTE"
)

// TransactionStatus enumerates transaction states.
type TransactionStatus string

const (
	StatusActive    TransactionStatus = "ACTIVE"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is one ledger row. The ordered transaction history is the sole
// authoritative source for a party's balances; summary columns on customers
// and suppliers are caches derived from it.
type Transaction struct {
	ID         int64
	EntityType EntityType
	EntityID   int64
	Type       TransactionType
	NetAmount  float64
	Status     TransactionStatus
	Note       string
	OccurredAt time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// Balance is the replayed position of a party.
type Balance struct {
	Pending float64 `json:"pending_balance"`
	Advance float64 `json:"advance_balance"`
}

// CreditProfile carries the policy data a credit check consumes. The engine
// enforces the ceiling; deciding it is someone else's job.
type CreditProfile struct {
	EntityID     int64
	CreditLimit  float64
	PaymentTerms string
}

// TermsCash marks customers that settle immediately; credit checks skip them.
const TermsCash = "CASH"

// CreditLimitError rejects a transaction that would push a customer past
// their credit ceiling.
type CreditLimitError struct {
	EntityID          int64
	CurrentBalance    float64
	CreditLimit       float64
	TransactionAmount float64
	NewBalance        float64
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("ledger: customer %d balance %.2f + %.2f exceeds credit limit %.2f",
		e.EntityID, e.CurrentBalance, e.TransactionAmount, e.CreditLimit)
}

// Code identifies the rejection for API consumers.
func (e *CreditLimitError) Code() string { return "CREDIT_LIMIT_EXCEEDED" }
