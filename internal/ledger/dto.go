package ledger

import "time"

// RecordTransactionRequest is the JSON payload for appending a ledger row.
type RecordTransactionRequest struct {
	EntityType EntityType      `json:"entity_type" validate:"required,oneof=CUSTOMER SUPPLIER"`
	EntityID   int64           `json:"entity_id" validate:"required,gt=0"`
	Type       TransactionType `json:"type" validate:"required,oneof=INVOICE DEBIT_NOTE PAYMENT CREDIT_NOTE"`
	Amount     float64         `json:"amount" validate:"required,gt=0"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
	Note       string          `json:"note,omitempty" validate:"max=500"`
}

// CreditCheckRequest asks whether an amount fits under the ceiling.
type CreditCheckRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// BalancePatchRequest carries an arbitrary entity patch, checked by the
// balance edit guard before any update is applied.
type BalancePatchRequest map[string]any
