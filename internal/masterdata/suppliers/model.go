package suppliers

import "time"

// Supplier is the payable-side credit party. Balance columns mirror the
// customer side: cached ledger projections, refreshed by replay only.
type Supplier struct {
	ID                 int64      `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Email              *string    `json:"email,omitempty"`
	Phone              *string    `json:"phone,omitempty"`
	Address            *string    `json:"address,omitempty"`
	CreditLimit        float64    `json:"credit_limit"`
	PaymentTerms       string     `json:"payment_terms"`
	PendingBalance     float64    `json:"pending_balance"`
	AdvanceBalance     float64    `json:"advance_balance"`
	BalanceRefreshedAt *time.Time `json:"balance_refreshed_at,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedBy          int64      `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
