package customers

// CreateCustomerRequest registers a new credit party.
type CreateCustomerRequest struct {
	Code         string  `json:"code" validate:"required,max=32"`
	Name         string  `json:"name" validate:"required,max=255"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address      *string `json:"address,omitempty"`
	CreditLimit  float64 `json:"credit_limit" validate:"gte=0"`
	PaymentTerms string  `json:"payment_terms" validate:"omitempty,oneof=CASH NET7 NET14 NET30 NET60"`
	Notes        *string `json:"notes,omitempty"`
}
