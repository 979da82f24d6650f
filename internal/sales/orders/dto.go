package orders

import "time"

// CreateOrderRequest opens a draft order.
type CreateOrderRequest struct {
	Code       string             `json:"code" validate:"omitempty,max=32"`
	CustomerID int64              `json:"customer_id" validate:"required,gt=0"`
	OrderDate  *time.Time         `json:"order_date,omitempty"`
	Currency   string             `json:"currency" validate:"required,len=3"`
	Notes      *string            `json:"notes,omitempty"`
	Lines      []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// OrderLineRequest is one requested item.
type OrderLineRequest struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	Description     *string `json:"description,omitempty"`
	Quantity        int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

// UpdateOrderRequest carries a partial edit; nil fields stay untouched.
type UpdateOrderRequest struct {
	OrderDate *time.Time          `json:"order_date,omitempty"`
	Notes     *string             `json:"notes,omitempty"`
	Lines     *[]OrderLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

// CancelOrderRequest carries the cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// EditPatchRequest carries an arbitrary field patch for the mutability
// pre-check endpoint.
type EditPatchRequest map[string]any

func toLineInputs(reqs []OrderLineRequest) []LineInput {
	lines := make([]LineInput, 0, len(reqs))
	for _, req := range reqs {
		lines = append(lines, LineInput{
			ProductID:       req.ProductID,
			Description:     req.Description,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
			TaxPercent:      req.TaxPercent,
		})
	}
	return lines
}
