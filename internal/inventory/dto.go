package inventory

import "time"

// PostMovementRequest is the JSON payload for posting a stock movement.
type PostMovementRequest struct {
	Code          string       `json:"code,omitempty" validate:"max=40"`
	ProductID     int64        `json:"product_id" validate:"required,gt=0"`
	Type          MovementType `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	Quantity      int64        `json:"quantity" validate:"required"`
	UnitCost      float64      `json:"unit_cost" validate:"gte=0"`
	AllowNegative bool         `json:"allow_negative,omitempty"`
	Note          string       `json:"note,omitempty" validate:"max=500"`
	RefModule     string       `json:"ref_module,omitempty" validate:"max=40"`
	RefID         string       `json:"ref_id,omitempty" validate:"omitempty,uuid"`
}

// ReservationRequest holds or releases stock for an order.
type ReservationRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Ref       string `json:"ref,omitempty" validate:"max=80"`
}

// RecordResponse is the stock position returned to callers.
type RecordResponse struct {
	ProductID      int64     `json:"product_id"`
	CurrentStock   int64     `json:"current_stock"`
	ReservedStock  int64     `json:"reserved_stock"`
	AvailableStock int64     `json:"available_stock"`
	AverageCost    float64   `json:"average_cost"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRecordResponse(rec Record) RecordResponse {
	return RecordResponse{
		ProductID:      rec.ProductID,
		CurrentStock:   rec.CurrentStock,
		ReservedStock:  rec.ReservedStock,
		AvailableStock: rec.Available(),
		AverageCost:    rec.AverageCost,
		UpdatedAt:      rec.UpdatedAt,
	}
}
