package periods

import "time"

// CreatePeriodRequest opens a new fiscal period.
type CreatePeriodRequest struct {
	Code      string    `json:"code" validate:"required,max=32"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// PeriodResponse is the wire shape of a period.
type PeriodResponse struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Status    string     `json:"status"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func toResponse(p Period) PeriodResponse {
	return PeriodResponse{
		ID:        p.ID,
		Code:      p.Code,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    string(p.Status),
		ClosedAt:  p.ClosedAt,
	}
}
