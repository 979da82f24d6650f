package products

import "time"

// Product is catalog master data. Its stock figures live in inventory
// records and are exposed read-only through the inventory API; Cost is the
// static fallback used when a product has no moving-average cost yet.
type Product struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Barcode   *string   `json:"barcode,omitempty"`
	Unit      string    `json:"unit"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
