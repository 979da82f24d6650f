package products

// CreateProductRequest registers a catalog entry.
type CreateProductRequest struct {
	Code    string  `json:"code" validate:"required,max=32"`
	Name    string  `json:"name" validate:"required,max=255"`
	Barcode *string `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Unit    string  `json:"unit" validate:"omitempty,max=16"`
	Price   float64 `json:"price" validate:"gte=0"`
	Cost    float64 `json:"cost" validate:"gte=0"`
}
