package orders

import (
	"fmt"
	"time"
)

// OrderStatus enumerates sales order lifecycle states. Progression is
// linear; there is no way back once an order leaves DRAFT.
type OrderStatus string

const (
	StatusDraft      OrderStatus = "DRAFT"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// SalesOrder models a customer order with its pricing snapshot.
type SalesOrder struct {
	ID                 int64            `json:"id"`
	Code               string           `json:"code"`
	CustomerID         int64            `json:"customer_id"`
	OrderDate          time.Time        `json:"order_date"`
	Status             OrderStatus      `json:"status"`
	Currency           string           `json:"currency"`
	Subtotal           float64          `json:"subtotal"`
	TaxAmount          float64          `json:"tax_amount"`
	TotalAmount        float64          `json:"total_amount"`
	Notes              *string          `json:"notes,omitempty"`
	CreatedBy          int64            `json:"created_by"`
	ConfirmedAt        *time.Time       `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Lines              []SalesOrderLine `json:"lines,omitempty"`
}

// SalesOrderLine is one priced item on an order.
type SalesOrderLine struct {
	ID              int64   `json:"id"`
	SalesOrderID    int64   `json:"sales_order_id"`
	ProductID       int64   `json:"product_id"`
	Description     *string `json:"description,omitempty"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	TaxPercent      float64 `json:"tax_percent"`
	LineTotal       float64 `json:"line_total"`
}

// FrozenCOGSLine captures the unit cost of a sold item at the instant of
// completion. Written once; later average-cost changes never touch it.
type FrozenCOGSLine struct {
	ID           int64     `json:"id"`
	SalesOrderID int64     `json:"sales_order_id"`
	ProductID    int64     `json:"product_id"`
	Quantity     int64     `json:"quantity"`
	UnitCost     float64   `json:"unit_cost"`
	TotalCost    float64   `json:"total_cost"`
	CostSource   string    `json:"cost_source"`
	FrozenAt     time.Time `json:"frozen_at"`
}

// LockedError rejects any edit of a completed order.
type LockedError struct {
	OrderID int64
	Status  OrderStatus
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("sales: order %d is %s and permanently immutable", e.OrderID, e.Status)
}

// Code identifies the rejection for API consumers.
func (e *LockedError) Code() string { return "ORDER_LOCKED" }

// PartialLockError rejects edits to commercial fields once an order has
// been confirmed. Metadata edits remain allowed.
type PartialLockError struct {
	OrderID int64
	Status  OrderStatus
	Field   string
}

func (e *PartialLockError) Error() string {
	return fmt.Sprintf("sales: order %d is %s, field %q can no longer change", e.OrderID, e.Status, e.Field)
}

// Code identifies the rejection for API consumers.
func (e *PartialLockError) Code() string { return "ORDER_PARTIALLY_LOCKED" }

// ProductNotFoundError rejects a cost freeze referencing a missing product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("sales: product %d not found", e.ProductID)
}

// Code identifies the rejection for API consumers.
func (e *ProductNotFoundError) Code() string { return "PRODUCT_NOT_FOUND" }
