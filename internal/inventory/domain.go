package inventory

import (
	"fmt"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement such as a goods receipt.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement such as a sale issue.
	MovementOut MovementType = "OUT"
	// MovementAdjust indicates manual adjustments.
	MovementAdjust MovementType = "ADJUST"
)

// Record is the authoritative stock position for a product. CurrentStock and
// ReservedStock only change through movement or reservation operations;
// Product rows carry no writable stock of their own.
type Record struct {
	ProductID     int64
	CurrentStock  int64
	ReservedStock int64
	AverageCost   float64
	UpdatedAt     time.Time
}

// Available returns stock not held by reservations.
func (r Record) Available() int64 {
	return r.CurrentStock - r.ReservedStock
}

// Movement models a single stock change.
type Movement struct {
	ID        int64
	Code      string
	ProductID int64
	Type      MovementType
	Quantity  int64
	UnitCost  float64
	Note      string
	RefModule string
	RefID     string
	PostedAt  time.Time
	CreatedBy int64
}

// NotFoundError reports a stock-affecting operation against a product that
// has no inventory record. Inventory must exist before any movement.
type NotFoundError struct {
	ProductID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inventory: no record for product %d", e.ProductID)
}

// Code identifies the rejection for API consumers.
func (e *NotFoundError) Code() string { return "INVENTORY_NOT_FOUND" }

// NegativeStockError reports a movement that would push stock below zero.
type NegativeStockError struct {
	ProductID    int64
	CurrentStock int64
	Change       int64
	NewStock     int64
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("inventory: movement of %d would leave product %d at %d", e.Change, e.ProductID, e.NewStock)
}

// Code identifies the rejection for API consumers.
func (e *NegativeStockError) Code() string { return "NEGATIVE_STOCK_PREVENTED" }

// InsufficientStockError reports an outbound movement that would consume
// stock already reserved for other orders.
type InsufficientStockError struct {
	ProductID      int64
	CurrentStock   int64
	ReservedStock  int64
	AvailableStock int64
	Requested      int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: product %d has %d available (%d on hand, %d reserved), requested %d",
		e.ProductID, e.AvailableStock, e.CurrentStock, e.ReservedStock, e.Requested)
}

// Code identifies the rejection for API consumers.
func (e *InsufficientStockError) Code() string { return "INSUFFICIENT_AVAILABLE_STOCK" }

// ReservationError reports a reservation change that does not fit the
// current stock position.
type ReservationError struct {
	ProductID int64
	Requested int64
	Reason    string
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("inventory: cannot reserve %d of product %d: %s", e.Requested, e.ProductID, e.Reason)
}
