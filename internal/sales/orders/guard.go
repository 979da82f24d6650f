package orders

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition indicates a status change outside the lifecycle.
var ErrInvalidTransition = errors.New("sales: invalid status transition")

var nextStatus = map[OrderStatus][]OrderStatus{
	StatusDraft:      {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ValidateTransition enforces the linear lifecycle
// DRAFT -> CONFIRMED -> PROCESSING -> COMPLETED, with CANCELLED reachable
// from every non-final state. No back-transitions.
func ValidateTransition(current, target OrderStatus) error {
	for _, allowed := range nextStatus[current] {
		if allowed == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

// commercialFields are locked once the order is confirmed: changing items,
// pricing, or the customer after confirmation would detach the order from
// the reservations and credit checks made against it.
var commercialFields = map[string]bool{
	"lines":        true,
	"items":        true,
	"customer_id":  true,
	"currency":     true,
	"unit_price":   true,
	"subtotal":     true,
	"tax_amount":   true,
	"total_amount": true,
}

// ValidateEdit gates a field patch by order status.
//
// COMPLETED is terminal-immutable: every edit fails, even a no-op.
// CONFIRMED and PROCESSING lock commercial fields but allow metadata.
// DRAFT and CANCELLED are unrestricted.
func ValidateEdit(order SalesOrder, patch map[string]any) error {
	switch order.Status {
	case StatusCompleted:
		return &LockedError{OrderID: order.ID, Status: order.Status}
	case StatusConfirmed, StatusProcessing:
		keys := make([]string, 0, len(patch))
		for key := range patch {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if commercialFields[key] {
				return &PartialLockError{OrderID: order.ID, Status: order.Status, Field: key}
			}
		}
	}
	return nil
}
