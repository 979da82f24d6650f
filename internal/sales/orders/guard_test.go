package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTransitionMatrix(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusDraft, StatusConfirmed, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusDraft, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusDraft, StatusProcessing, false},
		{StatusDraft, StatusCompleted, false},
		{StatusConfirmed, StatusDraft, false},
		{StatusConfirmed, StatusCompleted, false},
		{StatusProcessing, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusDraft, false},
		{StatusCancelled, StatusDraft, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestValidateEditCompletedIsFullyLocked(t *testing.T) {
	order := SalesOrder{ID: 7, Status: StatusCompleted}

	for _, patch := range []map[string]any{
		{"notes": "new note"},
		{"lines": []any{}},
		{},
	} {
		err := ValidateEdit(order, patch)
		var locked *LockedError
		require.ErrorAs(t, err, &locked)
		require.Equal(t, "ORDER_LOCKED", locked.Code())
		require.Equal(t, int64(7), locked.OrderID)
	}
}

func TestValidateEditConfirmedLocksCommercialFields(t *testing.T) {
	for _, status := range []OrderStatus{StatusConfirmed, StatusProcessing} {
		order := SalesOrder{ID: 3, Status: status}

		require.NoError(t, ValidateEdit(order, map[string]any{"notes": "call before delivery"}))
		require.NoError(t, ValidateEdit(order, map[string]any{"order_date": "2026-07-01"}))

		for _, field := range []string{"items", "lines", "customer_id", "unit_price", "total_amount"} {
			err := ValidateEdit(order, map[string]any{field: 1})
			var partial *PartialLockError
			require.ErrorAs(t, err, &partial, "status %s field %s", status, field)
			require.Equal(t, "ORDER_PARTIALLY_LOCKED", partial.Code())
			require.Equal(t, field, partial.Field)
		}

		// A mixed patch is rejected as a whole.
		err := ValidateEdit(order, map[string]any{"notes": "ok", "lines": []any{}})
		var partial *PartialLockError
		require.ErrorAs(t, err, &partial)
	}
}

func TestValidateEditDraftAndCancelledUnrestricted(t *testing.T) {
	for _, status := range []OrderStatus{StatusDraft, StatusCancelled} {
		order := SalesOrder{ID: 1, Status: status}
		require.NoError(t, ValidateEdit(order, map[string]any{"lines": []any{}, "customer_id": 9, "notes": "x"}))
	}
}
