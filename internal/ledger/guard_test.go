package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

func TestValidateBalanceEdit(t *testing.T) {
	err := ValidateBalanceEdit(EntityCustomer, 1, map[string]any{"name": "Acme", "phone": "555"})
	require.NoError(t, err)

	for _, field := range []string{"pending_balance", "advance_balance", "current_balance"} {
		err := ValidateBalanceEdit(EntityCustomer, 1, map[string]any{field: 0.0})
		var editErr *shared.DirectEditError
		require.ErrorAs(t, err, &editErr)
		require.Equal(t, field, editErr.Field)
		require.Contains(t, editErr.UseInstead, "ledger/transactions")
	}

	// Rejected even when the value matches the current one.
	err = ValidateBalanceEdit(EntitySupplier, 9, map[string]any{"pending_balance": 123.45, "note": "x"})
	var editErr *shared.DirectEditError
	require.ErrorAs(t, err, &editErr)
	require.Equal(t, "DIRECT_EDIT_BLOCKED", editErr.Code())
}
