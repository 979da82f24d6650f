package ledger

import (
	"fmt"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// blockedBalanceFields are replay projections cached on customer and
// supplier rows. The ledger is the source of truth; these columns follow it.
var blockedBalanceFields = []string{
	"pending_balance",
	"advance_balance",
	"current_balance",
}

// ValidateBalanceEdit rejects patches that touch cached balance columns,
// regardless of the value. Balances change by recording ledger transactions
// and nothing else.
func ValidateBalanceEdit(entity EntityType, entityID int64, patch map[string]any) error {
	if field, found := shared.ScanPatch(patch, blockedBalanceFields); found {
		return &shared.DirectEditError{
			Entity:     fmt.Sprintf("%s %d", entity, entityID),
			Field:      field,
			UseInstead: "POST /api/v1/ledger/transactions",
		}
	}
	return nil
}
