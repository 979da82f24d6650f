package shared

import "fmt"

// DirectEditError rejects a patch that touches a derived field. Derived
// fields are projections of movement or ledger history and may only change
// through the API named in UseInstead; even writing the current value back
// is refused.
type DirectEditError struct {
	Entity     string
	Field      string
	UseInstead string
}

func (e *DirectEditError) Error() string {
	return fmt.Sprintf("%s: field %q is derived and cannot be edited directly, use %s", e.Entity, e.Field, e.UseInstead)
}

// Code identifies the rejection for API consumers.
func (e *DirectEditError) Code() string { return "DIRECT_EDIT_BLOCKED" }

// ScanPatch returns the first blocked key present in patch, in deterministic
// order of the blocked list.
func ScanPatch(patch map[string]any, blocked []string) (string, bool) {
	for _, field := range blocked {
		if _, ok := patch[field]; ok {
			return field, true
		}
	}
	return "", false
}
