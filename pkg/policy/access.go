package policy

import (
	"slices"

	"github.com/pthm/relay"
)

// FieldAccessible reports whether field is reachable under the given
// include and exclude sets. A nil include set was not declared and grants
// every field; an empty, non-nil include set grants none. Exclusion wins
// over inclusion.
func FieldAccessible(include, exclude []string, field string) bool {
	if slices.Contains(exclude, wildcard) || slices.Contains(exclude, field) {
		return false
	}
	if include == nil {
		return true
	}
	return slices.Contains(include, wildcard) || slices.Contains(include, field)
}

// CheckFieldAccess fails if any of fields is not accessible.
func CheckFieldAccess(include, exclude []string, fields []string) error {
	for _, f := range fields {
		if !FieldAccessible(include, exclude, f) {
			return relay.NewConfigValidationError(MsgFieldsInaccessible)
		}
	}
	return nil
}
