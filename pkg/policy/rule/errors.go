package rule

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors.
var (
	// ErrNotFound indicates the requested rule does not exist.
	ErrNotFound = errors.New("rule not found")
)

// ValidationError indicates a malformed rule rejected at registration.
// The rule is never stored.
type ValidationError struct {
	RuleID string
	Errors []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("rule %s: validation error: %s", e.RuleID, e.Errors[0])
	}
	return fmt.Sprintf("rule %s: %d validation errors: %s", e.RuleID, len(e.Errors), strings.Join(e.Errors, "; "))
}

// CycleDetectedError indicates that registering a rule would create a cycle
// in the dependency graph over the active rule set. Registration is rejected
// and the store is left unchanged.
type CycleDetectedError struct {
	// Members lists rule IDs participating in the cycle.
	Members []string
}

// Error returns the error message.
func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("dependency cycle detected among rules: %s", strings.Join(e.Members, ", "))
}
