package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig indicates invalid evaluator configuration.
	ErrInvalidConfig = errors.New("invalid evaluator configuration")

	// ErrContextCancelled indicates the request context was cancelled
	// mid-evaluation; the decision was resolved by the fail-safe mode.
	ErrContextCancelled = errors.New("evaluation context cancelled")

	// ErrAuditUnavailable indicates the audit sink rejected the decision
	// event while the evaluator is configured fail-closed for audit
	// durability.
	ErrAuditUnavailable = errors.New("audit sink unavailable")
)

// TimeoutError indicates a single rule exceeded its evaluation timeout.
type TimeoutError struct {
	RuleID  string
	Timeout time.Duration
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rule %s: evaluation timeout after %v", e.RuleID, e.Timeout)
}
