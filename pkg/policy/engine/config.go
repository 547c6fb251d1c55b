package engine

import (
	"fmt"
	"time"
)

// FailSafeMode determines how the evaluator resolves an indeterminate
// result, e.g. a cancelled request context.
type FailSafeMode string

const (
	// FailOpen allows requests when evaluation cannot complete. Use this
	// where blocking legitimate traffic is worse than allowing potentially
	// risky requests.
	FailOpen FailSafeMode = "fail-open"

	// FailClosed denies requests when evaluation cannot complete. This is
	// the default.
	FailClosed FailSafeMode = "fail-closed"
)

// Config contains configuration for the policy evaluator.
type Config struct {
	// FailSafeMode resolves indeterminate evaluations.
	// Default: FailClosed.
	FailSafeMode FailSafeMode

	// RuleTimeout is the maximum time allowed to evaluate a single rule.
	// A timed-out rule is treated as non-matching with a recorded error,
	// or as a block when the rule is flagged fail-closed.
	// Default: 50ms.
	RuleTimeout time.Duration

	// RiskDenyThreshold denies requests whose aggregate risk score exceeds
	// it, after the security level's tightening multiplier is applied.
	// Zero disables the evaluator-level risk check.
	// Default: 0 (disabled).
	RiskDenyThreshold float64

	// FailClosedAudit denies requests when the audit sink cannot accept
	// the decision event.
	// Default: false.
	FailClosedAudit bool

	// IncludeDetails carries per-rule results and error detail in the
	// returned decision. When false the decision exposes only the outcome,
	// matched rules, and risk score.
	// Default: true.
	IncludeDetails bool
}

// DefaultConfig returns the default evaluator configuration.
func DefaultConfig() *Config {
	return &Config{
		FailSafeMode:   FailClosed,
		RuleTimeout:    50 * time.Millisecond,
		IncludeDetails: true,
	}
}

// Validate validates the evaluator configuration.
func (c *Config) Validate() error {
	switch c.FailSafeMode {
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("%w: invalid fail-safe mode %q", ErrInvalidConfig, c.FailSafeMode)
	}

	if c.RuleTimeout <= 0 {
		return fmt.Errorf("%w: rule timeout must be positive", ErrInvalidConfig)
	}

	if c.RiskDenyThreshold < 0 || c.RiskDenyThreshold > 1 {
		return fmt.Errorf("%w: risk deny threshold must be within [0,1]", ErrInvalidConfig)
	}

	return nil
}
