// Package level holds the engine-wide security posture and the controller
// that transitions it. The level is a lock-free atomic so evaluation reads
// never contend with administrative changes.
package level

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"sentinel-hq/aegis/pkg/audit"
)

// Level is the engine-wide security posture.
type Level int32

const (
	// Monitor evaluates everything but never enforces. Blocking actions
	// are downgraded to log-only and requests are always allowed.
	Monitor Level = iota

	// Standard is the default enforcement posture.
	Standard

	// High tightens the risk threshold.
	High

	// Maximum is the strictest posture.
	Maximum
)

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	switch l {
	case Monitor:
		return "MONITOR"
	case Standard:
		return "STANDARD"
	case High:
		return "HIGH"
	case Maximum:
		return "MAXIMUM"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// Valid reports whether l is a defined level.
func (l Level) Valid() bool {
	return l >= Monitor && l <= Maximum
}

// BlockingEnforced reports whether blocking rule actions deny requests at
// this level. Only Monitor suppresses enforcement.
func (l Level) BlockingEnforced() bool {
	return l != Monitor
}

// riskMultiplier scales a configured risk threshold downward at stricter
// levels, denying at lower risk scores.
func (l Level) riskMultiplier() float64 {
	switch l {
	case High:
		return 0.85
	case Maximum:
		return 0.7
	default:
		return 1.0
	}
}

// RiskThreshold returns the effective risk threshold for this level given
// the configured base threshold.
func (l Level) RiskThreshold(base float64) float64 {
	return base * l.riskMultiplier()
}

// Parse converts a level name (case-sensitive, upper-case) to a Level.
func Parse(s string) (Level, error) {
	switch s {
	case "MONITOR":
		return Monitor, nil
	case "STANDARD":
		return Standard, nil
	case "HIGH":
		return High, nil
	case "MAXIMUM":
		return Maximum, nil
	default:
		return Standard, fmt.Errorf("unknown security level %q", s)
	}
}

// Auditor records level transitions. *audit.Log satisfies it.
type Auditor interface {
	Append(ctx context.Context, category audit.Category, severity audit.Severity, payload map[string]any) (uint64, error)
}

// Controller owns the current security level. Reads are a single atomic
// load; transitions are serialized by the audit append.
type Controller struct {
	level   atomic.Int32
	auditor Auditor
	logger  *slog.Logger
}

// NewController creates a controller starting at the given level. The
// auditor may be nil, in which case transitions are only logged.
func NewController(initial Level, auditor Auditor) *Controller {
	c := &Controller{
		auditor: auditor,
		logger:  slog.Default().With("component", "policy.level"),
	}
	if !initial.Valid() {
		initial = Standard
	}
	c.level.Store(int32(initial))
	return c
}

// Level returns the current security level.
func (c *Controller) Level() Level {
	return Level(c.level.Load())
}

// SetLevel transitions to the given level, recording who requested the
// change. Setting the current level again is a no-op and emits nothing.
func (c *Controller) SetLevel(ctx context.Context, to Level, actor string) error {
	if !to.Valid() {
		return fmt.Errorf("invalid security level %d", int32(to))
	}

	from := Level(c.level.Swap(int32(to)))
	if from == to {
		return nil
	}

	c.logger.Info("security level changed",
		"from", from.String(),
		"to", to.String(),
		"actor", actor,
	)

	if c.auditor == nil {
		return nil
	}

	severity := audit.SeverityInfo
	if to == Maximum || from == Maximum {
		severity = audit.SeverityWarning
	}

	_, err := c.auditor.Append(ctx, audit.CategoryLevelChange, severity, map[string]any{
		"from":       from.String(),
		"to":         to.String(),
		"actor":      actor,
		"changed_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("recording level change: %w", err)
	}
	return nil
}
