package engine

import (
	"time"

	"sentinel-hq/aegis/pkg/policy/risk"
	"sentinel-hq/aegis/pkg/policy/rule"
)

// Context is the immutable key/value description of one request, supplied
// by the caller (e.g. "request.ip", "request.path", "user.role"). The
// evaluator never mutates it.
type Context map[string]any

// MatchedRule identifies one rule that fired during evaluation and the
// action it produced.
type MatchedRule struct {
	// RuleID is the matched rule.
	RuleID string `json:"rule_id"`

	// Action is the effective action after security level moderation.
	Action rule.ActionType `json:"action"`

	// Reason is the human-readable explanation attached to the action.
	Reason string `json:"reason,omitempty"`
}

// Decision is the aggregate outcome of evaluating one context.
type Decision struct {
	// EvaluationID is a random identifier correlating the decision with
	// its audit events.
	EvaluationID string `json:"evaluation_id"`

	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// MatchedRules lists every rule that fired, in evaluation order.
	MatchedRules []MatchedRule `json:"matched_rules"`

	// RiskScore is the aggregate contextual risk in [0,1].
	RiskScore float64 `json:"risk_score"`

	// RiskSignals maps signal names to their sub-scores. Populated only
	// when the evaluator is configured to include details.
	RiskSignals map[string]float64 `json:"risk_signals,omitempty"`

	// AuditSeq is the chain position of the decision's summary audit
	// event.
	AuditSeq uint64 `json:"audit_seq"`

	// Degraded reports that at least one rule was skipped for missing
	// context keys or resolved through an evaluation error.
	Degraded bool `json:"degraded,omitempty"`

	// Results holds the per-rule outcomes. Populated only when the
	// evaluator is configured to include details.
	Results []rule.EvaluationResult `json:"results,omitempty"`

	// EvaluationTime is the wall-clock duration of the evaluation.
	EvaluationTime time.Duration `json:"evaluation_time"`
}

// Deny reports the inverse of Allowed. Convenience for callers mapping the
// decision to a 403-class response.
func (d *Decision) Deny() bool {
	return !d.Allowed
}

// riskSnapshot narrows a risk score for inclusion in the decision.
func riskSnapshot(s risk.Score, includeDetails bool) (float64, map[string]float64) {
	if !includeDetails {
		return s.Value, nil
	}
	return s.Value, s.Signals
}
