package rule

import (
	"time"
)

// Status represents the lifecycle state of a rule.
type Status string

const (
	// StatusActive marks a rule that participates in evaluation.
	StatusActive Status = "active"

	// StatusDisabled marks a rule that is kept for audit traceability but
	// excluded from evaluation.
	StatusDisabled Status = "disabled"
)

// ActionType identifies what a matched rule does.
type ActionType string

const (
	// ActionBlock rejects the request.
	ActionBlock ActionType = "block"

	// ActionDeny rejects the request (authorization failure).
	ActionDeny ActionType = "deny"

	// ActionSanitize flags request content for sanitization by the caller.
	ActionSanitize ActionType = "sanitize"

	// ActionLog records the match without affecting the outcome.
	ActionLog ActionType = "log"

	// ActionChallenge asks the caller to present an additional challenge.
	ActionChallenge ActionType = "challenge"
)

// Blocking reports whether the action type terminates evaluation when
// enforcement is active.
func (a ActionType) Blocking() bool {
	return a == ActionBlock || a == ActionDeny
}

// Valid reports whether the action type is one of the known types.
func (a ActionType) Valid() bool {
	switch a {
	case ActionBlock, ActionDeny, ActionSanitize, ActionLog, ActionChallenge:
		return true
	}
	return false
}

// Action is a single action attached to a rule.
type Action struct {
	// Type is the action type (block, deny, sanitize, log, challenge).
	Type ActionType `yaml:"type" json:"type"`

	// Params contains action-specific parameters, e.g. "reason".
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Reason returns the human-readable reason attached to the action, if any.
func (a Action) Reason() string {
	return a.Params["reason"]
}

// Operator is a comparison operator used in match conditions.
type Operator string

const (
	OpEqual    Operator = "eq"
	OpNotEqual Operator = "ne"
	OpGreater  Operator = "gt"
	OpLess     Operator = "lt"
	OpContains Operator = "contains"
)

// Valid reports whether the operator is known.
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpContains:
		return true
	}
	return false
}

// Match is a single context comparison. All matches in a rule's conditions
// must hold for the rule to fire.
type Match struct {
	// Key is the context key to inspect (e.g. "user.role").
	Key string `yaml:"key" json:"key"`

	// Op is the comparison operator.
	Op Operator `yaml:"op" json:"op"`

	// Value is the expected value.
	Value any `yaml:"value" json:"value"`
}

// Conditions describes when a rule fires.
type Conditions struct {
	// RequiredContextKeys lists context keys the rule reads. If any key is
	// absent from the evaluation context the rule is skipped, not an error.
	// These keys also define the cache fingerprint subset for the rule.
	RequiredContextKeys []string `yaml:"required_context_keys,omitempty" json:"required_context_keys,omitempty"`

	// Matches are comparisons that must all hold (AND semantics).
	Matches []Match `yaml:"matches,omitempty" json:"matches,omitempty"`

	// MaxRequests enables a sliding-window rate condition: the rule fires
	// once more than MaxRequests evaluations have been seen for the same
	// rate key within TimeWindowSeconds. Zero disables the condition.
	MaxRequests int `yaml:"max_requests,omitempty" json:"max_requests,omitempty"`

	// TimeWindowSeconds is the rate condition window in seconds.
	TimeWindowSeconds int `yaml:"time_window,omitempty" json:"time_window,omitempty"`

	// RateKey is the context key identifying the client for the rate
	// condition. Defaults to "request.ip".
	RateKey string `yaml:"rate_key,omitempty" json:"rate_key,omitempty"`

	// RiskAbove makes the rule fire when the contextual risk score is
	// strictly greater than the threshold. Nil disables the condition.
	RiskAbove *float64 `yaml:"risk_above,omitempty" json:"risk_above,omitempty"`
}

// TimeWindow returns the rate condition window as a duration.
func (c Conditions) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowSeconds) * time.Second
}

// RateIdentity returns the context key identifying the client for the rate
// condition.
func (c Conditions) RateIdentity() string {
	if c.RateKey != "" {
		return c.RateKey
	}
	return "request.ip"
}

// Rule is a named, versioned condition->action policy unit.
type Rule struct {
	// ID uniquely identifies the rule.
	ID string `yaml:"id" json:"id"`

	// Type is a free-form classification (e.g. "access", "rate-limit").
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Name is the human-readable rule name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Pattern is the raw request pattern ("regex:...", "prefix:...", or an
	// exact string). Empty means the rule applies to every request. The
	// pattern is matched against PatternKey.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// PatternKey is the context key the pattern is matched against.
	// Defaults to "request.path".
	PatternKey string `yaml:"pattern_key,omitempty" json:"pattern_key,omitempty"`

	// Status is active or disabled.
	Status Status `yaml:"status,omitempty" json:"status,omitempty"`

	// Priority orders mutually independent rules; lower values are more
	// urgent. Dependency edges always dominate priority.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Conditions describe when the rule fires.
	Conditions Conditions `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	// Actions are applied when the rule fires.
	Actions []Action `yaml:"actions,omitempty" json:"actions,omitempty"`

	// DependsOn lists rule IDs that must be evaluated before this rule.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`

	// Version is bumped by the store on every update; the result cache uses
	// it for lazy invalidation.
	Version int `yaml:"version,omitempty" json:"version,omitempty"`

	// FailClosed treats a per-rule evaluation timeout as a block instead of
	// a non-match.
	FailClosed bool `yaml:"fail_closed,omitempty" json:"fail_closed,omitempty"`

	// Metadata holds free-form annotations.
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// pattern is the compiled form of Pattern, parsed once at registration.
	pattern *Pattern
}

// Active reports whether the rule participates in evaluation.
func (r *Rule) Active() bool {
	return r.Status == StatusActive
}

// CompiledPattern returns the parsed pattern, or nil if the rule has none.
func (r *Rule) CompiledPattern() *Pattern {
	return r.pattern
}

// MatchKey returns the context key the rule's pattern applies to.
func (r *Rule) MatchKey() string {
	if r.PatternKey != "" {
		return r.PatternKey
	}
	return "request.path"
}

// BlockingAction returns the first blocking action of the rule, if any.
func (r *Rule) BlockingAction() (Action, bool) {
	for _, a := range r.Actions {
		if a.Type.Blocking() {
			return a, true
		}
	}
	return Action{}, false
}

// Clone returns a deep copy of the rule. The store hands out clones so
// callers cannot mutate registered rules in place.
func (r *Rule) Clone() *Rule {
	c := *r
	c.Actions = make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		c.Actions[i] = a
		if a.Params != nil {
			p := make(map[string]string, len(a.Params))
			for k, v := range a.Params {
				p[k] = v
			}
			c.Actions[i].Params = p
		}
	}
	c.DependsOn = append([]string(nil), r.DependsOn...)
	c.Conditions.RequiredContextKeys = append([]string(nil), r.Conditions.RequiredContextKeys...)
	c.Conditions.Matches = append([]Match(nil), r.Conditions.Matches...)
	if r.Conditions.RiskAbove != nil {
		v := *r.Conditions.RiskAbove
		c.Conditions.RiskAbove = &v
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// EvaluationResult is the outcome of evaluating one rule against one context.
// It is the unit stored in the result cache.
type EvaluationResult struct {
	// RuleID identifies the evaluated rule.
	RuleID string `json:"rule_id"`

	// RuleVersion is the rule version that produced the result.
	RuleVersion int `json:"rule_version"`

	// Matched reports whether the rule fired.
	Matched bool `json:"matched"`

	// Action is the rule's effective action when it matched.
	Action ActionType `json:"action,omitempty"`

	// Reason is the human-readable explanation for the action.
	Reason string `json:"reason,omitempty"`

	// Skipped reports that required context keys were absent and the rule
	// was treated as non-matching.
	Skipped bool `json:"skipped,omitempty"`

	// Cached reports that the result was served from the result cache.
	Cached bool `json:"cached,omitempty"`

	// Err records a per-rule evaluation error (e.g. timeout) that was
	// resolved to a non-match or block instead of failing the evaluation.
	Err string `json:"error,omitempty"`

	// Timestamp is when the rule was evaluated.
	Timestamp time.Time `json:"timestamp"`
}
