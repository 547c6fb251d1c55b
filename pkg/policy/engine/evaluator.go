package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel-hq/aegis/pkg/audit"
	"sentinel-hq/aegis/pkg/policy/cache"
	"sentinel-hq/aegis/pkg/policy/level"
	"sentinel-hq/aegis/pkg/policy/risk"
	"sentinel-hq/aegis/pkg/policy/rule"
	"sentinel-hq/aegis/pkg/ratelimit"
)

// RiskThresholdRuleID is the synthetic rule ID reported when the
// evaluator-level risk threshold denies a request.
const RiskThresholdRuleID = "risk-threshold"

// Auditor records evaluation outcomes. *audit.Log satisfies it.
type Auditor interface {
	Append(ctx context.Context, category audit.Category, severity audit.Severity, payload map[string]any) (uint64, error)
}

// Metrics receives evaluation observations. Implementations must be safe
// for concurrent use. See the telemetry package for the Prometheus one.
type Metrics interface {
	// ObserveEvaluation records one completed evaluation.
	ObserveEvaluation(allowed bool, riskScore float64, duration time.Duration)

	// ObserveRule records one per-rule outcome.
	ObserveRule(ruleID string, matched, cached bool)
}

// Evaluator walks the ordered active rule set against request contexts.
// Safe for concurrent use; many evaluations run in parallel with no global
// lock on the hot path.
type Evaluator struct {
	store   *rule.Store
	cache   *cache.ResultCache
	scorer  *risk.Scorer
	levels  *level.Controller
	auditor Auditor
	metrics Metrics
	config  *Config
	logger  *slog.Logger

	// limiters holds per-rule sliding windows for rate conditions, built
	// lazily on first use and rebuilt when the rule's limits change.
	limitersMu sync.Mutex
	limiters   map[string]*ruleLimiter
}

type ruleLimiter struct {
	limiter *ratelimit.Limiter
	limit   int
	window  time.Duration
}

// Option customizes an evaluator.
type Option func(*Evaluator)

// WithCache attaches a result cache. Without one every rule is evaluated
// directly.
func WithCache(c *cache.ResultCache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// WithMetrics attaches an observation sink.
func WithMetrics(m Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New creates an evaluator over the given collaborators. The store, scorer,
// level controller and auditor are required.
func New(cfg *Config, store *rule.Store, scorer *risk.Scorer, levels *level.Controller, auditor Auditor, opts ...Option) (*Evaluator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("rule store cannot be nil")
	}
	if scorer == nil {
		return nil, fmt.Errorf("risk scorer cannot be nil")
	}
	if levels == nil {
		return nil, fmt.Errorf("level controller cannot be nil")
	}
	if auditor == nil {
		return nil, fmt.Errorf("auditor cannot be nil")
	}

	e := &Evaluator{
		store:    store,
		scorer:   scorer,
		levels:   levels,
		auditor:  auditor,
		config:   cfg,
		logger:   slog.Default().With("component", "policy.engine"),
		limiters: make(map[string]*ruleLimiter),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate walks the active rules against one context and returns the
// aggregate decision. Indeterminate evaluations (cancelled context,
// unwritable audit sink under fail-closed audit) resolve through the
// configured fail-safe mode rather than a hard failure.
func (e *Evaluator) Evaluate(ctx context.Context, reqCtx Context) (*Decision, error) {
	start := time.Now()
	enforced := e.levels.Level().BlockingEnforced()

	decision := &Decision{
		EvaluationID: uuid.New().String(),
		Allowed:      true,
		MatchedRules: []MatchedRule{},
	}

	score := e.scorer.Score(reqCtx)
	decision.RiskScore, decision.RiskSignals = riskSnapshot(score, e.config.IncludeDetails)

	rules := e.store.ActiveOrdered()
	results := make([]rule.EvaluationResult, 0, len(rules))

	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return e.resolveCancelled(ctx, decision, results, start)
		}

		res := e.evaluateRule(ctx, r, reqCtx, score.Value)
		results = append(results, res)
		if res.Skipped || res.Err != "" {
			decision.Degraded = true
		}
		if e.metrics != nil {
			e.metrics.ObserveRule(r.ID, res.Matched, res.Cached)
		}

		if !res.Matched {
			e.auditRule(ctx, decision.EvaluationID, res, enforced)
			continue
		}

		effective := res.Action
		if effective.Blocking() && !enforced {
			effective = rule.ActionLog
		}
		decision.MatchedRules = append(decision.MatchedRules, MatchedRule{
			RuleID: r.ID,
			Action: effective,
			Reason: res.Reason,
		})
		e.auditRule(ctx, decision.EvaluationID, res, enforced)

		if res.Action.Blocking() && enforced {
			decision.Allowed = false
			break
		}
	}

	if decision.Allowed && e.config.RiskDenyThreshold > 0 && enforced {
		threshold := e.levels.Level().RiskThreshold(e.config.RiskDenyThreshold)
		if score.Value > threshold {
			decision.Allowed = false
			decision.MatchedRules = append(decision.MatchedRules, MatchedRule{
				RuleID: RiskThresholdRuleID,
				Action: rule.ActionDeny,
				Reason: fmt.Sprintf("risk score %.2f exceeds threshold %.2f", score.Value, threshold),
			})
		}
	}

	return e.finish(ctx, decision, results, start)
}

// evaluateRule produces the result for one rule, consulting the cache and
// applying the per-rule timeout.
func (e *Evaluator) evaluateRule(ctx context.Context, r *rule.Rule, reqCtx Context, riskScore float64) rule.EvaluationResult {
	for _, key := range r.Conditions.RequiredContextKeys {
		if _, ok := reqCtx[key]; !ok {
			return rule.EvaluationResult{
				RuleID:      r.ID,
				RuleVersion: r.Version,
				Skipped:     true,
				Reason:      fmt.Sprintf("missing context key %q", key),
				Timestamp:   time.Now().UTC(),
			}
		}
	}

	var fp string
	if e.cache != nil && cacheable(r) {
		fp = cache.Fingerprint(r.ID, r.Conditions.RequiredContextKeys, reqCtx)
		if res, hit := e.cache.Get(fp, r.Version); hit {
			return res
		}
	}

	res := e.matchWithTimeout(ctx, r, reqCtx, riskScore)

	if fp != "" && res.Err == "" {
		e.cache.Put(fp, res)
	}
	return res
}

// matchWithTimeout runs the matcher under the configured per-rule timeout.
// A timeout resolves to a non-match with a recorded error, or to a block
// when the rule is flagged fail-closed.
func (e *Evaluator) matchWithTimeout(ctx context.Context, r *rule.Rule, reqCtx Context, riskScore float64) rule.EvaluationResult {
	in := matchInput{
		riskScore: riskScore,
		rateCheck: e.rateCheck(r),
	}

	type outcome struct {
		matched bool
		reason  string
	}
	done := make(chan outcome, 1)
	go func() {
		matched, reason := matchRule(r, reqCtx, in)
		done <- outcome{matched, reason}
	}()

	timer := time.NewTimer(e.config.RuleTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		res := rule.EvaluationResult{
			RuleID:      r.ID,
			RuleVersion: r.Version,
			Matched:     out.matched,
			Timestamp:   time.Now().UTC(),
		}
		if out.matched {
			res.Action = effectiveAction(r)
			res.Reason = out.reason
		}
		return res

	case <-timer.C:
	case <-ctx.Done():
	}

	err := (&TimeoutError{RuleID: r.ID, Timeout: e.config.RuleTimeout}).Error()
	if ctx.Err() != nil {
		err = ErrContextCancelled.Error()
	}
	e.logger.Warn("rule evaluation timed out",
		"rule_id", r.ID,
		"fail_closed", r.FailClosed,
	)

	res := rule.EvaluationResult{
		RuleID:      r.ID,
		RuleVersion: r.Version,
		Err:         err,
		Timestamp:   time.Now().UTC(),
	}
	if r.FailClosed {
		res.Matched = true
		res.Action = rule.ActionBlock
		res.Reason = "evaluation timeout (fail-closed)"
	}
	return res
}

// rateCheck returns the rate admission check for a rule with a rate
// condition, or nil when the rule has none. The per-rule window is rebuilt
// when the rule's limits change.
func (e *Evaluator) rateCheck(r *rule.Rule) func(string) bool {
	if r.Conditions.MaxRequests <= 0 {
		return nil
	}

	e.limitersMu.Lock()
	rl, ok := e.limiters[r.ID]
	if !ok || rl.limit != r.Conditions.MaxRequests || rl.window != r.Conditions.TimeWindow() {
		rl = &ruleLimiter{
			limiter: ratelimit.NewLimiter(r.Conditions.MaxRequests, r.Conditions.TimeWindow()),
			limit:   r.Conditions.MaxRequests,
			window:  r.Conditions.TimeWindow(),
		}
		e.limiters[r.ID] = rl
	}
	e.limitersMu.Unlock()

	return func(key string) bool {
		return rl.limiter.Allow(key).Allowed
	}
}

// effectiveAction picks the action reported for a matched rule: the first
// blocking action wins, otherwise the first action, otherwise log.
func effectiveAction(r *rule.Rule) rule.ActionType {
	if a, ok := r.BlockingAction(); ok {
		return a.Type
	}
	if len(r.Actions) > 0 {
		return r.Actions[0].Type
	}
	return rule.ActionLog
}

// cacheable reports whether a rule's result may be memoized. Rate and risk
// conditions are stateful, and a rule reading keys outside its declared
// required set would alias distinct contexts to one fingerprint.
func cacheable(r *rule.Rule) bool {
	if r.Conditions.MaxRequests > 0 || r.Conditions.RiskAbove != nil {
		return false
	}

	declared := make(map[string]bool, len(r.Conditions.RequiredContextKeys))
	for _, k := range r.Conditions.RequiredContextKeys {
		declared[k] = true
	}
	if r.Pattern != "" && !declared[r.MatchKey()] {
		return false
	}
	for _, m := range r.Conditions.Matches {
		if !declared[m.Key] {
			return false
		}
	}
	return len(declared) > 0
}

// auditRule records one per-rule outcome. Rule events are best-effort; a
// full queue is counted by the audit log itself.
func (e *Evaluator) auditRule(ctx context.Context, evalID string, res rule.EvaluationResult, enforced bool) {
	severity := audit.SeverityInfo
	if res.Matched && res.Action.Blocking() {
		severity = audit.SeverityWarning
	}

	payload := map[string]any{
		"evaluation_id": evalID,
		"rule_id":       res.RuleID,
		"rule_version":  res.RuleVersion,
		"matched":       res.Matched,
		"enforced":      enforced,
	}
	if res.Matched {
		payload["action"] = string(res.Action)
		payload["reason"] = res.Reason
	}
	if res.Skipped {
		payload["skipped"] = true
		payload["reason"] = res.Reason
	}
	if res.Cached {
		payload["cached"] = true
	}
	if res.Err != "" {
		payload["error"] = res.Err
	}

	if _, err := e.auditor.Append(ctx, audit.CategoryRule, severity, payload); err != nil {
		e.logger.Warn("rule audit append failed", "rule_id", res.RuleID, "error", err)
	}
}

// finish appends the summary decision event and seals the decision.
func (e *Evaluator) finish(ctx context.Context, decision *Decision, results []rule.EvaluationResult, start time.Time) (*Decision, error) {
	decision.EvaluationTime = time.Since(start)
	if e.config.IncludeDetails {
		decision.Results = results
	}

	severity := audit.SeverityInfo
	if !decision.Allowed {
		severity = audit.SeverityWarning
	}

	matched := make([]map[string]any, 0, len(decision.MatchedRules))
	for _, m := range decision.MatchedRules {
		matched = append(matched, map[string]any{
			"rule_id": m.RuleID,
			"action":  string(m.Action),
			"reason":  m.Reason,
		})
	}

	seq, err := e.auditor.Append(ctx, audit.CategoryDecision, severity, map[string]any{
		"evaluation_id": decision.EvaluationID,
		"allowed":       decision.Allowed,
		"matched_rules": matched,
		"risk_score":    decision.RiskScore,
		"degraded":      decision.Degraded,
		"rules_total":   len(results),
		"duration_ms":   decision.EvaluationTime.Milliseconds(),
	})
	decision.AuditSeq = seq
	if err != nil {
		e.logger.Error("decision audit append failed", "error", err)
		if e.config.FailClosedAudit {
			decision.Allowed = false
			decision.MatchedRules = append(decision.MatchedRules, MatchedRule{
				RuleID: "audit-durability",
				Action: rule.ActionDeny,
				Reason: "audit sink unavailable",
			})
			if e.metrics != nil {
				e.metrics.ObserveEvaluation(decision.Allowed, decision.RiskScore, decision.EvaluationTime)
			}
			return decision, ErrAuditUnavailable
		}
	}

	if e.metrics != nil {
		e.metrics.ObserveEvaluation(decision.Allowed, decision.RiskScore, decision.EvaluationTime)
	}
	if !e.config.IncludeDetails {
		decision.Results = nil
		decision.RiskSignals = nil
	}
	return decision, nil
}

// resolveCancelled maps a cancelled evaluation to the configured fail-safe
// default.
func (e *Evaluator) resolveCancelled(ctx context.Context, decision *Decision, results []rule.EvaluationResult, start time.Time) (*Decision, error) {
	decision.Degraded = true
	decision.Allowed = e.config.FailSafeMode == FailOpen
	if !decision.Allowed {
		decision.MatchedRules = append(decision.MatchedRules, MatchedRule{
			RuleID: "fail-safe",
			Action: rule.ActionDeny,
			Reason: "evaluation cancelled",
		})
	}

	e.logger.Warn("evaluation cancelled",
		"evaluation_id", decision.EvaluationID,
		"fail_safe", string(e.config.FailSafeMode),
	)

	// The audit append must not use the cancelled request context.
	return e.finish(context.WithoutCancel(ctx), decision, results, start)
}
