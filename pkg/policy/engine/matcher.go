package engine

import (
	"fmt"
	"strconv"
	"strings"

	"sentinel-hq/aegis/pkg/policy/rule"
)

// matchInput carries the stateful inputs a rule's conditions may consult in
// addition to the context itself.
type matchInput struct {
	riskScore float64
	rateCheck func(key string) bool
}

// matchRule evaluates a rule's pattern and conditions against a context.
// The caller has already checked required context keys. Returns whether the
// rule fired and the reason when it did.
func matchRule(r *rule.Rule, ctx Context, in matchInput) (bool, string) {
	if p := r.CompiledPattern(); p != nil {
		v, ok := ctx[r.MatchKey()]
		if !ok || !p.Match(stringify(v)) {
			return false, ""
		}
	}

	for _, m := range r.Conditions.Matches {
		v, ok := ctx[m.Key]
		if !ok || !compare(m.Op, v, m.Value) {
			return false, ""
		}
	}

	if r.Conditions.MaxRequests > 0 {
		identity := stringify(ctx[r.Conditions.RateIdentity()])
		if in.rateCheck == nil || in.rateCheck(identity) {
			return false, ""
		}
		return true, fmt.Sprintf("rate limit exceeded: more than %d requests in %ds",
			r.Conditions.MaxRequests, r.Conditions.TimeWindowSeconds)
	}

	if r.Conditions.RiskAbove != nil {
		if in.riskScore <= *r.Conditions.RiskAbove {
			return false, ""
		}
		return true, fmt.Sprintf("risk score %.2f exceeds threshold %.2f",
			in.riskScore, *r.Conditions.RiskAbove)
	}

	return true, matchReason(r)
}

// matchReason picks the reason reported for a plain pattern/condition match.
func matchReason(r *rule.Rule) string {
	for _, a := range r.Actions {
		if reason := a.Reason(); reason != "" {
			return reason
		}
	}
	return "rule matched"
}

// compare applies one condition operator. Values compare as numbers when
// both sides coerce, otherwise as strings.
func compare(op rule.Operator, got, want any) bool {
	switch op {
	case rule.OpEqual:
		return equal(got, want)
	case rule.OpNotEqual:
		return !equal(got, want)
	case rule.OpGreater:
		g, w, ok := numbers(got, want)
		return ok && g > w
	case rule.OpLess:
		g, w, ok := numbers(got, want)
		return ok && g < w
	case rule.OpContains:
		return strings.Contains(stringify(got), stringify(want))
	}
	return false
}

func equal(got, want any) bool {
	if g, w, ok := numbers(got, want); ok {
		return g == w
	}
	return stringify(got) == stringify(want)
}

// numbers coerces both operands to float64. YAML and JSON decoders produce
// a mix of int, int64 and float64 for numeric values.
func numbers(a, b any) (float64, float64, bool) {
	af, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	bf, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}
	return af, bf, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
