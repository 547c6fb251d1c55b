package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Fingerprint computes the cache key for one rule against one context.
//
// The digest covers the rule ID and the canonicalized subset of the context
// restricted to the rule's required keys: keys are sorted, absent keys are
// encoded distinctly from empty values, and each value is length-prefixed so
// adjacent fields cannot collide. The rule's version is deliberately not part
// of the fingerprint; version mismatches are detected on access for lazy
// invalidation.
func Fingerprint(ruleID string, keys []string, ctx map[string]any) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "%d:%s;", len(ruleID), ruleID)
	for _, k := range sorted {
		v, ok := ctx[k]
		if !ok {
			fmt.Fprintf(h, "%d:%s=!;", len(k), k)
			continue
		}
		s := canonicalValue(v)
		fmt.Fprintf(h, "%d:%s=%d:%s;", len(k), k, len(s), s)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalValue renders a context value deterministically. Numeric types
// normalize through %v; maps and slices are rare in rule-read keys and fall
// back to fmt's deterministic (sorted-key) map formatting.
func canonicalValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
