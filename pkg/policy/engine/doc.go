// Package engine evaluates the ordered active rule set against a request
// context and produces an allow/deny decision.
//
// The evaluator walks the rules in dependency order, consults the result
// cache before re-evaluating a rule, scores contextual risk, moderates
// blocking actions through the security level controller, and records every
// outcome in the audit log.
//
// # Evaluation Flow
//
//	Context
//	       |
//	RiskScorer (aggregate contextual risk)
//	       |
//	For each rule in dependency order:
//	  required keys missing -> skip (degraded)
//	  cache hit -> reuse stored result
//	  cache miss -> match pattern + conditions, store result
//	  blocking match + enforcement -> short-circuit, allowed=false
//	  MONITOR mode -> downgrade to log, keep evaluating
//	       |
//	Audit per-rule outcomes and the aggregate decision
//	       |
//	Return Decision (allowed, matched rules, risk score, audit seq)
//
// Rate-limit and risk-threshold conditions are stateful and bypass the
// result cache.
package engine
