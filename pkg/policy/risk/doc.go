// Package risk computes a continuous contextual risk score in [0,1] from
// independent named sub-signals (device trust, location trust, behavior).
//
// Sub-score strategies are swapped behind the Signal interface; no caller
// depends on a specific strategy's internals. Comparing the score against a
// threshold is a policy decision made by a rule or the evaluator, never by
// the scorer.
package risk
