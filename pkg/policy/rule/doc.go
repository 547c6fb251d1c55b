// Package rule defines the security rule data model and the RuleStore.
//
// A Rule is a named, versioned condition->action policy unit. Rules may
// depend on other rules; the store validates that the dependency relation
// over active rules stays acyclic and produces the evaluation order used by
// the policy engine: a topological order of the dependency graph with
// ascending priority as the tie-break among mutually independent rules.
//
// Rules are never hard-deleted. Disabling a rule keeps its definition so
// historical audit events can still resolve it by id and version.
package rule
