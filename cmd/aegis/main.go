// Aegis is a request-time security policy evaluation engine.
//
// It inspects request contexts against dependency-ordered rules, scores
// contextual risk, caches per-rule outcomes, and records every decision in
// a tamper-evident hash-chained audit log.
//
// Usage:
//
//	# Start the engine with default configuration
//	aegis run
//
//	# Start with a custom configuration file
//	aegis run --config /path/to/aegis.yaml
//
//	# Evaluate one context from the command line
//	aegis eval '{"request.path": "/admin", "user.role": "customer"}'
//
//	# Manage rules
//	aegis rules list
//	aegis rules disable rate-limit-api
//
//	# Verify the audit chain
//	aegis audit verify
//
//	# Inspect or change the security level
//	aegis level get
//	aegis level set MONITOR --actor ops
package main

func main() {
	Execute()
}
