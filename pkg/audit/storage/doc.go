// Package storage provides audit event storage backends.
//
// Two backends are available:
//
//   - MemoryStorage: in-memory, for tests and ephemeral deployments.
//   - SQLiteStorage: durable append-only table with WAL mode.
//
// Both implement audit.Storage. Stored events are append-only; the only
// deletion path is whole-segment pruning driven by the log's retention
// policy.
package storage
