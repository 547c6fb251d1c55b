// Package audit provides the append-only, hash-chained record of every
// policy decision and administrative action.
//
// Each event carries a monotonic sequence number, the hash of its
// predecessor, and its own hash computed as
// SHA-256(prevHash || canonical(seq, timestamp, category, severity,
// payload)), forming a singly linked, content-addressed chain from genesis.
//
// Producers may append concurrently, but the chain is only ever advanced
// under a single tail lock and persisted by a single writer goroutine that
// drains a bounded queue, so the stored sequence matches append order.
// Durable-write failures are retried with backoff on this background path;
// callers are not blocked on durability unless the deployment is configured
// fail-closed for audit durability.
//
// The log rotates into numbered segments once a segment exceeds the
// configured event threshold; the first event of a new segment links to the
// prior segment's last hash, and segments beyond the retention count are
// pruned. After pruning, Verify anchors on the earliest retained event's
// stored prevHash.
package audit
