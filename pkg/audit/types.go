package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Category classifies audit events.
type Category string

const (
	// CategoryDecision records the aggregate outcome of one evaluation.
	CategoryDecision Category = "decision"

	// CategoryRule records a single rule's evaluation outcome.
	CategoryRule Category = "rule"

	// CategoryLevelChange records a security level transition.
	CategoryLevelChange Category = "level-change"

	// CategoryAdmin records administrative actions (rule changes, rotation).
	CategoryAdmin Category = "admin"

	// CategorySystem records engine-internal events (rotation, recovery).
	CategorySystem Category = "system"
)

// Severity grades audit events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one link of the audit chain.
type Event struct {
	// ID is a random identifier for cross-referencing.
	ID string `json:"id"`

	// Seq is the monotonic chain position, starting at 1.
	Seq uint64 `json:"seq"`

	// Segment is the rotation segment the event belongs to.
	Segment int `json:"segment"`

	// Category classifies the event.
	Category Category `json:"category"`

	// Severity grades the event.
	Severity Severity `json:"severity"`

	// Payload carries the event body. Values must be JSON-serializable.
	Payload map[string]any `json:"payload"`

	// Timestamp is the append time.
	Timestamp time.Time `json:"timestamp"`

	// PrevHash is the hash of the preceding event ("" for genesis).
	PrevHash string `json:"prev_hash"`

	// Hash is this event's content hash.
	Hash string `json:"hash"`
}

// hashEnvelope fixes the field set and order covered by the event hash.
// Timestamps hash as UnixNano so serialization precision cannot drift.
type hashEnvelope struct {
	Seq       uint64         `json:"seq"`
	Timestamp int64          `json:"ts"`
	Category  Category       `json:"category"`
	Severity  Severity       `json:"severity"`
	Payload   map[string]any `json:"payload"`
}

// ComputeHash computes the chain hash for an event's content following
// prevHash. encoding/json marshals map keys in sorted order, making the
// serialization canonical.
func ComputeHash(prevHash string, seq uint64, ts time.Time, category Category, severity Severity, payload map[string]any) (string, error) {
	body, err := json.Marshal(hashEnvelope{
		Seq:       seq,
		Timestamp: ts.UnixNano(),
		Category:  category,
		Severity:  severity,
		Payload:   payload,
	})
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Recompute returns the hash the event's stored content should have.
func (e *Event) Recompute() (string, error) {
	return ComputeHash(e.PrevHash, e.Seq, e.Timestamp, e.Category, e.Severity, e.Payload)
}

// Storage persists audit events. Implementations must be append-only for
// events; the only permitted deletion is whole-segment pruning.
type Storage interface {
	// Append durably stores one event.
	Append(ctx context.Context, e *Event) error

	// Events returns all stored events ordered by ascending Seq.
	Events(ctx context.Context) ([]*Event, error)

	// Last returns the stored event with the highest Seq, or nil when the
	// store is empty.
	Last(ctx context.Context) (*Event, error)

	// SegmentCount returns the number of events in a segment.
	SegmentCount(ctx context.Context, segment int) (int64, error)

	// PruneSegments deletes all events in segments below minSegment and
	// returns the number of events removed.
	PruneSegments(ctx context.Context, minSegment int) (int64, error)

	// Close releases storage resources.
	Close() error
}

// VerifyReport is the result of walking the stored chain.
type VerifyReport struct {
	// Valid is true when every stored event's hash and linkage check out.
	Valid bool `json:"valid"`

	// FirstBadSeq identifies the earliest tampered or corrupted event when
	// Valid is false.
	FirstBadSeq *uint64 `json:"first_bad_seq,omitempty"`

	// Checked is the number of events examined.
	Checked int `json:"checked"`
}
