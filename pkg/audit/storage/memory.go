package storage

import (
	"context"
	"fmt"
	"sync"

	"sentinel-hq/aegis/pkg/audit"
)

// MemoryStorage is an in-memory audit.Storage for tests and ephemeral
// deployments. Events are kept in append order.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []*audit.Event
	closed bool

	// FailAppends makes Append fail while positive, decrementing per call.
	// Used by tests to exercise the retry path.
	FailAppends int
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append stores one event.
func (m *MemoryStorage) Append(ctx context.Context, e *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return audit.NewStorageError("memory", "append", fmt.Errorf("storage closed"))
	}
	if m.FailAppends > 0 {
		m.FailAppends--
		return audit.NewStorageError("memory", "append", fmt.Errorf("injected failure"))
	}

	c := *e
	m.events = append(m.events, &c)
	return nil
}

// Events returns all stored events ordered by ascending Seq.
func (m *MemoryStorage) Events(ctx context.Context) ([]*audit.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*audit.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

// Last returns the most recently appended event, or nil when empty.
func (m *MemoryStorage) Last(ctx context.Context) (*audit.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.events) == 0 {
		return nil, nil
	}
	c := *m.events[len(m.events)-1]
	return &c, nil
}

// SegmentCount returns the number of events in a segment.
func (m *MemoryStorage) SegmentCount(ctx context.Context, segment int) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.events {
		if e.Segment == segment {
			n++
		}
	}
	return n, nil
}

// PruneSegments deletes all events in segments below minSegment.
func (m *MemoryStorage) PruneSegments(ctx context.Context, minSegment int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	var deleted int64
	for _, e := range m.events {
		if e.Segment < minSegment {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

// Tamper mutates the payload of the stored event with the given seq.
// Test helper for chain verification.
func (m *MemoryStorage) Tamper(seq uint64, key string, value any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.events {
		if e.Seq == seq {
			if e.Payload == nil {
				e.Payload = map[string]any{}
			}
			e.Payload[key] = value
			return true
		}
	}
	return false
}

// Close marks the storage closed.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
