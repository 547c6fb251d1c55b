package audit

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	// ErrClosed indicates the log has been shut down.
	ErrClosed = errors.New("audit log closed")

	// ErrQueueFull indicates the background write queue rejected an event.
	// The chain is still advanced; only durability is at risk.
	ErrQueueFull = errors.New("audit write queue full")
)

// WriteError indicates a durable audit write failed after retries.
type WriteError struct {
	Seq   uint64
	Cause error
}

// Error returns the error message.
func (e *WriteError) Error() string {
	return fmt.Sprintf("audit write failed for seq %d: %v", e.Seq, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// StorageError indicates an audit storage backend operation failed.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, op string, cause error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Cause: cause}
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
