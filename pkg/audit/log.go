package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config contains configuration for the audit log.
type Config struct {
	// QueueSize is the background write queue capacity. Default: 1024.
	QueueSize int

	// WriteTimeout bounds each durable write attempt. Default: 5s.
	WriteTimeout time.Duration

	// MaxSegmentEvents is the rotation threshold; a segment exceeding it is
	// closed on the next append. Default: 10000.
	MaxSegmentEvents int64

	// RetainSegments is how many closed segments to keep. Older segments
	// are pruned on rotation. Zero keeps everything.
	RetainSegments int

	// RetryAttempts is how many times a failed durable write is retried on
	// the background path. Default: 3.
	RetryAttempts int

	// RetryBackoff is the initial backoff between retries; it doubles per
	// attempt. Default: 100ms.
	RetryBackoff time.Duration
}

// DefaultConfig returns the default audit log configuration.
func DefaultConfig() *Config {
	return &Config{
		QueueSize:        1024,
		WriteTimeout:     5 * time.Second,
		MaxSegmentEvents: 10000,
		RetainSegments:   5,
		RetryAttempts:    3,
		RetryBackoff:     100 * time.Millisecond,
	}
}

// Log is the hash-chained audit log. See the package documentation for the
// chain and ordering guarantees.
type Log struct {
	storage Storage
	config  *Config
	logger  *slog.Logger

	// tailMu guards the chain tail: seq, prevHash, segment bookkeeping.
	// Appends advance the chain under this lock, then hand the event to
	// the background writer.
	tailMu   sync.Mutex
	seq      uint64
	prevHash string
	segment  int
	segCount int64

	queue    chan *Event
	done     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	healthy  atomic.Bool
	inFlight atomic.Int64

	appended      atomic.Int64
	retries       atomic.Int64
	writeFailures atomic.Int64
	dropped       atomic.Int64
}

// Open creates an audit log over the given storage, resuming the chain from
// the last stored event, and starts the background writer.
func Open(storage Storage, config *Config) (*Log, error) {
	if storage == nil {
		return nil, fmt.Errorf("audit storage cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.MaxSegmentEvents <= 0 {
		config.MaxSegmentEvents = 10000
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 100 * time.Millisecond
	}

	l := &Log{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.log"),
		queue:   make(chan *Event, config.QueueSize),
		done:    make(chan struct{}),
	}
	l.healthy.Store(true)

	// Resume the chain tail from storage.
	ctx, cancel := context.WithTimeout(context.Background(), config.WriteTimeout)
	defer cancel()
	last, err := storage.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit chain tail: %w", err)
	}
	if last != nil {
		l.seq = last.Seq
		l.prevHash = last.Hash
		l.segment = last.Segment
		count, err := storage.SegmentCount(ctx, last.Segment)
		if err != nil {
			return nil, fmt.Errorf("failed to count current audit segment: %w", err)
		}
		l.segCount = count
	}

	l.wg.Add(1)
	go l.writer()

	l.logger.Info("audit log opened",
		"resume_seq", l.seq,
		"segment", l.segment,
		"segment_events", l.segCount,
		"queue_size", config.QueueSize,
	)

	return l, nil
}

// Append records one event on the chain and returns its sequence number.
//
// The chain (seq, prevHash, hash) is advanced synchronously so the returned
// sequence is final; the durable write happens on the background path. A
// full queue returns ErrQueueFull with the sequence already assigned;
// callers running fail-closed for audit durability should treat that (or
// Healthy() == false) as an internal error.
func (l *Log) Append(ctx context.Context, category Category, severity Severity, payload map[string]any) (uint64, error) {
	if l.closed.Load() {
		return 0, ErrClosed
	}

	l.tailMu.Lock()
	if l.segCount >= l.config.MaxSegmentEvents {
		l.rotateLocked()
	}

	seq := l.seq + 1
	now := time.Now().UTC()
	hash, err := ComputeHash(l.prevHash, seq, now, category, severity, payload)
	if err != nil {
		l.tailMu.Unlock()
		return 0, fmt.Errorf("failed to hash audit event: %w", err)
	}

	e := &Event{
		ID:        uuid.New().String(),
		Seq:       seq,
		Segment:   l.segment,
		Category:  category,
		Severity:  severity,
		Payload:   payload,
		Timestamp: now,
		PrevHash:  l.prevHash,
		Hash:      hash,
	}

	l.seq = seq
	l.prevHash = hash
	l.segCount++
	l.tailMu.Unlock()

	l.appended.Add(1)

	select {
	case l.queue <- e:
		return seq, nil
	default:
		l.dropped.Add(1)
		l.healthy.Store(false)
		l.logger.Error("audit write queue full, event not persisted",
			"seq", seq,
			"category", category,
			"queue_size", l.config.QueueSize,
		)
		return seq, ErrQueueFull
	}
}

// Rotate closes the current segment and starts a new one. The first event
// of the new segment links to the prior segment's last hash. Segments
// beyond the retention count are pruned.
func (l *Log) Rotate(ctx context.Context) error {
	l.tailMu.Lock()
	l.rotateLocked()
	l.tailMu.Unlock()

	_, err := l.Append(ctx, CategorySystem, SeverityInfo, map[string]any{
		"action":  "segment-rotated",
		"segment": l.CurrentSegment(),
	})
	return err
}

// RotateIfNeeded rotates only when the current segment exceeds the
// configured threshold. Used by the maintenance scheduler.
func (l *Log) RotateIfNeeded(ctx context.Context) (bool, error) {
	l.tailMu.Lock()
	needed := l.segCount >= l.config.MaxSegmentEvents
	if needed {
		l.rotateLocked()
	}
	l.tailMu.Unlock()

	if !needed {
		return false, nil
	}
	_, err := l.Append(ctx, CategorySystem, SeverityInfo, map[string]any{
		"action":  "segment-rotated",
		"segment": l.CurrentSegment(),
	})
	return true, err
}

// rotateLocked starts a new segment and schedules retention pruning.
// Must be called with tailMu held.
func (l *Log) rotateLocked() {
	l.segment++
	l.segCount = 0

	if l.config.RetainSegments > 0 {
		minSegment := l.segment - l.config.RetainSegments
		if minSegment > 0 {
			go l.prune(minSegment)
		}
	}

	l.logger.Info("audit segment rotated", "segment", l.segment)
}

// prune deletes events in segments below minSegment on a background path.
func (l *Log) prune(minSegment int) {
	ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
	defer cancel()

	deleted, err := l.storage.PruneSegments(ctx, minSegment)
	if err != nil {
		l.logger.Error("audit segment pruning failed",
			"min_segment", minSegment,
			"error", err,
		)
		return
	}
	if deleted > 0 {
		l.logger.Info("audit segments pruned",
			"min_segment", minSegment,
			"deleted_events", deleted,
		)
	}
}

// Verify walks the stored chain, recomputing every hash and checking the
// prevHash linkage and sequence contiguity. The earliest retained event
// anchors the walk (its stored prevHash is trusted; earlier segments may
// have been pruned). The first mismatch identifies the earliest point of
// tampering or corruption.
func (l *Log) Verify(ctx context.Context) (*VerifyReport, error) {
	l.Flush(ctx)

	events, err := l.storage.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit chain: %w", err)
	}

	report := &VerifyReport{Valid: true, Checked: len(events)}
	var prevHash string
	var prevSeq uint64

	for i, e := range events {
		if i > 0 {
			if e.Seq != prevSeq+1 || e.PrevHash != prevHash {
				seq := e.Seq
				report.Valid = false
				report.FirstBadSeq = &seq
				return report, nil
			}
		}

		recomputed, err := e.Recompute()
		if err != nil || recomputed != e.Hash {
			seq := e.Seq
			report.Valid = false
			report.FirstBadSeq = &seq
			return report, nil
		}

		prevHash = e.Hash
		prevSeq = e.Seq
	}

	return report, nil
}

// Flush blocks until the background writer has drained every enqueued
// event or the context is cancelled.
func (l *Log) Flush(ctx context.Context) {
	for {
		if len(l.queue) == 0 && l.inFlight.Load() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
}

// Healthy reports whether the durable write path is keeping up. It turns
// false after a dropped event or a write failure that exhausted retries.
func (l *Log) Healthy() bool {
	return l.healthy.Load()
}

// Seq returns the current chain tail sequence.
func (l *Log) Seq() uint64 {
	l.tailMu.Lock()
	defer l.tailMu.Unlock()
	return l.seq
}

// CurrentSegment returns the active segment number.
func (l *Log) CurrentSegment() int {
	l.tailMu.Lock()
	defer l.tailMu.Unlock()
	return l.segment
}

// Stats is a point-in-time snapshot of audit log accounting.
type Stats struct {
	Appended      int64
	Retries       int64
	WriteFailures int64
	Dropped       int64
	QueueDepth    int
	Seq           uint64
	Segment       int
}

// Stats returns the log's accounting snapshot.
func (l *Log) Stats() Stats {
	return Stats{
		Appended:      l.appended.Load(),
		Retries:       l.retries.Load(),
		WriteFailures: l.writeFailures.Load(),
		Dropped:       l.dropped.Load(),
		QueueDepth:    len(l.queue),
		Seq:           l.Seq(),
		Segment:       l.CurrentSegment(),
	}
}

// Close drains the queue, stops the writer, and closes storage.
func (l *Log) Close() error {
	if l.closed.Swap(true) {
		return nil
	}

	close(l.done)
	l.wg.Wait()

	return l.storage.Close()
}

// writer is the single goroutine that persists events in chain order.
func (l *Log) writer() {
	defer l.wg.Done()

	for {
		select {
		case e := <-l.queue:
			l.inFlight.Add(1)
			l.write(e)
			l.inFlight.Add(-1)

		case <-l.done:
			// Drain remaining events before exit.
			for {
				select {
				case e := <-l.queue:
					l.write(e)
				default:
					return
				}
			}
		}
	}
}

// write persists one event, retrying with exponential backoff.
func (l *Log) write(e *Event) {
	backoff := l.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
		err := l.storage.Append(ctx, e)
		cancel()

		if err == nil {
			if attempt > 0 {
				// A successful retry restores the durable path.
				l.healthy.Store(true)
			}
			return
		}

		if attempt >= l.config.RetryAttempts {
			l.writeFailures.Add(1)
			l.healthy.Store(false)
			l.logger.Error("audit event lost after retries",
				"seq", e.Seq,
				"attempts", attempt+1,
				"error", err,
			)
			return
		}

		l.retries.Add(1)
		l.logger.Warn("audit write failed, retrying",
			"seq", e.Seq,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		time.Sleep(backoff)
		backoff *= 2
	}
}
