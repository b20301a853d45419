package tracking

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/founderos/tracking-go/model"
)

// EventQueue is the ordered buffer of pending events awaiting delivery.
//
// Enqueue appends to the tail and never blocks. Growth is bounded by a hard
// cap: beyond it the oldest events are evicted first (FIFO eviction) and an
// eviction counter is incremented for diagnostics.
//
// DrainUpTo removes events from the head; drained events are "in flight"
// until the caller either commits the drain (delivery succeeded, events
// durably discarded) or requeues them at the head (delivery failed or
// teardown). Head re-insertion preserves relative order, which is what
// guarantees no reordering past a failed batch.
//
// When a Store is attached, every enqueue and drain-commit is mirrored so a
// restart reconstructs the queue exactly as it stood at last mutation. The
// mirror keeps in-flight events until their drain commits, so an undelivered
// batch survives a crash. A store failure degrades the queue to memory-only
// operation for the rest of the session; tracking calls are never failed by
// storage problems.
type EventQueue struct {
	mu       sync.Mutex
	events   []model.Event
	inflight []model.Event
	maxSize  int
	evicted  int64
	store    Store
	key      string
	persist  bool
	logger   Logger

	diagnostics Diagnostics
}

// NewEventQueue creates an event queue backed by the given store.
// Pass a NoopStore (or persist=false config upstream) for memory-only
// operation. Previously persisted events are restored in original enqueue
// order; a missing record is first run, not an error.
func NewEventQueue(store Store, key string, maxSize int, logger Logger) *EventQueue {
	q := &EventQueue{
		maxSize: maxSize,
		store:   store,
		key:     key,
		persist: store != nil,
		logger:  logger,
	}
	q.restore()
	return q
}

// restore reconstructs the pending queue from the persisted mirror.
func (q *EventQueue) restore() {
	if !q.persist {
		return
	}

	raw, err := q.store.Get(context.Background(), q.key)
	if err != nil {
		if !IsNoData(err) {
			q.logger.Warnf("Failed to restore event queue, starting empty: %v", err)
		}
		return
	}

	var events []model.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		q.logger.Warnf("Corrupt event queue record, starting empty: %v", err)
		return
	}

	q.events = events
	q.logger.Debugf("Restored %d pending events", len(events))
}

// ReportEvictions routes cap evictions to the given diagnostics sink.
func (q *EventQueue) ReportEvictions(diagnostics Diagnostics) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.diagnostics = diagnostics
}

// Enqueue appends an event to the tail of the queue. Never blocks and never
// fails the caller; if the hard cap is reached the oldest pending event is
// evicted first.
func (q *EventQueue) Enqueue(ctx context.Context, event model.Event) {
	q.mu.Lock()

	var drop int
	if q.maxSize > 0 && len(q.events) >= q.maxSize {
		drop = len(q.events) - q.maxSize + 1
		q.events = q.events[drop:]
		q.evicted += int64(drop)
		q.logger.Warnf("Event queue at capacity (%d), evicted %d oldest event(s)", q.maxSize, drop)
	}

	q.events = append(q.events, event)
	q.mirror(ctx)
	diagnostics := q.diagnostics
	q.mu.Unlock()

	// Hook runs outside the lock so a sink can inspect the queue.
	if drop > 0 && diagnostics != nil {
		if err := diagnostics.EventsEvicted(ctx, int64(drop)); err != nil {
			q.logger.Warnf("Failed to report evicted events: %v", err)
		}
	}
}

// DrainUpTo atomically removes and returns up to n events from the head, in
// original order. The removed events are in flight until CommitDrain or
// RequeueHead is called; only one drain may be outstanding at a time.
func (q *EventQueue) DrainUpTo(n int) []model.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.events) == 0 || len(q.inflight) > 0 {
		return nil
	}
	if n > len(q.events) {
		n = len(q.events)
	}

	q.inflight = q.events[:n:n]
	q.events = q.events[n:]
	return q.inflight
}

// CommitDrain permanently discards the in-flight events and updates the
// persisted mirror. Called after successful delivery, or when an exhausted
// batch is dropped.
func (q *EventQueue) CommitDrain(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inflight = nil
	q.mirror(ctx)
}

// RequeueHead returns the in-flight events to the head of the queue,
// preserving their relative order, so they are retried before newer events.
func (q *EventQueue) RequeueHead(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inflight) == 0 {
		return
	}
	q.events = append(q.inflight, q.events...)
	q.inflight = nil
	q.mirror(ctx)
}

// Len returns the current pending count, excluding in-flight events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Snapshot returns a copy of the buffered events (in-flight first, then
// pending) in original enqueue order. Used to carry events across a
// re-initialization.
func (q *EventQueue) Snapshot() []model.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.Event, 0, len(q.inflight)+len(q.events))
	out = append(out, q.inflight...)
	out = append(out, q.events...)
	return out
}

// Evicted returns the number of events evicted at the hard cap.
func (q *EventQueue) Evicted() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}

// mirror persists the full pending state (in-flight first, then queued).
// Must be called with q.mu held.
func (q *EventQueue) mirror(ctx context.Context) {
	if !q.persist {
		return
	}

	state := make([]model.Event, 0, len(q.inflight)+len(q.events))
	state = append(state, q.inflight...)
	state = append(state, q.events...)

	raw, err := json.Marshal(state)
	if err != nil {
		q.logger.Errorf("Failed to serialize event queue: %v", err)
		return
	}

	if err := q.store.Set(ctx, q.key, string(raw)); err != nil {
		// Storage unavailable or quota exceeded: degrade to memory-only
		// for the rest of this session instead of failing tracking calls.
		q.persist = false
		q.logger.Warnf("Event queue persistence failed, continuing memory-only: %v", err)
	}
}
