package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/founderos/tracking-go/model"
	"github.com/founderos/tracking-go/retry"
)

// Batcher decides when to drain the event queue and hands the resulting
// batches to the Transport.
//
// Flush triggers, any one of which fires a flush:
//   - queue size reaches the configured batch size
//   - the flush interval elapses
//   - an explicit Flush call (e.g. before page/app teardown)
//
// Only one flush is in flight at a time; triggers that fire while a flush
// is outstanding are coalesced. On transient delivery failure the batch is
// retried with exponential backoff ahead of newer events, up to a bounded
// attempt count; exhausting the bound drops the batch and increments the
// dropped-batch counter so fresh events are never blocked forever.
//
// When request batching is disabled, every enqueued event is delivered
// immediately as a batch of one.
//
// Thread safety: safe for concurrent use. Delivery runs on the scheduler
// goroutine; tracking calls never block on network I/O.
type Batcher struct {
	queue         *EventQueue
	transport     Transport
	retryStrategy retry.Strategy
	logger        Logger
	diagnostics   Diagnostics
	batchSize     int
	interval      time.Duration
	batchRequests bool

	flushMu sync.Mutex // serializes flush cycles; TryLock coalesces triggers

	mu          sync.Mutex
	pending     *model.Batch // failed batch held for retry ahead of newer events
	nextRetryAt time.Time
	seq         int64
	dropped     int64

	wake      chan struct{}
	startOnce sync.Once
}

// NewBatcher creates a batch scheduler over the given queue and transport.
// All dependencies are required.
func NewBatcher(
	queue *EventQueue,
	transport Transport,
	cfg *Config,
	strategy retry.Strategy,
	logger Logger,
	diagnostics Diagnostics,
) (*Batcher, error) {
	if queue == nil {
		return nil, NewError(ErrCodeConfiguration, "EventQueue is required")
	}
	if transport == nil {
		return nil, NewError(ErrCodeConfiguration, "Transport is required")
	}
	if cfg == nil {
		return nil, NewError(ErrCodeConfiguration, "Config is required")
	}
	if cfg.FlushInterval() <= 0 {
		return nil, NewError(ErrCodeConfiguration, "flush interval must be positive")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}
	if diagnostics == nil {
		diagnostics = &NoopDiagnostics{}
	}

	batchSize := cfg.BatchSize
	if !cfg.BatchRequests {
		batchSize = 1
	}

	return &Batcher{
		queue:         queue,
		transport:     transport,
		retryStrategy: strategy,
		logger:        logger,
		diagnostics:   diagnostics,
		batchSize:     batchSize,
		interval:      cfg.FlushInterval(),
		batchRequests: cfg.BatchRequests,
		wake:          make(chan struct{}, 1),
	}, nil
}

// Start launches the scheduler loop. Subsequent calls are no-ops.
// With batch_autostart the tracker calls this at initialization; otherwise
// it is called on the first enqueue.
func (b *Batcher) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.Run(ctx)
	})
}

// Run executes the scheduler loop until the context is canceled.
// Normally started via Start; exported for embedders that manage their own
// goroutines.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("Batch scheduler started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Batch scheduler stopped")
			return
		case <-ticker.C:
			b.flush(ctx, false)
		case <-b.wake:
			b.flush(ctx, false)
		}
	}
}

// Notify signals that an event was enqueued. Fires the size trigger when
// the queue has reached the batch size (always, when batching is disabled).
func (b *Batcher) Notify() {
	if b.batchRequests && b.queue.Len() < b.batchSize {
		return
	}
	select {
	case b.wake <- struct{}{}:
	default: // a wakeup is already queued; coalesce
	}
}

// Flush drains and delivers due events immediately, ignoring the retry
// backoff of a held batch. Blocks until the queue is empty or delivery
// stops making progress; bound it with the context deadline.
func (b *Batcher) Flush(ctx context.Context) {
	b.flush(ctx, true)
}

// Shutdown performs one best-effort final flush bounded by ctx, then
// returns any undelivered in-flight batch to the head of the queue so the
// persisted mirror reflects it for the next run.
//
// Unlike the coalesced triggers, Shutdown blocks until any in-flight
// delivery cycle settles: requeueing a batch whose transport call is still
// outstanding would deliver it twice once that call succeeds.
func (b *Batcher) Shutdown(ctx context.Context) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for b.flushOnce(ctx, true) {
		if ctx.Err() != nil {
			break
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		b.queue.RequeueHead(context.Background())
		b.pending = nil
	}
}

// DroppedBatches returns the number of batches discarded after rejection
// or retry exhaustion.
func (b *Batcher) DroppedBatches() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// flush runs one flush cycle. A cycle delivers batches until the queue is
// drained or delivery stops progressing. Triggers arriving while a cycle
// is in flight are coalesced.
func (b *Batcher) flush(ctx context.Context, force bool) {
	if !b.flushMu.TryLock() {
		return
	}
	defer b.flushMu.Unlock()

	for b.flushOnce(ctx, force) {
		if ctx.Err() != nil {
			return
		}
	}
}

// flushOnce attempts delivery of one batch: the held failed batch first,
// otherwise a fresh drain. Returns true when the cycle should continue.
func (b *Batcher) flushOnce(ctx context.Context, force bool) bool {
	b.mu.Lock()
	batch := b.pending
	if batch != nil {
		if !force && time.Now().Before(b.nextRetryAt) {
			b.mu.Unlock()
			return false
		}
	} else {
		events := b.queue.DrainUpTo(b.batchSize)
		if len(events) == 0 {
			b.mu.Unlock()
			return false
		}
		b.seq++
		batch = model.NewBatch(b.seq, events)
		b.pending = batch
	}
	b.mu.Unlock()

	if err := batch.CanAttemptDelivery(b.retryStrategy.MaxAttempts); err != nil {
		b.dropBatch(ctx, batch, err.Error())
		return true
	}

	outcome, err := b.transport.Send(ctx, batch)
	switch outcome {
	case OutcomeDelivered:
		b.handleDeliverySuccess(ctx, batch)
		return true
	case OutcomeRejected:
		b.dropBatch(ctx, batch, fmt.Sprintf("rejected by collector: %v", err))
		return true
	default:
		return b.handleTransientFailure(ctx, batch, err)
	}
}

// handleDeliverySuccess commits the drained events and releases the batch.
func (b *Batcher) handleDeliverySuccess(ctx context.Context, batch *model.Batch) {
	batch.MarkDelivered()
	b.queue.CommitDrain(ctx)

	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()

	b.logger.Infof("Delivered batch %s (seq=%d, events=%d, attempts=%d)",
		batch.ID, batch.SequenceNumber, batch.Size(), batch.AttemptCount)
}

// handleTransientFailure schedules the batch for retry or drops it once
// the retry bound is exhausted. Returns false: the cycle stops until the
// backoff elapses.
func (b *Batcher) handleTransientFailure(ctx context.Context, batch *model.Batch, deliveryErr error) bool {
	batch.MarkFailed(deliveryErr)

	if err := b.diagnostics.DeliveryFailed(ctx, batch, deliveryErr); err != nil {
		b.logger.Warnf("Failed to report delivery failure: %v", err)
	}

	if b.retryStrategy.ShouldDrop(batch.AttemptCount) {
		b.dropBatch(ctx, batch, fmt.Sprintf("max delivery attempts exceeded (%d >= %d)",
			batch.AttemptCount, b.retryStrategy.MaxAttempts))
		return false
	}

	retryDelay := b.retryStrategy.CalculateRetryDelay(batch.AttemptCount)

	b.mu.Lock()
	b.nextRetryAt = time.Now().Add(retryDelay)
	b.mu.Unlock()

	b.logger.Warnf("Delivery failed for batch %s (seq=%d, attempts=%d, next_retry=%v): %v",
		batch.ID, batch.SequenceNumber, batch.AttemptCount, retryDelay, deliveryErr)
	return false
}

// dropBatch permanently discards a batch and counts it.
// Dropping also commits the drain so the persisted mirror forgets the events.
func (b *Batcher) dropBatch(ctx context.Context, batch *model.Batch, reason string) {
	b.queue.CommitDrain(ctx)

	b.mu.Lock()
	b.pending = nil
	b.dropped++
	b.mu.Unlock()

	b.logger.Warnf("Dropped batch %s (seq=%d, events=%d, attempts=%d): %s",
		batch.ID, batch.SequenceNumber, batch.Size(), batch.AttemptCount, reason)

	if err := b.diagnostics.BatchDropped(ctx, batch, reason); err != nil {
		b.logger.Warnf("Failed to report dropped batch: %v", err)
	}
}
