package tracking

import (
	"context"

	"github.com/founderos/tracking-go/model"
)

// Diagnostics receives callbacks about delivery-path events that are never
// surfaced to tracking calls (fire-and-forget contract). Implementations
// might feed metrics counters, alerting, or debug overlays.
//
// Callbacks may run while internal locks are held; implementations must not
// call back into the Tracker.
type Diagnostics interface {
	// DeliveryFailed is called after every failed delivery attempt,
	// before the batch is scheduled for retry.
	DeliveryFailed(ctx context.Context, batch *model.Batch, err error) error

	// BatchDropped is called when a batch is discarded, either because it
	// was rejected by the collector or because it exhausted its retries.
	BatchDropped(ctx context.Context, batch *model.Batch, reason string) error

	// EventsEvicted is called when the queue evicts events at its hard cap.
	EventsEvicted(ctx context.Context, count int64) error
}

// NoopDiagnostics is a no-op implementation of Diagnostics.
// Use this when delivery diagnostics are not needed.
type NoopDiagnostics struct{}

// DeliveryFailed does nothing.
func (d *NoopDiagnostics) DeliveryFailed(_ context.Context, _ *model.Batch, _ error) error {
	return nil
}

// BatchDropped does nothing.
func (d *NoopDiagnostics) BatchDropped(_ context.Context, _ *model.Batch, _ string) error {
	return nil
}

// EventsEvicted does nothing.
func (d *NoopDiagnostics) EventsEvicted(_ context.Context, _ int64) error {
	return nil
}

// LoggingDiagnostics is a simple implementation that logs delivery diagnostics.
type LoggingDiagnostics struct {
	logger Logger
}

// NewLoggingDiagnostics creates a new LoggingDiagnostics.
func NewLoggingDiagnostics(logger Logger) *LoggingDiagnostics {
	return &LoggingDiagnostics{logger: logger}
}

// DeliveryFailed logs the failed delivery attempt.
func (d *LoggingDiagnostics) DeliveryFailed(_ context.Context, batch *model.Batch, err error) error {
	d.logger.Warnf("Delivery failed: batch=%s, seq=%d, attempt=%d, error=%v",
		batch.ID, batch.SequenceNumber, batch.AttemptCount, err)
	return nil
}

// BatchDropped logs the dropped batch.
func (d *LoggingDiagnostics) BatchDropped(_ context.Context, batch *model.Batch, reason string) error {
	d.logger.Warnf("Batch dropped: batch=%s, seq=%d, events=%d, attempts=%d, reason=%s",
		batch.ID, batch.SequenceNumber, batch.Size(), batch.AttemptCount, reason)
	return nil
}

// EventsEvicted logs the eviction.
func (d *LoggingDiagnostics) EventsEvicted(_ context.Context, count int64) error {
	d.logger.Warnf("Event queue evicted %d event(s) at capacity", count)
	return nil
}
