package model

import (
	"time"

	"github.com/google/uuid"
)

// Batch is an ordered, finite sequence of events delivered together in one
// network request. Batches carry a monotonically increasing sequence number
// assigned by the scheduler so the collector can detect gaps.
//
// Lifecycle:
//  1. Assembled from the head of the event queue
//  2. Delivery attempted → delivered (committed) or failed (retried)
//  3. Failed batches retry with exponential backoff, ahead of newer events
//  4. After exhausting the retry bound → dropped and counted
//
// Business logic methods:
//   - MarkFailed/MarkDelivered: record the outcome of a delivery attempt
//   - CanAttemptDelivery: check whether another attempt is allowed
//   - ShouldDrop: check whether the retry bound is exhausted
//
// Invariant: an event belongs to exactly one in-flight batch at a time; the
// scheduler never assembles a new batch while one is outstanding.
type Batch struct {
	ID             string    `json:"id"`
	SequenceNumber int64     `json:"sequenceNumber"`
	Events         []Event   `json:"events"`
	AttemptCount   int       `json:"attemptCount"`
	LastAttemptAt  time.Time `json:"lastAttemptAt,omitzero"`
	LastError      string    `json:"lastError,omitempty"`
	Delivered      bool      `json:"delivered"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewBatch assembles a batch from drained events.
// Initial state: zero attempts, not delivered, ready immediately.
func NewBatch(sequenceNumber int64, events []Event) *Batch {
	return &Batch{
		ID:             uuid.NewString(),
		SequenceNumber: sequenceNumber,
		Events:         events,
		AttemptCount:   0,
		CreatedAt:      time.Now(),
	}
}

// Size returns the number of events in the batch.
func (b *Batch) Size() int {
	return len(b.Events)
}

// MarkFailed records a failed delivery attempt.
// Increments the attempt count and stores the delivery error.
func (b *Batch) MarkFailed(err error) {
	b.AttemptCount++
	b.LastAttemptAt = time.Now()
	if err != nil {
		b.LastError = err.Error()
	}
}

// MarkDelivered records a successful delivery.
func (b *Batch) MarkDelivered() {
	b.AttemptCount++
	b.LastAttemptAt = time.Now()
	b.Delivered = true
	b.LastError = ""
}

// ShouldDrop reports whether the batch has exhausted its retry bound and
// must be discarded rather than retried again.
func (b *Batch) ShouldDrop(maxAttempts int) bool {
	return !b.Delivered && b.AttemptCount >= maxAttempts
}

// CanAttemptDelivery validates whether another delivery attempt is allowed.
//
// Returns an error if delivery cannot be attempted:
//   - ErrBatchEmpty: nothing to deliver
//   - ErrBatchAlreadyDelivered: already successfully delivered
//   - ErrMaxAttemptsExceeded: retry bound exhausted
func (b *Batch) CanAttemptDelivery(maxAttempts int) error {
	if len(b.Events) == 0 {
		return ErrBatchEmpty
	}
	if b.Delivered {
		return ErrBatchAlreadyDelivered
	}
	if b.AttemptCount >= maxAttempts {
		return ErrMaxAttemptsExceeded
	}
	return nil
}

// GetAge returns how long the batch has existed since assembly.
func (b *Batch) GetAge() time.Duration {
	return time.Since(b.CreatedAt)
}

// Domain errors returned by Batch business logic methods.
var (
	// ErrBatchEmpty indicates the batch contains no events.
	ErrBatchEmpty = DomainError{Code: "BATCH_EMPTY", Message: "Batch contains no events"}

	// ErrBatchAlreadyDelivered indicates the batch was already successfully delivered.
	ErrBatchAlreadyDelivered = DomainError{Code: "ALREADY_DELIVERED", Message: "Batch already delivered"}

	// ErrMaxAttemptsExceeded indicates the batch has reached the maximum delivery attempts.
	ErrMaxAttemptsExceeded = DomainError{Code: "MAX_ATTEMPTS", Message: "Maximum delivery attempts exceeded"}
)

// DomainError represents a domain-level business rule violation.
type DomainError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e DomainError) Error() string {
	return e.Message
}
