// Package retry provides exponential backoff retry strategies for batch delivery.
// It implements configurable retry logic with a bounded attempt count after
// which a batch is dropped rather than retried forever.
package retry

import (
	"fmt"
	"math"
	"time"
)

// Strategy defines the retry behavior for failed batch deliveries.
// It implements exponential backoff with configurable parameters.
//
// The retry schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with defaults (1s base, 2.0 exponential, 30s max):
//
//	Attempt 1: 2s
//	Attempt 2: 4s
//	Attempt 3: 8s
//	Attempt 4: 16s
//	Attempt 5: 30s (→ dropped)
type Strategy struct {
	MaxAttempts     int           // Maximum delivery attempts before the batch is dropped
	BaseDelay       time.Duration // Initial retry delay
	MaxDelay        time.Duration // Maximum retry delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default retry strategy for client-side delivery.
// Configuration: 5 max attempts, 1s→30s exponential backoff. Delays are kept
// short because the pipeline runs on end-user devices where a page or app may
// disappear at any moment.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     5,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// CalculateRetryDelay calculates the retry delay for a given attempt using
// exponential backoff. Formula: delay = min(BaseDelay * ExponentialBase^attemptNumber, MaxDelay)
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber))

	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another delivery attempt is allowed.
// Returns true if the attempt count is below the maximum attempts limit.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// ShouldDrop determines if a batch should be dropped.
// Returns true when the attempt count reaches or exceeds the maximum.
func (s Strategy) ShouldDrop(attemptCount int) bool {
	return attemptCount >= s.MaxAttempts
}

// GetRetrySchedule returns a human-readable description of the retry schedule.
// Useful for debugging and displaying retry behavior in logs.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 1: after 2s
//	  Attempt 2: after 4s
//	  ...
//	  Attempt 5: after 30s
//	  → Drop batch
func (s Strategy) GetRetrySchedule() string {
	schedule := "Retry Schedule:\n"
	for i := 1; i <= s.MaxAttempts; i++ {
		delay := s.CalculateRetryDelay(i)
		schedule += fmt.Sprintf("  Attempt %d: after %v\n", i, delay)
	}
	schedule += "  → Drop batch\n"
	return schedule
}
