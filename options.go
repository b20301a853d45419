package tracking

import (
	"fmt"

	"github.com/founderos/tracking-go/retry"
)

// Option is a function that configures a Tracker.
// Used with the Options Pattern for flexible construction.
//
// Example:
//
//	tracker, err := tracking.New(
//	    tracking.WithBrandID("acme"),
//	    tracking.WithConfig(cfg),
//	    tracking.WithLogger(logger),
//	    tracking.WithStore(store), // optional
//	)
type Option func(*Tracker) error

// WithBrandID sets the brand the tracker captures events for.
// One tracker instance exists per brand id; this option is required.
func WithBrandID(brandID string) Option {
	return func(t *Tracker) error {
		t.brandID = brandID
		return nil
	}
}

// WithConfig sets the tracker configuration.
// Omitted fields should come from DefaultConfig; the configuration is
// validated during construction.
func WithConfig(cfg Config) Option {
	return func(t *Tracker) error {
		t.cfg = cfg
		return nil
	}
}

// WithLogger sets the logger instance. Defaults to NoopLogger.
//
// Implement the Logger interface to integrate with your logging system
// (zap, logrus, etc.).
func WithLogger(logger Logger) Option {
	return func(t *Tracker) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		t.logger = logger
		return nil
	}
}

// WithStore sets the persistence backend for identity and queue state.
// Provide the host platform's implementation (cookie jar, device-local
// storage, or the SQL adapter). Defaults to an in-memory store; ignored
// entirely when persistence is disabled by configuration.
func WithStore(store Store) Option {
	return func(t *Tracker) error {
		if store == nil {
			return fmt.Errorf("store cannot be nil")
		}
		t.customStore = store
		return nil
	}
}

// WithTransport overrides the delivery transport.
// Defaults to an HTTPTransport targeting the configured endpoint; tests
// and native bridges substitute their own.
func WithTransport(transport Transport) Option {
	return func(t *Tracker) error {
		if transport == nil {
			return fmt.Errorf("transport cannot be nil")
		}
		t.customTransport = transport
		return nil
	}
}

// WithRetryStrategy sets a custom retry strategy for batch redelivery.
// If not provided, retry.DefaultStrategy is used with the configured
// maximum attempt bound (batch_max_retries).
func WithRetryStrategy(strategy retry.Strategy) Option {
	return func(t *Tracker) error {
		t.customStrategy = &strategy
		return nil
	}
}

// WithDiagnostics sets an optional diagnostics sink for delivery failures,
// dropped batches and queue evictions. Defaults to NoopDiagnostics.
func WithDiagnostics(diagnostics Diagnostics) Option {
	return func(t *Tracker) error {
		if diagnostics == nil {
			return fmt.Errorf("diagnostics cannot be nil")
		}
		t.diagnostics = diagnostics
		return nil
	}
}

// WithPageURL sets the current page/app URL. Used for context stamping and
// for resolving a cross-domain continuity token at initialization.
func WithPageURL(pageURL string) Option {
	return func(t *Tracker) error {
		t.pageURL = pageURL
		return nil
	}
}
