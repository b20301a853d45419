package tracking

import (
	"context"
	"slices"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/founderos/tracking-go/model"
	"github.com/founderos/tracking-go/retry"
)

// Tracker is the public entry point of the tracking pipeline. It validates
// calls, stamps events with an atomic identity/session/context snapshot,
// and routes them into the event queue for batched delivery.
//
// One tracker instance exists per brand id; all operations take this handle
// rather than relying on ambient singletons. Tracking calls are
// fire-and-forget: they return synchronously after enqueueing and never
// block on network I/O. Delivery-path failures are absorbed by the pipeline
// and exposed only through logging and the Diagnostics sink.
//
// Thread safety: safe for concurrent use.
type Tracker struct {
	brandID         string
	cfg             Config
	logger          Logger
	diagnostics     Diagnostics
	pageURL         string
	customStore     Store
	customTransport Transport
	customStrategy  *retry.Strategy

	mu       sync.Mutex
	store    Store
	queue    *EventQueue
	batcher  *Batcher
	identity *IdentityManager
	metadata map[string]any
	cancel   context.CancelFunc
	runCtx   context.Context
	closed   bool
}

// New creates and initializes a tracker with the provided options.
//
// Required options:
//   - WithBrandID: the brand events are captured for
//   - WithConfig: configuration with at least x_api_key set
//
// Optional options:
//   - WithLogger, WithStore, WithTransport, WithRetryStrategy,
//     WithDiagnostics, WithPageURL
//
// Returns a CONFIGURATION_ERROR naming each missing or invalid field when
// the brand id is blank or the configuration is incomplete.
func New(opts ...Option) (*Tracker, error) {
	t := &Tracker{
		cfg:         DefaultConfig(),
		logger:      &NoopLogger{},
		diagnostics: &NoopDiagnostics{},
		metadata:    make(map[string]any),
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	if err := validateInit(t.brandID, t.cfg); err != nil {
		return nil, err
	}

	if err := t.initPipeline(); err != nil {
		return nil, err
	}

	t.logger.Infof("Tracker initialized (brand=%s, env=%s, endpoint=%s)",
		t.brandID, t.cfg.Environment, t.cfg.GetAPIURL())
	return t, nil
}

// validateInit checks the initialization arguments, reporting every missing
// field rather than the first one.
func validateInit(brandID string, cfg Config) error {
	errs := validation.Errors{}
	if err := validation.Validate(brandID, validation.Required); err != nil {
		errs["brandId"] = err
	}
	if err := cfg.Validate(); err != nil {
		if fieldErrs, ok := err.(validation.Errors); ok {
			for field, fieldErr := range fieldErrs {
				errs[field] = fieldErr
			}
		} else {
			return NewErrorWithCause(ErrCodeConfiguration, "invalid configuration", err)
		}
	}
	if len(errs) > 0 {
		return NewErrorWithCause(ErrCodeConfiguration, "invalid configuration", errs)
	}
	return nil
}

// initPipeline builds the queue, identity manager, transport and scheduler
// from the current configuration. Must be called with t.mu held or before
// the tracker is shared.
func (t *Tracker) initPipeline() error {
	store := t.customStore
	if t.cfg.PersistenceDisabled() {
		store = &NoopStore{}
	} else if store == nil {
		store = NewMemoryStore()
	}
	t.store = store

	t.identity = NewIdentityManager(store, t.cfg.IdentityKey(), t.cfg.SessionTimeout(), t.logger)
	if token := ResolveContinuityToken(t.pageURL, t.cfg.SessionTimeout()); token != nil {
		t.identity.SeedSession(context.Background(), token)
	}

	t.queue = NewEventQueue(store, t.cfg.QueueKey(), t.cfg.QueueMaxSize, t.logger)
	t.queue.ReportEvictions(t.diagnostics)

	transport := t.customTransport
	if transport == nil {
		transport = NewHTTPTransport(t.cfg.GetAPIURL(), t.cfg.XAPIKey, t.cfg.RequestTimeout())
	}

	strategy := retry.DefaultStrategy()
	strategy.MaxAttempts = t.cfg.BatchMaxRetries
	if t.customStrategy != nil {
		strategy = *t.customStrategy
	}

	batcher, err := NewBatcher(t.queue, transport, &t.cfg, strategy, t.logger, t.diagnostics)
	if err != nil {
		return err
	}
	t.batcher = batcher

	t.runCtx, t.cancel = context.WithCancel(context.Background())
	if t.cfg.BatchAutostart {
		t.batcher.Start(t.runCtx)
	}
	return nil
}

// Configure re-initializes the tracker in place with new configuration.
// Re-init with the same brand id is idempotent; re-init with a different
// brand id is flagged as a CONFIGURATION_ERROR instead of silently mixing
// identity data. Buffered events are carried over to the new pipeline.
func (t *Tracker) Configure(brandID string, cfg Config) error {
	if err := validateInit(brandID, cfg); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return NewError(ErrCodeConfiguration, "tracker is closed")
	}
	if brandID != t.brandID {
		return NewError(ErrCodeConfiguration,
			"re-init with a different brand id; create a separate tracker instance instead")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.batcher.Shutdown(shutdownCtx)
	cancel()
	t.cancel()

	// Carry buffered events over by snapshot, and clear the old mirror so
	// the rebuilt queue does not restore them a second time.
	carryover := t.queue.Snapshot()
	if t.store != nil {
		if err := t.store.Remove(context.Background(), t.cfg.QueueKey()); err != nil {
			t.logger.Warnf("Failed to clear event queue record: %v", err)
		}
	}
	t.cfg = cfg
	if err := t.initPipeline(); err != nil {
		return err
	}
	for _, event := range carryover {
		t.queue.Enqueue(context.Background(), event)
	}

	t.logger.Infof("Tracker reconfigured (brand=%s, env=%s)", t.brandID, t.cfg.Environment)
	return nil
}

// Track captures a custom behavioral event.
// Returns a VALIDATION_ERROR when name is blank; otherwise the call always
// succeeds locally, delivery failures are never surfaced here.
func (t *Tracker) Track(name string, properties model.Properties) error {
	if err := validation.Validate(name, validation.Required); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "event name is required", err)
	}

	ctx := context.Background()
	manager, cfg := t.current()
	event := model.NewTrackEvent(name, filterProperties(cfg.PropertyBlacklist, properties),
		t.snapshot(ctx, manager, cfg), time.Now())
	return t.submit(ctx, event)
}

// Screen captures a page/screen view event.
// Returns a VALIDATION_ERROR when name is blank.
func (t *Tracker) Screen(name string, properties model.Properties) error {
	if err := validation.Validate(name, validation.Required); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "screen name is required", err)
	}

	ctx := context.Background()
	manager, cfg := t.current()
	event := model.NewScreenEvent(name, filterProperties(cfg.PropertyBlacklist, properties),
		t.snapshot(ctx, manager, cfg), time.Now())
	return t.submit(ctx, event)
}

// Identify attaches a user id to the device and merges traits into the
// stored profile. Returns a VALIDATION_ERROR when userID is blank.
func (t *Tracker) Identify(userID string, traits model.Traits) error {
	if err := validation.Validate(userID, validation.Required); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "user id is required", err)
	}

	ctx := context.Background()
	manager, cfg := t.current()
	traits = model.Traits(filterProperties(cfg.PropertyBlacklist, model.Properties(traits)))
	identity, session := manager.Identify(ctx, userID, traits)

	event := model.NewIdentifyEvent(userID, manager.Traits(), model.Context{
		AnonymousID: identity.AnonymousID,
		SessionID:   session.ID,
		UserID:      identity.UserID,
		PageURL:     t.pageURL,
		Metadata:    t.metadataSnapshot(),
		CollectIP:   cfg.IP,
	}, time.Now())
	return t.submit(ctx, event)
}

// Set merges profile traits without changing the user id, with the same
// merge semantics as Identify. If a user is identified, the updated
// profile is delivered as an identify event; otherwise the merge is local
// until the next identify.
func (t *Tracker) Set(traits model.Traits) error {
	ctx := context.Background()
	manager, cfg := t.current()
	traits = model.Traits(filterProperties(cfg.PropertyBlacklist, model.Properties(traits)))
	manager.MergeTraits(ctx, traits)

	identity := manager.Identity()
	if !identity.IsIdentified() {
		return nil
	}
	event := model.NewIdentifyEvent(identity.UserID, manager.Traits(),
		t.snapshot(ctx, manager, cfg), time.Now())
	return t.submit(ctx, event)
}

// SetMetadata merges process-wide metadata stamped into the context of
// every subsequent event. Merge semantics match Identify's trait merge.
func (t *Tracker) SetMetadata(metadata map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, v := range metadata {
		t.metadata[k] = v
	}
	return nil
}

// Reset clears the session, user id and traits. When all is true the
// anonymous id is cleared too, so the next event starts a fresh device
// identity.
func (t *Tracker) Reset(all bool) {
	manager, _ := t.current()
	manager.Reset(context.Background(), all)
	t.logger.Debugf("Tracker reset (all=%v)", all)
}

// Flush delivers all due events immediately. Bound it with the context
// deadline; intended for page/app teardown.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	batcher := t.batcher
	t.mu.Unlock()

	batcher.Flush(ctx)
}

// Close attempts one best-effort final flush bounded by ctx, then stops
// the scheduler. The tracker cannot be used after Close.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	batcher, cancel := t.batcher, t.cancel
	t.mu.Unlock()

	batcher.Shutdown(ctx)
	cancel()
	t.logger.Info("Tracker closed")
	return nil
}

// BrandID returns the brand this tracker captures events for.
func (t *Tracker) BrandID() string {
	return t.brandID
}

// PendingEvents returns the number of events buffered for delivery.
func (t *Tracker) PendingEvents() int {
	t.mu.Lock()
	queue := t.queue
	t.mu.Unlock()
	return queue.Len()
}

// DroppedBatches returns the number of batches discarded after rejection
// or retry exhaustion.
func (t *Tracker) DroppedBatches() int64 {
	t.mu.Lock()
	batcher := t.batcher
	t.mu.Unlock()
	return batcher.DroppedBatches()
}

// EvictedEvents returns the number of events evicted at the queue cap.
func (t *Tracker) EvictedEvents() int64 {
	t.mu.Lock()
	queue := t.queue
	t.mu.Unlock()
	return queue.Evicted()
}

// submit routes a stamped event into the queue and wakes the scheduler.
// The enqueue happens under the tracker lock so a concurrent Configure
// cannot rebuild the pipeline between the pointer read and the append,
// which would strand the event in a discarded queue.
func (t *Tracker) submit(ctx context.Context, event model.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return NewError(ErrCodeConfiguration, "tracker is closed")
	}
	t.queue.Enqueue(ctx, event)
	t.batcher.Start(t.runCtx) // no-op when already running (autostart)
	t.batcher.Notify()
	return nil
}

// current returns the identity manager and configuration under the lock,
// so calls racing a Configure observe a consistent pipeline generation.
func (t *Tracker) current() (*IdentityManager, Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity, t.cfg
}

// snapshot takes the fresh context snapshot stamped onto an event:
// current session id, anonymous id, user id and process metadata, taken
// atomically at call time.
func (t *Tracker) snapshot(ctx context.Context, manager *IdentityManager, cfg Config) model.Context {
	identity, session := manager.Stamp(ctx, time.Now())
	return model.Context{
		AnonymousID: identity.AnonymousID,
		SessionID:   session.ID,
		UserID:      identity.UserID,
		PageURL:     t.pageURL,
		Metadata:    t.metadataSnapshot(),
		CollectIP:   cfg.IP,
	}
}

// metadataSnapshot copies the process-wide metadata for stamping.
func (t *Tracker) metadataSnapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(t.metadata))
	for k, v := range t.metadata {
		out[k] = v
	}
	return out
}

// filterProperties strips blacklisted keys from properties/traits at stamp
// time, per the property_blacklist privacy option.
func filterProperties(blacklist []string, properties model.Properties) model.Properties {
	if len(properties) == 0 || len(blacklist) == 0 {
		return properties
	}

	filtered := make(model.Properties, len(properties))
	for k, v := range properties {
		if slices.Contains(blacklist, k) {
			continue
		}
		filtered[k] = v
	}
	return filtered
}
