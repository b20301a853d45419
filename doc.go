// Package tracking provides the FounderOS client-side event tracking pipeline
// for Go with reliable batched delivery, durable buffering, and session/identity
// continuity across page loads and domain boundaries.
//
// Works both as an embeddable library for Go hosts AND as the core consumed by
// the per-platform wrappers (web, native mobile, React Native bridges).
//
// # Features
//
//   - Reliable Batched Delivery: events are buffered, coalesced into size/time
//     bounded batches, and retried with exponential backoff
//   - Durable Buffering: the pending queue and identity state survive page
//     reloads and app restarts via a pluggable Store
//   - Bounded Retries: exhausted batches are dropped and counted rather than
//     retried forever, so fresh events are never blocked
//   - Session Continuity: lazy session expiry, stable anonymous device ids,
//     and cross-domain session tokens embedded in decorated URLs
//   - Options Pattern for modern Go API design
//   - Pluggable architecture: bring your own Logger, Store, Transport,
//     Diagnostics
//   - Multi-Database Store adapter: MySQL, PostgreSQL, SQLite via Relica
//   - Embedded migration for easy store setup
//
// # Quick Start
//
// Create a tracker and capture events:
//
//	tracker, err := tracking.New(
//	    tracking.WithBrandID("acme"),
//	    tracking.WithConfig(func() tracking.Config {
//	        cfg := tracking.DefaultConfig()
//	        cfg.XAPIKey = os.Getenv("TRACKING_API_KEY")
//	        cfg.Environment = tracking.EnvironmentQC
//	        return cfg
//	    }()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracker.Close(context.Background())
//
//	_ = tracker.Track("signup_completed", model.Properties{"plan": "pro"})
//	_ = tracker.Identify("user-123", model.Traits{"email": "user@example.com"})
//	_ = tracker.Screen("pricing", nil)
//
// For durable buffering across restarts, attach the SQL store adapter:
//
//	db, _ := sql.Open("sqlite3", "tracking.db")
//	_ = relica.ApplySchema(db) // or apply tracking.MigrationFiles yourself
//
//	store := relica.NewSQLStore(db, "sqlite3")
//	tracker, err := tracking.New(
//	    tracking.WithBrandID("acme"),
//	    tracking.WithConfig(cfg),
//	    tracking.WithStore(store),
//	)
//
// # Event Flow
//
//  1. CAPTURE
//     Track/Screen/Identify → validate arguments
//     → stamp with an atomic context snapshot (session, anonymous id,
//     user id, metadata, timestamp)
//     → enqueue (never blocks, never fails the caller)
//
//  2. SCHEDULE (background)
//     Batcher → flush on size threshold, interval tick, or explicit flush
//     → drain up to batch_size events from the head
//     → deliver via Transport
//     → on success: commit the drain (durably forget the events)
//     → on transient failure: retry the same batch with backoff, ahead of
//     newer events
//     → after batch_max_retries delivery attempts: drop and count
//
//  3. TEARDOWN
//     Close → one best-effort final flush with a short timeout
//     → undelivered events stay in the persisted mirror for the next run
//
// # Delivery Semantics
//
// Tracking calls are fire-and-forget: delivery failures are never surfaced to
// the caller, only to logging and the Diagnostics sink. Within successful
// deliveries, events preserve enqueue order with no loss and no duplication;
// head re-insertion of failed batches is what prevents reordering past a
// failure. Events may be lost only when the process dies with persistence
// disabled, when the queue hard cap evicts the oldest events, or when a batch
// exhausts its retry bound.
//
// # Sessions and Identity
//
// A session is a bounded window of continuous activity. Expiry is checked
// lazily on every event: an inactivity gap longer than session_timeout rotates
// the session id while the anonymous device id stays stable. Identify attaches
// a user id and merges traits (new keys overwrite, others are retained);
// Reset(all) additionally discards the anonymous id. A continuity token in the
// page URL (see ResolveContinuityToken) lets a session cross a cookie boundary
// between domains.
//
// For detailed documentation, see pkg.go.dev.
package tracking
