package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/founderos/tracking-go/model"
)

func testTrackerConfig() Config {
	cfg := DefaultConfig()
	cfg.XAPIKey = "test-key"
	cfg.BatchAutostart = false
	cfg.BatchFlushIntervalMS = 3_600_000
	return cfg
}

func newTestTracker(t *testing.T, transport Transport, opts ...Option) *Tracker {
	t.Helper()

	base := []Option{
		WithBrandID("acme"),
		WithConfig(testTrackerConfig()),
		WithTransport(transport),
	}
	tracker, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return tracker
}

func TestNew_ValidationNamesEveryMissingField(t *testing.T) {
	_, err := New()

	require.True(t, IsConfiguration(err))

	var fields validation.Errors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "brandId")
	assert.Contains(t, fields, "x_api_key")
}

func TestNew_NilOptionValues(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil logger", WithLogger(nil)},
		{"nil store", WithStore(nil)},
		{"nil transport", WithTransport(nil)},
		{"nil diagnostics", WithDiagnostics(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithBrandID("acme"), WithConfig(testTrackerConfig()), tt.opt)
			assert.True(t, IsConfiguration(err))
		})
	}
}

func TestTracker_TrackValidation(t *testing.T) {
	tracker := newTestTracker(t, &fakeTransport{})

	err := tracker.Track("", nil)
	assert.True(t, IsValidation(err))

	err = tracker.Screen("", nil)
	assert.True(t, IsValidation(err))

	err = tracker.Identify("", nil)
	assert.True(t, IsValidation(err))

	assert.Equal(t, 0, tracker.PendingEvents())
}

func TestTracker_EndToEndDeliveryInOrder(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.Screen("home", nil))
	require.NoError(t, tracker.Track("signup_started", model.Properties{"plan": "pro"}))
	require.NoError(t, tracker.Identify("user-1", model.Traits{"email": "a@b.c"}))
	require.NoError(t, tracker.Track("signup_completed", nil))

	tracker.Flush(context.Background())

	assert.Equal(t, []string{"home", "signup_started", "", "signup_completed"}, transport.deliveredNames())
	assert.Equal(t, 0, tracker.PendingEvents())
	assert.Equal(t, int64(0), tracker.DroppedBatches())
}

func TestTracker_EventsShareSessionAndAnonymousID(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.Track("first", nil))
	require.NoError(t, tracker.Track("second", nil))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.sent, 1)
	events := transport.sent[0]
	require.Len(t, events, 2)

	assert.NotEmpty(t, events[0].Context.AnonymousID)
	assert.Equal(t, events[0].Context.AnonymousID, events[1].Context.AnonymousID)
	assert.Equal(t, events[0].Context.SessionID, events[1].Context.SessionID)
}

func TestTracker_IdentifyStampsSubsequentEvents(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.Identify("user-1", model.Traits{"email": "a@b.c"}))
	require.NoError(t, tracker.Track("after_identify", nil))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.sent, 1)
	events := transport.sent[0]
	require.Len(t, events, 2)

	assert.Equal(t, model.EventTypeIdentify, events[0].Type)
	assert.Equal(t, "user-1", events[0].UserID)
	assert.Equal(t, model.Traits{"email": "a@b.c"}, events[0].Traits)
	assert.Equal(t, "user-1", events[1].Context.UserID)
}

func TestTracker_IdentifyMergesTraitsAcrossCalls(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.Identify("user-1", model.Traits{"email": "a@b.c", "plan": "free"}))
	require.NoError(t, tracker.Identify("user-1", model.Traits{"plan": "pro"}))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	events := transport.sent[0]
	require.Len(t, events, 2)

	// The second identify event carries the merged profile.
	assert.Equal(t, model.Traits{"email": "a@b.c", "plan": "pro"}, events[1].Traits)
}

func TestTracker_Set(t *testing.T) {
	t.Run("anonymous merge is local", func(t *testing.T) {
		transport := &fakeTransport{}
		tracker := newTestTracker(t, transport)

		require.NoError(t, tracker.Set(model.Traits{"plan": "free"}))
		tracker.Flush(context.Background())

		assert.Equal(t, 0, transport.sendCount())
	})

	t.Run("identified merge emits an identify event", func(t *testing.T) {
		transport := &fakeTransport{}
		tracker := newTestTracker(t, transport)

		require.NoError(t, tracker.Identify("user-1", model.Traits{"plan": "free"}))
		require.NoError(t, tracker.Set(model.Traits{"plan": "pro", "company": "acme"}))
		tracker.Flush(context.Background())

		transport.mu.Lock()
		defer transport.mu.Unlock()
		events := transport.sent[0]
		require.Len(t, events, 2)
		assert.Equal(t, model.EventTypeIdentify, events[1].Type)
		assert.Equal(t, "user-1", events[1].UserID)
		assert.Equal(t, model.Traits{"plan": "pro", "company": "acme"}, events[1].Traits)
	})
}

func TestTracker_SetMetadata(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.SetMetadata(map[string]any{"app_version": "1.4.2"}))
	require.NoError(t, tracker.SetMetadata(map[string]any{"platform": "ios"}))
	require.NoError(t, tracker.Track("opened", nil))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	events := transport.sent[0]
	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{
		"app_version": "1.4.2",
		"platform":    "ios",
	}, events[0].Context.Metadata)
}

func TestTracker_PropertyBlacklist(t *testing.T) {
	cfg := testTrackerConfig()
	cfg.PropertyBlacklist = []string{"email", "ssn"}

	transport := &fakeTransport{}
	tracker, err := New(
		WithBrandID("acme"),
		WithConfig(cfg),
		WithTransport(transport),
	)
	require.NoError(t, err)

	require.NoError(t, tracker.Track("signup", model.Properties{
		"plan":  "pro",
		"email": "a@b.c",
		"ssn":   "000-00-0000",
	}))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	events := transport.sent[0]
	require.Len(t, events, 1)
	assert.Equal(t, model.Properties{"plan": "pro"}, events[0].Properties)
}

func TestTracker_Reset(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.Identify("user-1", nil))
	require.NoError(t, tracker.Track("before_reset", nil))
	tracker.Reset(true)
	require.NoError(t, tracker.Track("after_reset", nil))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	events := transport.sent[0]
	require.Len(t, events, 3)

	before := events[1].Context
	after := events[2].Context
	assert.Empty(t, after.UserID)
	assert.NotEqual(t, before.AnonymousID, after.AnonymousID)
	assert.NotEqual(t, before.SessionID, after.SessionID)
}

func TestTracker_CollectIPFlag(t *testing.T) {
	cfg := testTrackerConfig()
	cfg.IP = false

	transport := &fakeTransport{}
	tracker, err := New(
		WithBrandID("acme"),
		WithConfig(cfg),
		WithTransport(transport),
	)
	require.NoError(t, err)

	require.NoError(t, tracker.Track("opened", nil))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.False(t, transport.sent[0][0].Context.CollectIP)
}

func TestTracker_ContinuesSessionFromPageURL(t *testing.T) {
	token := ContinuityToken{
		AnonymousID: "anon-origin",
		SessionID:   "sess-origin",
		IssuedAt:    time.Now().Add(-time.Minute),
	}
	pageURL, err := DecorateURL("https://shop.example.com/landing", token)
	require.NoError(t, err)

	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport, WithPageURL(pageURL))

	require.NoError(t, tracker.Track("landed", nil))
	tracker.Flush(context.Background())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	ctx := transport.sent[0][0].Context
	assert.Equal(t, "anon-origin", ctx.AnonymousID)
	assert.Equal(t, "sess-origin", ctx.SessionID)
	assert.Equal(t, pageURL, ctx.PageURL)
}

func TestTracker_Configure(t *testing.T) {
	t.Run("different brand id is refused", func(t *testing.T) {
		tracker := newTestTracker(t, &fakeTransport{})

		err := tracker.Configure("other-brand", testTrackerConfig())
		assert.True(t, IsConfiguration(err))
		assert.Equal(t, "acme", tracker.BrandID())
	})

	t.Run("invalid configuration is refused", func(t *testing.T) {
		tracker := newTestTracker(t, &fakeTransport{})

		cfg := testTrackerConfig()
		cfg.XAPIKey = ""
		err := tracker.Configure("acme", cfg)
		assert.True(t, IsConfiguration(err))
	})

	t.Run("buffered events survive re-initialization", func(t *testing.T) {
		// The collector is down during the reconfigure flush, so the
		// buffered event must be carried into the new pipeline.
		transport := &fakeTransport{outcomes: []Outcome{
			OutcomeTransientFailure,
			OutcomeDelivered,
		}}
		tracker := newTestTracker(t, transport, WithStore(NewMemoryStore()))

		require.NoError(t, tracker.Track("before_reconfigure", nil))

		cfg := testTrackerConfig()
		cfg.BatchRequestTimeoutMS = 10_000
		require.NoError(t, tracker.Configure("acme", cfg))

		require.NoError(t, tracker.Track("after_reconfigure", nil))
		tracker.Flush(context.Background())

		// First send is the failed pre-reconfigure attempt; nothing is
		// lost, duplicated, or reordered after it.
		assert.Equal(t, []string{"before_reconfigure", "before_reconfigure", "after_reconfigure"},
			transport.deliveredNames())
		assert.Equal(t, int64(0), tracker.DroppedBatches())
	})
}

func TestTracker_ConcurrentTrackAndConfigure(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport, WithStore(NewMemoryStore()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, tracker.Track("evt", nil))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			assert.NoError(t, tracker.Configure("acme", testTrackerConfig()))
		}
	}()
	wg.Wait()

	// Close blocks until any in-flight delivery settles, so after it
	// returns every accepted event has been delivered exactly once.
	require.NoError(t, tracker.Close(context.Background()))
	assert.Len(t, transport.deliveredNames(), 50)
}

func TestTracker_Close(t *testing.T) {
	transport := &fakeTransport{}
	tracker := newTestTracker(t, transport)

	require.NoError(t, tracker.Track("last_event", nil))
	require.NoError(t, tracker.Close(context.Background()))

	// The final flush delivered the buffered event.
	assert.Equal(t, []string{"last_event"}, transport.deliveredNames())

	// Tracking after Close is refused; closing twice is a no-op.
	err := tracker.Track("too_late", nil)
	assert.True(t, IsConfiguration(err))
	assert.NoError(t, tracker.Close(context.Background()))
}

func TestTracker_EvictedEventsCounter(t *testing.T) {
	cfg := testTrackerConfig()
	cfg.QueueMaxSize = 2

	var evicted int64
	diag := &recordingDiagnostics{onEvicted: func(count int64) {
		evicted += count
	}}

	transport := &fakeTransport{}
	tracker, err := New(
		WithBrandID("acme"),
		WithConfig(cfg),
		WithTransport(transport),
		WithDiagnostics(diag),
	)
	require.NoError(t, err)

	require.NoError(t, tracker.Track("a", nil))
	require.NoError(t, tracker.Track("b", nil))
	require.NoError(t, tracker.Track("c", nil))

	assert.Equal(t, int64(1), tracker.EvictedEvents())
	assert.Equal(t, int64(1), evicted)
	assert.Equal(t, 2, tracker.PendingEvents())
}
