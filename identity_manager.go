package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/founderos/tracking-go/model"
)

// IdentityManager owns the anonymous device id, the current user id and
// traits, and the current session. It is the only writer of the identity
// storage key.
//
// Session state machine: Active → Expired → (new) Active. The transition
// is checked lazily on every stamped event: if the inactivity gap exceeds
// the session timeout, the session is rotated before the event is stamped.
// Rotation never touches the anonymous id.
type IdentityManager struct {
	mu       sync.Mutex
	store    Store
	key      string
	timeout  time.Duration
	identity model.Identity
	session  model.Session
	persist  bool
	logger   Logger
}

// NewIdentityManager creates an identity manager backed by the given store.
// Previously persisted identity and session state is restored; a missing
// record is first run and yields a fresh anonymous identity.
func NewIdentityManager(store Store, key string, timeout time.Duration, logger Logger) *IdentityManager {
	m := &IdentityManager{
		store:   store,
		key:     key,
		timeout: timeout,
		persist: store != nil,
		logger:  logger,
	}
	m.restore()
	if m.identity.AnonymousID == "" {
		m.identity = model.NewIdentity()
	}
	return m
}

// restore reconstructs identity and session state from the persisted record.
func (m *IdentityManager) restore() {
	if !m.persist {
		return
	}

	raw, err := m.store.Get(context.Background(), m.key)
	if err != nil {
		if !IsNoData(err) {
			m.logger.Warnf("Failed to restore identity, starting fresh: %v", err)
		}
		return
	}

	var record model.IdentityRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		m.logger.Warnf("Corrupt identity record, starting fresh: %v", err)
		return
	}

	m.identity = record.Identity()
	m.session = record.Session()
}

// SeedSession continues a session started on another domain. Called once at
// initialization when a valid continuity token was resolved from the page
// URL; it adopts the token's anonymous id and session instead of local
// state.
func (m *IdentityManager) SeedSession(ctx context.Context, token *ContinuityToken) {
	if token == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.identity.AnonymousID = token.AnonymousID
	m.session = model.ResumeSession(token.SessionID, token.IssuedAt, token.IssuedAt)
	m.save(ctx)

	m.logger.Debugf("Session continued across domain boundary (session=%s)", token.SessionID)
}

// Stamp returns the identity and session to stamp an event with, taken
// atomically as of now. It creates the session on first activity, rotates
// it when expired, renews its activity instant, and regenerates the
// anonymous id if a full reset cleared it.
func (m *IdentityManager) Stamp(ctx context.Context, now time.Time) (model.Identity, model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity.AnonymousID == "" {
		m.identity = model.NewIdentity()
	}

	if m.session.ExpiredAt(now, m.timeout) {
		previous := m.session.ID
		m.session = m.session.Rotate(now)
		if previous != "" {
			m.logger.Debugf("Session expired, rotated %s -> %s", previous, m.session.ID)
		}
	}
	m.session.Renew(now)
	m.save(ctx)

	return m.identity, m.session
}

// Identify attaches a user id and merges traits into the stored set.
// Switching identified users does not rotate the anonymous id.
func (m *IdentityManager) Identify(ctx context.Context, userID string, traits model.Traits) (model.Identity, model.Session) {
	m.mu.Lock()
	m.identity.Identify(userID, traits)
	m.mu.Unlock()

	return m.Stamp(ctx, time.Now())
}

// MergeTraits merges profile traits without changing the user id.
func (m *IdentityManager) MergeTraits(ctx context.Context, traits model.Traits) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.identity.MergeTraits(traits)
	m.save(ctx)
}

// Traits returns a copy of the stored user traits.
func (m *IdentityManager) Traits() model.Traits {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(model.Traits, len(m.identity.Traits))
	for k, v := range m.identity.Traits {
		out[k] = v
	}
	return out
}

// Identity returns the current identity state.
func (m *IdentityManager) Identity() model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Reset clears the session, user id and traits. When all is true the
// anonymous id is cleared too; a fresh one is generated on the next event.
func (m *IdentityManager) Reset(ctx context.Context, all bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.identity.Reset(all)
	m.session = model.Session{}

	if all {
		if m.persist {
			if err := m.store.Remove(ctx, m.key); err != nil {
				m.logger.Warnf("Failed to clear identity record: %v", err)
			}
		}
		return
	}
	m.save(ctx)
}

// save persists the identity record. Must be called with m.mu held.
// A store failure degrades to memory-only operation for this session.
func (m *IdentityManager) save(ctx context.Context) {
	if !m.persist {
		return
	}

	raw, err := json.Marshal(model.NewIdentityRecord(m.identity, m.session))
	if err != nil {
		m.logger.Errorf("Failed to serialize identity record: %v", err)
		return
	}

	if err := m.store.Set(ctx, m.key, string(raw)); err != nil {
		m.persist = false
		m.logger.Warnf("Identity persistence failed, continuing memory-only: %v", err)
	}
}
