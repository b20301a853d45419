package model

import (
	"time"

	"github.com/google/uuid"
)

// Identity holds who the device belongs to: a stable anonymous id generated
// once per device, an optional user id set by identify, and the last-known
// user traits.
//
// Trait semantics: successive identify/set calls merge into the stored
// traits; new keys overwrite, existing keys are retained. Switching
// identified users does not by itself rotate the anonymous id.
type Identity struct {
	AnonymousID string `json:"anonymousId"`
	UserID      string `json:"userId,omitempty"`
	Traits      Traits `json:"traits,omitempty"`
}

// NewIdentity creates a fresh anonymous identity.
func NewIdentity() Identity {
	return Identity{
		AnonymousID: uuid.NewString(),
	}
}

// IsIdentified reports whether a user id has been attached.
func (i Identity) IsIdentified() bool {
	return i.UserID != ""
}

// Identify attaches a user id and merges the given traits.
func (i *Identity) Identify(userID string, traits Traits) {
	i.UserID = userID
	i.MergeTraits(traits)
}

// MergeTraits merges traits into the stored set.
// New keys overwrite, all other keys are retained.
func (i *Identity) MergeTraits(traits Traits) {
	if len(traits) == 0 {
		return
	}
	if i.Traits == nil {
		i.Traits = make(Traits, len(traits))
	}
	for k, v := range traits {
		i.Traits[k] = v
	}
}

// Reset clears the user id and traits. When all is true the anonymous id
// is cleared too, forcing a fresh one on the next event.
func (i *Identity) Reset(all bool) {
	i.UserID = ""
	i.Traits = nil
	if all {
		i.AnonymousID = ""
	}
}

// IdentityRecord is the persisted "identity" logical record, combining the
// identity and current session state under a single storage key.
// Absence of the record on load is treated as first run, not an error.
type IdentityRecord struct {
	AnonymousID      string    `json:"anonymousId"`
	UserID           string    `json:"userId,omitempty"`
	Traits           Traits    `json:"traits,omitempty"`
	SessionID        string    `json:"sessionId,omitempty"`
	SessionStartedAt time.Time `json:"sessionStartedAt,omitzero"`
	LastActivityAt   time.Time `json:"lastActivityAt,omitzero"`
}

// NewIdentityRecord snapshots identity and session state for persistence.
func NewIdentityRecord(identity Identity, session Session) IdentityRecord {
	return IdentityRecord{
		AnonymousID:      identity.AnonymousID,
		UserID:           identity.UserID,
		Traits:           identity.Traits,
		SessionID:        session.ID,
		SessionStartedAt: session.StartedAt,
		LastActivityAt:   session.LastActivityAt,
	}
}

// Identity reconstructs the identity part of the record.
func (r IdentityRecord) Identity() Identity {
	return Identity{
		AnonymousID: r.AnonymousID,
		UserID:      r.UserID,
		Traits:      r.Traits,
	}
}

// Session reconstructs the session part of the record.
// Returns a zero session when no session was persisted.
func (r IdentityRecord) Session() Session {
	if r.SessionID == "" {
		return Session{}
	}
	return ResumeSession(r.SessionID, r.SessionStartedAt, r.LastActivityAt)
}
