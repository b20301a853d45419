package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bounded window of continuous activity on one device.
//
// Lifecycle: created on first activity (or seeded from a cross-domain
// continuity token), renewed on every tracked event, and replaced by a
// fresh session once the inactivity gap exceeds the configured timeout.
// Expiry is checked lazily on each incoming event; there is no background
// session reaper.
type Session struct {
	ID             string    `json:"sessionId"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// NewSession creates a session starting now.
func NewSession(now time.Time) Session {
	return Session{
		ID:             uuid.NewString(),
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// ResumeSession reconstructs a session from persisted or cross-domain state.
func ResumeSession(id string, startedAt, lastActivityAt time.Time) Session {
	return Session{
		ID:             id,
		StartedAt:      startedAt,
		LastActivityAt: lastActivityAt,
	}
}

// IsZero reports whether the session has never been started.
func (s Session) IsZero() bool {
	return s.ID == ""
}

// ExpiredAt reports whether the session is expired as of now, given the
// configured inactivity timeout. A session exactly at the boundary is
// still alive; only now - lastActivityAt > timeout expires it.
func (s Session) ExpiredAt(now time.Time, timeout time.Duration) bool {
	if s.IsZero() {
		return true
	}
	return now.Sub(s.LastActivityAt) > timeout
}

// Renew bumps the last-activity instant. Called for every stamped event.
func (s *Session) Renew(now time.Time) {
	s.LastActivityAt = now
}

// Rotate returns the replacement session for an expired one.
// The anonymous device id is unaffected by rotation.
func (s Session) Rotate(now time.Time) Session {
	return NewSession(now)
}
