package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	now := time.Now()

	s := NewSession(now)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, now, s.StartedAt)
	assert.Equal(t, now, s.LastActivityAt)
	assert.False(t, s.IsZero())
}

func TestSession_ExpiredAt(t *testing.T) {
	timeout := 30 * time.Minute
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := NewSession(start)

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{
			name:    "just before timeout",
			now:     start.Add(timeout - time.Millisecond),
			expired: false,
		},
		{
			name:    "exactly at timeout",
			now:     start.Add(timeout),
			expired: false,
		},
		{
			name:    "just past timeout",
			now:     start.Add(timeout + time.Millisecond),
			expired: true,
		},
		{
			name:    "long after timeout",
			now:     start.Add(24 * time.Hour),
			expired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, s.ExpiredAt(tt.now, timeout))
		})
	}
}

func TestSession_ExpiredAt_ZeroSession(t *testing.T) {
	var s Session
	assert.True(t, s.IsZero())
	assert.True(t, s.ExpiredAt(time.Now(), time.Hour))
}

func TestSession_Renew(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := NewSession(start)

	later := start.Add(10 * time.Minute)
	s.Renew(later)

	assert.Equal(t, later, s.LastActivityAt)
	assert.Equal(t, start, s.StartedAt)
}

func TestSession_Renew_ExtendsExpiry(t *testing.T) {
	timeout := 30 * time.Minute
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := NewSession(start)

	// Activity 20 minutes in keeps the session alive 20 minutes longer
	s.Renew(start.Add(20 * time.Minute))

	assert.False(t, s.ExpiredAt(start.Add(45*time.Minute), timeout))
	assert.True(t, s.ExpiredAt(start.Add(51*time.Minute), timeout))
}

func TestSession_Rotate(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := NewSession(start)

	now := start.Add(2 * time.Hour)
	rotated := s.Rotate(now)

	assert.NotEqual(t, s.ID, rotated.ID)
	assert.Equal(t, now, rotated.StartedAt)
	assert.Equal(t, now, rotated.LastActivityAt)
}

func TestResumeSession(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	last := start.Add(5 * time.Minute)

	s := ResumeSession("sess-42", start, last)

	assert.Equal(t, "sess-42", s.ID)
	assert.Equal(t, start, s.StartedAt)
	assert.Equal(t, last, s.LastActivityAt)
}
