package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuityToken_RoundTrip(t *testing.T) {
	issued := time.Now().Add(-time.Minute).Truncate(time.Second)
	token := ContinuityToken{
		AnonymousID: "anon-1",
		SessionID:   "sess-1",
		IssuedAt:    issued,
	}

	decorated, err := DecorateURL("https://shop.example.com/checkout?ref=home", token)
	require.NoError(t, err)
	assert.Contains(t, decorated, ContinuityParam+"=")

	resolved := ResolveContinuityToken(decorated, 30*time.Minute)
	require.NotNil(t, resolved)
	assert.Equal(t, "anon-1", resolved.AnonymousID)
	assert.Equal(t, "sess-1", resolved.SessionID)
	assert.True(t, issued.Equal(resolved.IssuedAt))
}

func TestDecorateURL_PreservesExistingQuery(t *testing.T) {
	token := ContinuityToken{AnonymousID: "a", SessionID: "s", IssuedAt: time.Now()}

	decorated, err := DecorateURL("https://shop.example.com/?utm_source=mail", token)
	require.NoError(t, err)
	assert.Contains(t, decorated, "utm_source=mail")
}

func TestDecorateURL_InvalidURL(t *testing.T) {
	_, err := DecorateURL("://not-a-url", ContinuityToken{})
	assert.True(t, IsValidation(err))
}

func TestResolveContinuityToken_FallsBackToNil(t *testing.T) {
	maxAge := 30 * time.Minute
	valid := ContinuityToken{
		AnonymousID: "anon-1",
		SessionID:   "sess-1",
		IssuedAt:    time.Now(),
	}

	tests := []struct {
		name string
		url  string
	}{
		{
			name: "empty url",
			url:  "",
		},
		{
			name: "unparseable url",
			url:  "://bad",
		},
		{
			name: "no token parameter",
			url:  "https://example.com/?utm_source=mail",
		},
		{
			name: "not base64",
			url:  "https://example.com/?" + ContinuityParam + "=%%%",
		},
		{
			name: "base64 but not json",
			url:  "https://example.com/?" + ContinuityParam + "=bm90LWpzb24",
		},
		{
			name: "missing anonymous id",
			url: mustDecorate(t, ContinuityToken{
				SessionID: "sess-1",
				IssuedAt:  time.Now(),
			}),
		},
		{
			name: "missing session id",
			url: mustDecorate(t, ContinuityToken{
				AnonymousID: "anon-1",
				IssuedAt:    time.Now(),
			}),
		},
		{
			name: "missing issue instant",
			url: mustDecorate(t, ContinuityToken{
				AnonymousID: "anon-1",
				SessionID:   "sess-1",
			}),
		},
		{
			name: "expired token",
			url: mustDecorate(t, ContinuityToken{
				AnonymousID: "anon-1",
				SessionID:   "sess-1",
				IssuedAt:    time.Now().Add(-maxAge - time.Minute),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ResolveContinuityToken(tt.url, maxAge))
		})
	}

	// Sanity: the same URL with a valid token does resolve.
	assert.NotNil(t, ResolveContinuityToken(mustDecorate(t, valid), maxAge))
}

func mustDecorate(t *testing.T, token ContinuityToken) string {
	t.Helper()

	decorated, err := DecorateURL("https://example.com/", token)
	require.NoError(t, err)
	return decorated
}
