package tracking

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"time"
)

// ContinuityParam is the query parameter carrying a cross-domain session
// token. Outbound links are decorated with it so a session started on one
// domain continues on another where cookies are not shared.
const ContinuityParam = "fos_st"

// ContinuityToken is the session state embedded in a decorated URL:
// enough to adopt the originating domain's anonymous id and session
// instead of generating fresh ones.
type ContinuityToken struct {
	AnonymousID string    `json:"anonymousId"`
	SessionID   string    `json:"sessionId"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// ResolveContinuityToken extracts a continuity token from the current page
// URL. Returns nil when the token is absent, malformed, incomplete, or
// older than maxAge; none of these are errors, the caller simply falls
// back to local state. Malformed tokens never fail initialization.
func ResolveContinuityToken(rawURL string, maxAge time.Duration) *ContinuityToken {
	if rawURL == "" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	encoded := u.Query().Get(ContinuityParam)
	if encoded == "" {
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	var token ContinuityToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil
	}
	if token.AnonymousID == "" || token.SessionID == "" || token.IssuedAt.IsZero() {
		return nil
	}
	if time.Since(token.IssuedAt) > maxAge {
		return nil
	}

	return &token
}

// EncodeContinuityToken serializes a token for embedding in an outbound URL.
func EncodeContinuityToken(token ContinuityToken) string {
	payload, err := json.Marshal(token)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(payload)
}

// DecorateURL appends the continuity token to an outbound link so the
// destination domain can continue the current session.
func DecorateURL(rawURL string, token ContinuityToken) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", NewErrorWithCause(ErrCodeValidation, "invalid outbound URL", err)
	}

	q := u.Query()
	q.Set(ContinuityParam, EncodeContinuityToken(token))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
