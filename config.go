package tracking

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Persistence selects the storage backing for durable tracker state.
type Persistence string

const (
	// PersistenceCookie keeps state in the host platform's cookie jar.
	PersistenceCookie Persistence = "cookie"

	// PersistenceLocalStorage keeps state in device-local storage.
	PersistenceLocalStorage Persistence = "localstorage"

	// PersistenceNone disables durable state entirely (memory-only).
	PersistenceNone Persistence = "none"
)

// Environment identifies the target collection environment.
type Environment string

const (
	// EnvironmentQC targets the QC collection endpoint.
	EnvironmentQC Environment = "qc"

	// EnvironmentProduction targets the production collection endpoint.
	EnvironmentProduction Environment = "production"
)

// Collection endpoints per environment.
const (
	apiURLQC         = "https://tracking.api.qc.founder-os.ai/api"
	apiURLProduction = "https://tracking.api.founder-os.ai/api"
)

// Config holds the validated set of recognized tracker options.
//
// The JSON tags match the wire option names used by the per-platform
// configuration surfaces (script-tag attributes, global objects, native
// bridge arguments). Unrecognized keys in a decoded configuration object
// are ignored, not errors.
//
// The Tracker facade owns its Config for the tracker's lifetime; all other
// components receive it by read-only reference at construction.
type Config struct {
	// Batching. BatchMaxRetries bounds total delivery attempts per batch,
	// first attempt included: a batch is sent at most that many times
	// before it is dropped.
	BatchRequests          bool `json:"batch_requests"`
	BatchSize              int  `json:"batch_size"`
	BatchFlushIntervalMS   int  `json:"batch_flush_interval_ms"`
	BatchRequestTimeoutMS  int  `json:"batch_request_timeout_ms"`
	BatchAutostart         bool `json:"batch_autostart"`
	BatchMaxRetries        int  `json:"batch_max_retries"`
	QueueMaxSize           int  `json:"queue_max_size"`

	// Persistence
	Persistence        Persistence `json:"persistence"`
	DisablePersistence bool        `json:"disable_persistence"`
	PersistenceName    string      `json:"persistence_name"`

	// Cookie scope
	CookieName           string `json:"cookie_name"`
	CookieDomain         string `json:"cookie_domain"`
	CookieExpirationDays int    `json:"cookie_expiration"`
	CrossSiteCookie      bool   `json:"cross_site_cookie"`
	CrossSubdomainCookie bool   `json:"cross_subdomain_cookie"`
	DisableCookie        bool   `json:"disable_cookie"`

	// Session
	SessionTimeoutMS int `json:"session_timeout"`

	// Privacy
	PropertyBlacklist []string `json:"property_blacklist"`
	IP                bool     `json:"ip"`

	// Environment / endpoint
	APIURL      string      `json:"api_url"`
	Environment Environment `json:"environment"`
	XAPIKey     string      `json:"x_api_key"`
}

// DefaultConfig returns the production-ready default configuration.
// Callers only need to fill in XAPIKey (and Environment for QC).
func DefaultConfig() Config {
	return Config{
		BatchRequests:         true,
		BatchSize:             10,
		BatchFlushIntervalMS:  10_000,
		BatchRequestTimeoutMS: 5_000,
		BatchAutostart:        true,
		BatchMaxRetries:       5,
		QueueMaxSize:          1000,
		Persistence:           PersistenceLocalStorage,
		PersistenceName:       "fos_tracking",
		CookieName:            "fos_id",
		CookieExpirationDays:  365,
		SessionTimeoutMS:      30 * 60 * 1000,
		IP:                    true,
		Environment:           EnvironmentProduction,
	}
}

// Validate checks the configuration against the recognized option table.
// Returns a validation.Errors map naming each missing or invalid field.
// The numeric thresholds pair Required with Min because the Min rule alone
// skips zero values, and zero is invalid for every one of them.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.XAPIKey, validation.Required),
		validation.Field(&c.Environment,
			validation.Required.When(c.APIURL == ""),
			validation.In(EnvironmentQC, EnvironmentProduction)),
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.BatchFlushIntervalMS, validation.Required, validation.Min(1)),
		validation.Field(&c.BatchRequestTimeoutMS, validation.Required, validation.Min(1)),
		validation.Field(&c.BatchMaxRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.QueueMaxSize, validation.Required, validation.Min(1)),
		validation.Field(&c.SessionTimeoutMS, validation.Required, validation.Min(1)),
		validation.Field(&c.Persistence,
			validation.In(PersistenceCookie, PersistenceLocalStorage, PersistenceNone)),
	)
}

// GetAPIURL returns the collection endpoint for this configuration.
// An explicit api_url overrides the environment mapping.
func (c Config) GetAPIURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	if c.Environment == EnvironmentQC {
		return apiURLQC
	}
	return apiURLProduction
}

// FlushInterval returns the batch flush interval as a duration.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.BatchFlushIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request delivery timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.BatchRequestTimeoutMS) * time.Millisecond
}

// SessionTimeout returns the session inactivity timeout as a duration.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMS) * time.Millisecond
}

// PersistenceDisabled reports whether durable state is disabled, either
// explicitly or by selecting the "none" persistence backend.
func (c Config) PersistenceDisabled() bool {
	return c.DisablePersistence || c.Persistence == PersistenceNone
}

// IdentityKey returns the storage key for the identity logical record.
func (c Config) IdentityKey() string {
	return c.PersistenceName + ":identity"
}

// QueueKey returns the storage key for the event queue logical record.
func (c Config) QueueKey() string {
	return c.PersistenceName + ":eventQueue"
}
