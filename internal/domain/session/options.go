package session

import "time"

const (
	defaultRegistrySize = 100_000
	defaultTTL          = 24 * time.Hour
	defaultIssuer       = "skanlab"
)

// Option applies a configuration option to the in-memory registry.
type Option func(*inMemoryRegistry)

// WithMaxSize bounds the number of live keys.
// If maxSize > 0 the oldest key is evicted when full.
// If maxSize <= 0 the registry is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(r *inMemoryRegistry) {
		r.maxSize = maxSize
	}
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuerName sets the iss claim written and expected.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		if name != "" {
			i.name = name
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// CookieName is the cookie that carries the session token in browsers.
const CookieName = "skan_session"
