package site

import "github.com/okian/skanlab/pkg/logger"

// Option configures the page handler.
type Option func(*PageHandler)

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(h *PageHandler) {
		h.secureCookie = secure
	}
}

// WithLogger overrides the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *PageHandler) {
		if l != nil {
			h.log = l
		}
	}
}
