package service

import (
	"time"

	"github.com/okian/skanlab/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ledger workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the simulation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRegistrySize bounds the number of live session keys. Zero or less
// keeps every key.
func WithRegistrySize(size int) Option {
	return func(s *Service) {
		s.registrySize = size
	}
}

// WithSessionSecret sets the HMAC key for session tokens. Without it a
// random secret is generated at Start.
func WithSessionSecret(secret string) Option {
	return func(s *Service) {
		s.sessionSecret = secret
	}
}

// WithSessionTTL sets the session token lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithLedger toggles the simulation ledger behind /stats.
func WithLedger(enabled bool) Option {
	return func(s *Service) {
		s.ledgerEnabled = enabled
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
