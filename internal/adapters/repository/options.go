package repository

import "time"

// Option applies a configuration option to the TallyStore.
type Option func(*TallyStore)

// WithClock overrides time.Now for simulations recorded without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *TallyStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKnownEvent limits per-event counts to names accepted by known. Other
// names are only counted in UnknownEvents, so arbitrary client input cannot
// grow the ledger.
func WithKnownEvent(known func(name string) bool) Option {
	return func(s *TallyStore) {
		if known != nil {
			s.known = known
		}
	}
}
