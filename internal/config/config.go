// Package config defines service configuration and its loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and SKAN_* env vars.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory simulation ledger queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ledger workers.
	WorkerCount int `koanf:"worker_count"`

	// StatsEnabled turns the simulation ledger on or off.
	StatsEnabled bool `koanf:"stats_enabled"`

	// SessionSecret signs session tokens. Empty means a random per-process secret.
	SessionSecret string `koanf:"session_secret"`

	// SessionTTLSec is the session token lifetime in seconds.
	SessionTTLSec int `koanf:"session_ttl_sec"`

	// SessionRegistrySize bounds the number of live session keys; <= 0 is unbounded.
	SessionRegistrySize int `koanf:"session_registry_size"`

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":5000",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		StatsEnabled:        true,
		SessionTTLSec:       86_400,
		SessionRegistrySize: 100_000,
		CookieSecure:        true,
		MaxBodyBytes:        16 << 20,
		CORSOrigins:         []string{"*"},
	}
}
