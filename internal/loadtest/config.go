// Package loadtest drives a running demo server with concurrent simulation
// requests and checks every answer against the local scorer.
package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Requests int           // Number of simulations to submit
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // Seed for the case generator; 0 picks one
	Verbose  bool          // Log every mismatch
}

// Case is one generated simulation input.
type Case struct {
	Events  []string `json:"events"`
	Revenue float64  `json:"revenue"`
}

// Result is the server's answer to one Case.
type Result struct {
	ConversionValue int    `json:"conversion_value"`
	Timestamp       string `json:"timestamp"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int64
	Matched     int64
	Mismatched  int64
	Failed      int64
	ScriptBytes int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
