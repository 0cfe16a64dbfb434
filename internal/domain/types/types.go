// Package types contains result shapes shared by the service and the HTTP
// layer.
package types

import (
	"time"

	"github.com/okian/skanlab/internal/domain/scoring"
)

// Outcome is the result of one simulation request.
type Outcome struct {
	scoring.Breakdown
	At time.Time
	// Recorded is false when the ledger was off or refused the simulation.
	Recorded bool
}

// LedgerSnapshot is a point-in-time copy of the simulation ledger counters.
type LedgerSnapshot struct {
	Total         int64            `json:"total"`
	ByValue       map[int]int64    `json:"by_conversion_value"`
	ByEvent       map[string]int64 `json:"by_event"`
	ByTier        map[string]int64 `json:"by_revenue_tier"`
	UnknownEvents int64            `json:"unknown_events"`
	RevenueTotal  float64          `json:"revenue_total"`
	AverageValue  float64          `json:"average_conversion_value"`
	LastAt        *time.Time       `json:"last_simulation_at,omitempty"`
}

// Stats describes the running service.
type Stats struct {
	Started       bool            `json:"started"`
	Workers       int             `json:"workers"`
	QueueLength   int             `json:"queue_length"`
	QueueCapacity int             `json:"queue_capacity"`
	LiveSessions  int64           `json:"live_sessions"`
	Ledger        *LedgerSnapshot `json:"ledger,omitempty"`
}
