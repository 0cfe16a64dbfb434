// Package model contains domain models passed between layers.
package model

import "time"

// Simulation is one scored conversion request, as recorded by the ledger.
type Simulation struct {
	ID              string    // request-scoped id, used in logs
	Events          []string  // recognised and unrecognised event names as submitted
	Revenue         float64   // revenue used for scoring; 0 when absent or non-numeric
	ConversionValue int       // result of scoring.Score
	Tier            string    // revenue tier name, or "none"
	At              time.Time // when the request was scored
}
