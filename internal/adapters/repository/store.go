// Package repository holds the in-memory ledger of scored simulations.
// Nothing is persisted; the ledger exists for /stats only.
package repository

import (
	"context"

	"github.com/okian/skanlab/internal/domain/model"
	"github.com/okian/skanlab/internal/domain/types"
)

// Snapshot is a point-in-time copy of the ledger counters.
type Snapshot = types.LedgerSnapshot

// Store records simulations and exposes aggregated counts.
type Store interface {
	// Record adds s to the ledger. Returns ErrClosed after Close.
	Record(ctx context.Context, s model.Simulation) error

	// Snapshot returns the current aggregates. The result is not shared with
	// the store and may be modified by the caller.
	Snapshot(ctx context.Context) Snapshot

	// Count returns the number of recorded simulations.
	Count(ctx context.Context) int64

	Close() error
}
