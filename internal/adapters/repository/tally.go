package repository

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skanlab/internal/domain/model"
)

// TallyStore is a mutex-guarded, in-memory Store. Snapshots are cached and
// only rebuilt after a new Record.
type TallyStore struct {
	mu      sync.RWMutex
	total   int64
	byValue map[int]int64
	byEvent map[string]int64
	byTier  map[string]int64
	unknown int64
	revenue float64
	sumCV   int64
	lastAt  time.Time
	closed  bool

	known func(string) bool
	now   func() time.Time

	dirty    atomic.Bool
	snapshot atomic.Pointer[Snapshot]
}

// NewTallyStore constructs an empty ledger.
func NewTallyStore(opts ...Option) *TallyStore {
	s := &TallyStore{
		byValue: make(map[int]int64),
		byEvent: make(map[string]int64),
		byTier:  make(map[string]int64),
		known:   func(string) bool { return true },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dirty.Store(true)
	return s
}

// Record implements Store.Record.
func (s *TallyStore) Record(ctx context.Context, sim model.Simulation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.total++
	s.byValue[sim.ConversionValue]++
	for _, name := range sim.Events {
		if s.known(name) {
			s.byEvent[name]++
		} else {
			s.unknown++
		}
	}
	if sim.Tier != "" {
		s.byTier[sim.Tier]++
	}
	if sim.Revenue > 0 {
		s.revenue = saturatingAdd(s.revenue, sim.Revenue)
	}
	s.sumCV += int64(sim.ConversionValue)

	at := sim.At
	if at.IsZero() {
		at = s.now()
	}
	if at.After(s.lastAt) {
		s.lastAt = at
	}

	s.dirty.Store(true)
	return nil
}

// Snapshot implements Store.Snapshot.
func (s *TallyStore) Snapshot(_ context.Context) Snapshot {
	if s.dirty.Load() || s.snapshot.Load() == nil {
		s.publish()
	}
	return clone(s.snapshot.Load())
}

// Count implements Store.Count.
func (s *TallyStore) Count(_ context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Close stops the ledger from accepting records. Reads keep working.
func (s *TallyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *TallyStore) publish() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Clear before building so a concurrent Record re-marks it.
	s.dirty.Store(false)

	snap := &Snapshot{
		Total:         s.total,
		ByValue:       make(map[int]int64, len(s.byValue)),
		ByEvent:       make(map[string]int64, len(s.byEvent)),
		ByTier:        make(map[string]int64, len(s.byTier)),
		UnknownEvents: s.unknown,
		RevenueTotal:  s.revenue,
	}
	for k, v := range s.byValue {
		snap.ByValue[k] = v
	}
	for k, v := range s.byEvent {
		snap.ByEvent[k] = v
	}
	for k, v := range s.byTier {
		snap.ByTier[k] = v
	}
	if s.total > 0 {
		snap.AverageValue = float64(s.sumCV) / float64(s.total)
		last := s.lastAt
		snap.LastAt = &last
	}
	s.snapshot.Store(snap)
}

func clone(snap *Snapshot) Snapshot {
	out := *snap
	out.ByValue = make(map[int]int64, len(snap.ByValue))
	for k, v := range snap.ByValue {
		out.ByValue[k] = v
	}
	out.ByEvent = make(map[string]int64, len(snap.ByEvent))
	for k, v := range snap.ByEvent {
		out.ByEvent[k] = v
	}
	out.ByTier = make(map[string]int64, len(snap.ByTier))
	for k, v := range snap.ByTier {
		out.ByTier[k] = v
	}
	if snap.LastAt != nil {
		last := *snap.LastAt
		out.LastAt = &last
	}
	return out
}

// saturatingAdd adds b to a, holding the sum at math.MaxFloat64 instead of
// overflowing to +Inf so snapshots stay JSON encodable.
func saturatingAdd(a, b float64) float64 {
	sum := a + b
	if math.IsInf(sum, 1) || math.IsNaN(sum) {
		return math.MaxFloat64
	}
	return sum
}
