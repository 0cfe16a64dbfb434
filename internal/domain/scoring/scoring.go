// Package scoring computes SKAdNetwork conversion values from in-app events
// and revenue.
//
// The event weights and revenue tiers are fixed process-wide tables; Score
// reads nothing else, so it is safe for concurrent use.
package scoring

import (
	"math"
	"sort"
)

// MaxConversionValue is the largest value a 6-bit conversion value can carry.
const MaxConversionValue = 63

// Tier is one revenue bucket: revenue in [Min, Max) adds Increment.
// The last tier has Max = +Inf.
type Tier struct {
	Name      string
	Min       float64
	Max       float64
	Increment int
}

// Open reports whether the tier has no upper bound.
func (t Tier) Open() bool { return math.IsInf(t.Max, 1) }

// TierNone names the outcome where revenue contributes nothing.
const TierNone = "none"

var eventValues = map[string]int{ //nolint:gochecknoglobals // immutable lookup table
	"install":        1,
	"registration":   2,
	"tutorial":       3,
	"first_purchase": 10,
	"subscription":   20,
}

// tiers are checked in ascending order; the first match wins.
var tiers = []Tier{ //nolint:gochecknoglobals // immutable lookup table
	{Name: "lt_10", Min: 0, Max: 10, Increment: 5},
	{Name: "lt_50", Min: 10, Max: 50, Increment: 10},
	{Name: "lt_100", Min: 50, Max: 100, Increment: 15},
	{Name: "gte_100", Min: 100, Max: math.Inf(1), Increment: 20},
}

// Score maps events and revenue to a conversion value in [0, MaxConversionValue].
// Unknown events add 0; revenue <= 0 (or NaN) adds 0.
func Score(events []string, revenue float64) int {
	return Explain(events, revenue).ConversionValue
}

// Breakdown describes how a conversion value was reached.
type Breakdown struct {
	ConversionValue int
	EventPoints     int
	RevenuePoints   int
	Tier            string
	UnknownEvents   int
	Clamped         bool
}

// Explain scores like Score and reports the contributions.
func Explain(events []string, revenue float64) Breakdown {
	var b Breakdown
	for _, name := range events {
		v, ok := eventValues[name]
		if !ok {
			b.UnknownEvents++
			continue
		}
		b.EventPoints += v
	}

	b.Tier = TierNone
	if t, ok := tierFor(revenue); ok {
		b.Tier = t.Name
		b.RevenuePoints = t.Increment
	}

	raw := b.EventPoints + b.RevenuePoints
	b.ConversionValue = clamp(raw)
	b.Clamped = raw != b.ConversionValue
	return b
}

// EventValue returns the weight of name and whether it is recognized.
func EventValue(name string) (int, bool) {
	v, ok := eventValues[name]
	return v, ok
}

// RevenueIncrement returns the points revenue adds on its own.
func RevenueIncrement(revenue float64) int {
	if t, ok := tierFor(revenue); ok {
		return t.Increment
	}
	return 0
}

// EventValues returns a copy of the event weight table.
func EventValues() map[string]int {
	out := make(map[string]int, len(eventValues))
	for k, v := range eventValues {
		out[k] = v
	}
	return out
}

// EventNames returns the recognized event names ordered by weight, then name.
func EventNames() []string {
	names := make([]string, 0, len(eventValues))
	for k := range eventValues {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		vi, vj := eventValues[names[i]], eventValues[names[j]]
		if vi != vj {
			return vi < vj
		}
		return names[i] < names[j]
	})
	return names
}

// Tiers returns a copy of the revenue tier table in match order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func tierFor(revenue float64) (Tier, bool) {
	// NaN fails this comparison too.
	if !(revenue > 0) {
		return Tier{}, false
	}
	for _, t := range tiers {
		if revenue < t.Max {
			return t, true
		}
	}
	return tiers[len(tiers)-1], true
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > MaxConversionValue:
		return MaxConversionValue
	default:
		return v
	}
}
