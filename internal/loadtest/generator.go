package loadtest

import (
	"math"
	"math/rand/v2"

	"github.com/okian/skanlab/internal/domain/scoring"
)

const (
	maxEventsPerCase = 8
	maxRevenue       = 250.0
	// One in unknownEventOdds draws is a name the scorer does not know.
	unknownEventOdds = 10
	// One in zeroRevenueOdds cases carries no revenue.
	zeroRevenueOdds = 5
)

var unknownEvents = []string{"level_up", "share", "ad_click"} //nolint:gochecknoglobals // fixed test vocabulary

// generateCases builds n random cases. The same seed yields the same cases.
func generateCases(n int, seed uint64) []Case {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	known := scoring.EventNames()

	cases := make([]Case, n)
	for i := range cases {
		count := rng.IntN(maxEventsPerCase + 1)
		events := make([]string, 0, count)
		for j := 0; j < count; j++ {
			if rng.IntN(unknownEventOdds) == 0 {
				events = append(events, unknownEvents[rng.IntN(len(unknownEvents))])
				continue
			}
			events = append(events, known[rng.IntN(len(known))])
		}

		revenue := 0.0
		if rng.IntN(zeroRevenueOdds) != 0 {
			// cents keep the JSON round trip exact
			revenue = math.Round(rng.Float64()*maxRevenue*100) / 100
		}
		cases[i] = Case{Events: events, Revenue: revenue}
	}
	return cases
}
