package loadtest

import (
	"fmt"
	"io"
)

// percentage is the share of part in total, 0 when total is 0.
func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// WriteReport prints a human-readable summary of stats to w.
func WriteReport(w io.Writer, stats *Stats) error {
	if stats == nil {
		return nil
	}
	rps := 0.0
	if secs := stats.Duration.Seconds(); secs > 0 {
		rps = float64(stats.Submitted) / secs
	}
	_, err := fmt.Fprintf(w, `Load run summary
  generated:     %d
  submitted:     %d
  matched:       %d (%.1f%%)
  mismatched:    %d
  failed:        %d
  script bytes:  %d
  duration:      %s
  throughput:    %.0f req/s
`,
		stats.Generated,
		stats.Submitted,
		stats.Matched, percentage(stats.Matched, stats.Submitted),
		stats.Mismatched,
		stats.Failed,
		stats.ScriptBytes,
		stats.Duration,
		rps,
	)
	return err
}
