package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/skanlab/internal/domain/protect"
	"github.com/okian/skanlab/internal/domain/scoring"
	"github.com/okian/skanlab/pkg/logger"
)

// progressEvery controls how often progress is logged.
const progressEvery = 1000

// Run executes a complete load run and returns its statistics. It fails
// with ErrMismatch when any server answer differs from the local scorer.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	seed := config.Seed
	if seed == 0 {
		seed = uint64(stats.StartTime.UnixNano())
	}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("seed", seed))

	client := newHTTPClient(strings.TrimRight(config.BaseURL, "/"), config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	// Step 2: Check the protected script gate
	n, err := checkProtected(ctx, client)
	if err != nil {
		return stats, err
	}
	stats.ScriptBytes = n

	// Step 3: Generate and submit simulations concurrently
	cases := generateCases(config.Requests, seed)
	stats.Generated = len(cases)
	if err := submit(ctx, client, config, cases, stats, log); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "load run finished",
		logger.Int64("submitted", stats.Submitted),
		logger.Int64("matched", stats.Matched),
		logger.Int64("mismatched", stats.Mismatched),
		logger.Int64("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()))

	if stats.Mismatched > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrMismatch, stats.Mismatched, stats.Submitted)
	}
	return stats, nil
}

func validate(c *Config) error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Requests < 0:
		return fmt.Errorf("%w: requests must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// checkProtected verifies the script is refused without a session and
// served, revealable, with one. It returns the revealed script length.
func checkProtected(ctx context.Context, client *HTTPClient) (int, error) {
	_, status, err := client.ProtectedScript(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtected, err)
	}
	if status != http.StatusUnauthorized {
		return 0, fmt.Errorf("%w: anonymous request got status %d", ErrProtected, status)
	}

	cookie, err := client.SessionCookie(ctx)
	if err != nil {
		return 0, err
	}
	payload, status, err := client.ProtectedScript(ctx, cookie)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtected, err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%w: session request got status %d", ErrProtected, status)
	}
	script, err := protect.Reveal(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtected, err)
	}
	if script == "" {
		return 0, fmt.Errorf("%w: empty script", ErrProtected)
	}
	return len(script), nil
}

// submit posts cases with at most config.Workers requests in flight.
// Transport failures are counted, not returned; only ctx ends the run early.
func submit(ctx context.Context, client *HTTPClient, config *Config, cases []Case, stats *Stats, log logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for i := range cases {
		c := cases[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := client.Simulate(gctx, c)
			done := atomic.AddInt64(&stats.Submitted, 1)
			if done%progressEvery == 0 {
				log.Info(gctx, "progress", logger.Int64("submitted", done), logger.Int("total", len(cases)))
			}
			if err != nil {
				atomic.AddInt64(&stats.Failed, 1)
				if config.Verbose {
					log.Warn(gctx, "simulate failed", logger.Error(err))
				}
				return nil
			}
			if want := scoring.Score(c.Events, c.Revenue); res.ConversionValue != want {
				atomic.AddInt64(&stats.Mismatched, 1)
				if config.Verbose {
					log.Warn(gctx, "conversion value mismatch",
						logger.Any("events", c.Events),
						logger.Float64("revenue", c.Revenue),
						logger.Int("got", res.ConversionValue),
						logger.Int("want", want))
				}
				return nil
			}
			atomic.AddInt64(&stats.Matched, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("submit simulations: %w", err)
	}
	return nil
}
