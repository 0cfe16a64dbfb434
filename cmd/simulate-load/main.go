package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/skanlab/internal/loadtest"
	"github.com/okian/skanlab/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests = 10_000
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate-load",
		Usage: "Drive a running SKAN demo server and verify every conversion value",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:5000", Usage: "Base URL of the service"},
			&cli.IntFlag{Name: "requests", Value: defaultRequests, Usage: "Number of simulations to submit"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "Number of concurrent workers"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for the case generator (0 picks one)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log every failed or mismatched simulation"},
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			return ctx, logger.Init()
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}

			ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
			defer cancel()

			stats, err := loadtest.Run(ctx, &loadtest.Config{
				BaseURL:  cmd.String("url"),
				Requests: cmd.Int("requests"),
				Workers:  cmd.Int("workers"),
				Timeout:  cmd.Duration("timeout"),
				Seed:     cmd.Uint64("seed"),
				Verbose:  cmd.Bool("verbose"),
			})
			if werr := loadtest.WriteReport(os.Stdout, stats); werr != nil {
				logger.Get().Warn(ctx, "write report", logger.Error(werr))
			}
			return err
		},
	}
}
