// Package app runs a long-lived component until SIGINT or SIGTERM.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context) error

// Run calls run with a context cancelled on shutdown signals and returns a
// process exit code. After a signal the runner gets grace to return.
func Run(ctx context.Context, logger zerolog.Logger, grace time.Duration, run Runner) int {
	logger.Info().Msg("starting")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		select {
		case err := <-errCh:
			return exitCode(logger, err)
		case <-time.After(grace):
			logger.Error().Dur("grace", grace).Msg("shutdown timed out")
			return 1
		}
	case err := <-errCh:
		return exitCode(logger, err)
	}
}

func exitCode(logger zerolog.Logger, err error) int {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("failed")
		return 1
	}
	logger.Info().Msg("stopped")
	return 0
}
