// Command datasetctl extracts a dataset archive held in an object store,
// validates its images and labels, republishes every entry under the
// dataset prefix and reports on the result.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).cli().RunContext(ctx, os.Args); err != nil {
		log := logger.New(os.Stderr, "info")
		log.Error().Err(err).Str("code", string(errors.CodeOf(err))).Msg("datasetctl failed")
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.CodeOf(err) == errors.CodeInvalidConfig:
		return 2
	default:
		return 1
	}
}
