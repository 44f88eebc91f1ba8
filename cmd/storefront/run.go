package main

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan os.Signal
}

// run starts app, blocks until ctx is cancelled or app requests shutdown,
// and returns the process exit code.
func run(ctx context.Context, app runner, stderr io.Writer) int {
	logger := slog.New(slog.NewJSONHandler(stderr, nil))

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start application", slog.String("error", err.Error()))
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	if err := app.Stop(context.WithoutCancel(ctx)); err != nil {
		logger.Error("failed to stop application", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
