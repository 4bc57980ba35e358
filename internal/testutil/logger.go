// Package testutil provides shared testing utilities for the newsagent
// project: a quiet logger, a mock embedder, a scripted text generator and
// a disposable PostgreSQL container.
package testutil

import (
	"io"
	"log/slog"
)

// QuietLogger returns a logger that only emits warnings and above.
// Keeps test output readable while still surfacing real problems.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
