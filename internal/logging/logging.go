// Package logging sets up the process-wide structured logger, following the
// tint-based slog handler pattern used across the example fleet's CLI tools
// (controlplane-telemetry's cmd/telemetry-data/main.go).
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options configures the logger.
type Options struct {
	Verbose bool
	Writer  io.Writer // defaults to os.Stdout
}

// New builds a slog.Logger with a tint handler: human-readable, colorized
// (whether or not the writer is a terminal), leveled by Verbose.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
