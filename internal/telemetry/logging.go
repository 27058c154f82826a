// Package telemetry sets up the flight computer's structured logging. It
// is deliberately thin: every component receives a zerolog.Logger built
// here rather than reaching for a package-level global, so log context
// (component name, board id, ...) composes via With() at each call site.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. When pretty is true, output is written
// through zerolog's console writer (handy for a terminal during bench
// testing); otherwise it emits newline-delimited JSON suited to log
// shipping.
func New(pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the owning component's
// name, e.g. telemetry.Component(root, "switchboard.listener").
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
