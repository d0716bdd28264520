// Package logging builds the process-wide structured logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/astropay/activityfeed/internal/config"
)

// New returns a zerolog.Logger configured for the given environment:
// a human-readable console writer in development, bare JSON otherwise.
func New(cfg *config.Config) zerolog.Logger {
	var out zerolog.ConsoleWriter
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Component returns a sub-logger tagged with the given component name,
// following the teacher's convention of attaching a "component" field
// rather than creating a distinct logger type per package.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
