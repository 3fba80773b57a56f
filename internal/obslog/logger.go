// Package obslog builds the shared zerolog logger used by every service.
package obslog

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger for the given service and env.
// In development it writes a human-readable console stream; otherwise
// it writes structured JSON to stderr.
func New(service, env string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if env == "development" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out zerolog.ConsoleWriter
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", service).Logger()
}
