// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a structured logger writing to w at the given level.
// Unknown level strings fall back to info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewConsole returns a human-readable logger for CLI use.
func NewConsole(level string) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}
