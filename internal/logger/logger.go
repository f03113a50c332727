// Package logger configures the process-wide structured JSON logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a JSON logger writing one object per line to w.
// Timestamps are emitted under "ts" in RFC3339Nano, rendered in loc.
func New(w io.Writer, level string, loc *time.Location) zerolog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFieldName = "ts"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = func() time.Time { return time.Now().In(loc) }

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Init builds a stdout logger and installs it as the global zerolog logger.
func Init(level string, loc *time.Location) zerolog.Logger {
	l := New(os.Stdout, level, loc)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

// LoadLocation resolves name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
