// Package logging provides the structured logger shared by every wanctl
// binary: one zerolog instance per process, child loggers per component.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is the closed set of levels a daemon can be configured with.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the wire shape of the log stream.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config configures a root Logger.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
}

// New builds a root zerolog.Logger with a timestamp field and the
// requested level/format. Output defaults to stdout.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var w io.Writer = out
	if cfg.Format == FormatText {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: false}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()

	switch cfg.Level {
	case LevelDebug:
		logger = logger.Level(zerolog.DebugLevel)
	case LevelWarn:
		logger = logger.Level(zerolog.WarnLevel)
	case LevelError:
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}

	return logger
}

// Component returns a child logger tagged with the given component name,
// the convention every package in this module follows when it needs to log.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// WAN returns a child logger additionally tagged with a wan_name field.
func WAN(base zerolog.Logger, wanName string) zerolog.Logger {
	return base.With().Str("wan_name", wanName).Logger()
}
