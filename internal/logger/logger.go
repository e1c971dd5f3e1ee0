// Package logger configures the zerolog logger shared by all components.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, encoding and destination of log output.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stderr, stdout or a file path
}

// New builds a logger from cfg. Logs default to stderr so they never mix
// with the conversation written to stdout.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
		}
		level = lvl
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("could not open log file: %w", err)
		}
		out = f
	}

	return NewWithWriter(out, cfg.Format, level), nil
}

// NewWithWriter builds a logger on an explicit writer.
func NewWithWriter(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "console" || format == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
