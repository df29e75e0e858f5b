// Package logging builds the slog logger the command-line tools write diagnostics to.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Config selects the level and output format.
type Config struct {
	Level string // debug, info, warn, error
	JSON  bool
}

// New returns a logger writing to w (normally stderr, never the data stream).
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		l, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	opts := log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	}
	if cfg.JSON {
		opts.Formatter = log.JSONFormatter
	}

	return slog.New(log.NewWithOptions(w, opts)), nil
}
