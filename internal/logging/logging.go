// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options select where log events go.
type Options struct {
	// File receives JSON log lines. Empty writes to Console.
	File string

	// Level is a zerolog level name.
	Level string

	// Console is used when File is empty. Defaults to stderr.
	Console io.Writer
}

// Setup installs the global logger and returns it together with a closer for
// the log file. The dashboard owns the terminal, so it always logs to a file.
func Setup(opts Options) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		out     io.Writer
		closeFn = func() error { return nil }
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return zerolog.Nop(), nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	} else {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger, closeFn, nil
}

// DefaultFile is where the dashboard logs when no file is configured.
func DefaultFile() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pktdash", "pktdash.log")
	}
	return "pktdash.log"
}
