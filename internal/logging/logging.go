// Package logging builds the service's structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

// Rotation settings of the optional log file.
const (
	rotateThresholdKB = 10 * 1024
	maxRolls          = 3
)

// Options selects the level, format and optional file sink of a logger.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a copy of every record with size-based
	// rotation.
	File string
}

// New returns a logger writing to stdout and, when opts.File is set, to a
// rotated log file. The returned close function releases the file sink.
func New(opts Options, stdout io.Writer) (*slog.Logger, func() error, error) {
	var lvl slog.Level
	if opts.Level != "" {
		if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}

	w := stdout
	closeFn := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		r, err := rotator.New(opts.File, rotateThresholdKB, false, maxRolls)
		if err != nil {
			return nil, nil, fmt.Errorf("create file rotator: %w", err)
		}
		w = io.MultiWriter(stdout, r)
		closeFn = r.Close
	}

	ho := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch opts.Format {
	case "", "text":
		h = slog.NewTextHandler(w, ho)
	case "json":
		h = slog.NewJSONHandler(w, ho)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(h), closeFn, nil
}
