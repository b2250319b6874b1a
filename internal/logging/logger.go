// Package logging configures runtime JSONL logging output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/guidov/intel-speech-to-text/internal/config"
)

// Runtime bundles the configured logger and its file sink lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	// Warning is set when the configured file sink could not be prepared
	// and logging degraded to stderr only.
	Warning string

	closer io.Closer
}

// Close flushes and closes the rotating file sink, if one is open.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger writing to stderr, teed into a rotating log file
// when one is configured.
//
// A log file that cannot be prepared is never fatal: the runtime degrades to
// stderr-only and records a warning for the caller to log.
func New(cfg config.LogConfig) Runtime {
	rt := Runtime{}

	var sink io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			rt.Warning = fmt.Sprintf("cannot create log directory for %q: %v; logging to stderr only", cfg.File, err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
			}
			sink = io.MultiWriter(os.Stderr, rotator)
			rt.Path = cfg.File
			rt.closer = rotator
		}
	}

	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelInfo})
	rt.Logger = slog.New(handler)
	return rt
}
