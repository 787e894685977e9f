// Package logging configures runtime JSONL logging output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger rooted at the resolved state path. When the
// state directory is not writable (read-only device rootfs) the logger
// falls back to stderr instead of failing the process.
func New(level slog.Level) Runtime {
	path, err := resolveLogPath()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0o700)
	}
	if err != nil {
		return stderrRuntime(level)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return stderrRuntime(level)
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return Runtime{Logger: slog.New(h), Path: path, closer: f}
}

// ParseLevel maps a config level string onto a slog level, defaulting to
// Info for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func stderrRuntime(level slog.Level) Runtime {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return Runtime{Logger: slog.New(h)}
}

// resolveLogPath selects XDG_STATE_HOME when available, otherwise
// /var/log on the device image.
func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "updatershell", "log.jsonl"), nil
	}
	return filepath.Join("/var", "log", "updatershell", "log.jsonl"), nil
}
