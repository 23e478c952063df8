// Package debuglog provides the REPL's diagnostic logger: a slog.Logger
// writing newline-delimited JSON into the XDG data directory, one file per
// process run.
package debuglog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Dir returns the XDG data directory debug logs are written under.
func Dir() string {
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, "chatrepl", "debug")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "chatrepl-debug")
	}
	return filepath.Join(home, ".local", "share", "chatrepl", "debug")
}

// Open creates a log file named for the current time (to the second,
// appending if one of that name already exists) and returns a slog.Logger
// writing to it as JSON, plus a closer the caller must run on exit.
func Open() (*slog.Logger, func() error, error) {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("debuglog: mkdir: %w", err)
	}

	name := fmt.Sprintf("%s.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("debuglog: open: %w", err)
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), f.Close, nil
}

// Noop returns a logger that discards everything, used when --debug is not
// set so a normal run never touches the debug log directory.
func Noop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
