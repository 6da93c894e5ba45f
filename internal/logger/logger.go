// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger provides the colored slog handler and process log setup.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Err returns the standard attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// ParseLevel maps a config level name to a slog level. Unknown names are an
// error; an empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a logger writing to out with the given level.
func New(out io.Writer, level slog.Level, noColor bool) *slog.Logger {
	opts := DefaultOptions()
	opts.Level = level
	opts.NoColor = noColor
	if level <= slog.LevelDebug {
		opts.SrcFileMode = ShortFile
	}
	return slog.New(NewHandler(out, opts))
}

// Setup installs the default logger. With a non-empty path, records are
// appended to that file without color, which keeps a full-screen UI clean;
// otherwise they go to stderr. The returned closer releases the file.
func Setup(level slog.Level, path string) (io.Closer, error) {
	if path == "" {
		slog.SetDefault(New(os.Stderr, level, false))
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(New(f, level, true))
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
