// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging sets up structured logging for the cppgate CLI.
//
// Logs are for the operator and never part of a report: reports go to
// stdout, logs go to stderr and optionally to a dated JSON file, so
// redirecting stdout gives the same bytes at every log level.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Level: slog.LevelDebug})
//	defer logger.Close()
//	logger.Info("checking files", "count", 12)
//
// # Thread Safety
//
// Logger is safe for concurrent use.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultService names the log file and tags every record.
const DefaultService = "cppgate"

// ParseLevel parses a --log-level value: debug, info, warn (or warning)
// and error, in any case. ok is false for anything else, and the level
// is then Info.
func ParseLevel(s string) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Config configures a Logger. The zero value logs Info and above as text
// on stderr.
type Config struct {
	Level slog.Level

	// LogDir adds a JSON file "{Service}_{YYYY-MM-DD}.log" in this
	// directory. A leading ~ is expanded.
	LogDir string

	// Service tags every record. Default: DefaultService.
	Service string

	// JSON selects JSON on the console. The file is always JSON.
	JSON bool

	// Quiet drops console output.
	Quiet bool

	// Output replaces stderr as the console.
	Output io.Writer
}

// Logger is a slog.Logger that owns its log file.
type Logger struct {
	*slog.Logger

	file      *os.File
	closeOnce sync.Once
	closeErr  error
}

// New builds a Logger.
//
// Description:
//
//	Records go to the console (unless Quiet) and to the log file when
//	LogDir is set. A LogDir that cannot be created or opened is reported
//	once on the console and otherwise ignored; a run never fails because
//	of logging.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	service := cfg.Service
	if service == "" {
		service = DefaultService
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handlers []slog.Handler
	if !cfg.Quiet {
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		}
	}

	l := &Logger{}
	var fileErr error
	if cfg.LogDir != "" {
		l.file, fileErr = openLogFile(cfg.LogDir, service, time.Now())
		if fileErr == nil {
			handlers = append(handlers, slog.NewJSONHandler(l.file, opts))
		}
	}

	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.NewTextHandler(io.Discard, opts)
	case 1:
		h = handlers[0]
	default:
		h = teeHandler(handlers)
	}
	l.Logger = slog.New(h).With("service", service)

	if fileErr != nil {
		l.Warn("log file disabled", "dir", cfg.LogDir, "error", fileErr)
	}
	return l
}

// Slog returns the underlying slog.Logger for packages that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.Logger
}

// Close syncs and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		if l.file == nil {
			return
		}
		l.closeErr = errors.Join(l.file.Sync(), l.file.Close())
	})
	return l.closeErr
}

func openLogFile(dir, service string, now time.Time) (*os.File, error) {
	if rest, ok := strings.CutPrefix(dir, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", dir, err)
		}
		dir = filepath.Join(home, rest)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s_%s.log", service, now.Format(time.DateOnly))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
