// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog loggers of the chotop binaries.
//
// Records go to stderr (text on a terminal, JSON otherwise) and, when a
// file is configured, to a size-rotated JSON log. The terminal UI
// replaces the stderr handler with its own so log lines never tear the
// alternate screen.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chotop-overlay/chotop/lib/config"
)

// ParseLevel maps a configuration level name to a slog level.
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
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// Options configures New.
type Options struct {
	// Level gates every handler. It may be a *slog.LevelVar so a
	// reload can change it in place.
	Level slog.Leveler

	// Console receives records for the operator. Nil means stderr,
	// formatted for a terminal when it is one.
	Console slog.Handler

	// DisableConsole drops console output entirely.
	DisableConsole bool

	// File, MaxSizeMB and MaxBackups configure the rotating log file.
	// An empty File disables it.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// OptionsFrom converts the log section of the daemon configuration.
func OptionsFrom(section config.LogConfig, level slog.Leveler) Options {
	return Options{
		Level:      level,
		File:       section.File,
		MaxSizeMB:  section.MaxSizeMB,
		MaxBackups: section.MaxBackups,
	}
}

// New returns a logger and a closer for its log file. The closer is
// never nil.
func New(options Options) (*slog.Logger, io.Closer, error) {
	level := options.Level
	if level == nil {
		level = slog.LevelInfo
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	var handlers Fanout
	if !options.DisableConsole {
		console := options.Console
		if console == nil {
			console = NewConsoleHandler(os.Stderr, handlerOptions)
		}
		handlers = append(handlers, console)
	}

	var closer io.Closer = nopCloser{}
	if options.File != "" {
		if err := os.MkdirAll(filepath.Dir(options.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   options.File,
			MaxSize:    options.MaxSizeMB,
			MaxBackups: options.MaxBackups,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotating, handlerOptions))
		closer = rotating
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(handlers), closer, nil
	}
}

// NewConsoleHandler returns a text handler when file is a terminal
// and a JSON handler otherwise.
func NewConsoleHandler(file *os.File, options *slog.HandlerOptions) slog.Handler {
	if term.IsTerminal(int(file.Fd())) {
		return slog.NewTextHandler(file, options)
	}
	return slog.NewJSONHandler(file, options)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Fanout sends each record to every handler enabled for its level.
type Fanout []slog.Handler

// Enabled reports whether any handler accepts level.
func (handlers Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler. Every handler sees the record even
// when an earlier one fails; the first error is returned.
func (handlers Fanout) Handle(ctx context.Context, record slog.Record) error {
	var first error
	for _, handler := range handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WithAttrs implements slog.Handler.
func (handlers Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(Fanout, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

// WithGroup implements slog.Handler.
func (handlers Fanout) WithGroup(name string) slog.Handler {
	derived := make(Fanout, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
