// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// statusFadeDelay is how long a log record stays in the status row.
const statusFadeDelay = 5 * time.Second

// logRecordMsg carries a log record into the model.
type logRecordMsg struct {
	summary string
	level   slog.Level
}

// logFadeMsg clears the status row unless a newer record replaced it.
type logFadeMsg struct {
	sequence uint64
}

// LogHandler is a slog.Handler that shows records in the status row
// of a running program. Records arriving before SetProgram are dropped.
// Handlers derived through WithAttrs and WithGroup share the program.
type LogHandler struct {
	level   slog.Leveler
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	groups  []string
}

// NewLogHandler returns a handler for records at or above level.
func NewLogHandler(level slog.Leveler) *LogHandler {
	return &LogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram starts delivery to program.
func (h *LogHandler) SetProgram(program *tea.Program) {
	h.program.Store(program)
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}
	program.Send(logRecordMsg{summary: h.summarize(record), level: record.Level})
	return nil
}

// summarize formats a record as "message (key=value, ...)".
func (h *LogHandler) summarize(record slog.Record) string {
	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}

	var attrs []string
	for _, attr := range h.attrs {
		attrs = append(attrs, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})
	if len(attrs) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(attrs, ", ") + ")"
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{
		level:   h.level,
		program: h.program,
		attrs:   append(slices.Clone(h.attrs), attrs...),
		groups:  slices.Clone(h.groups),
	}
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &LogHandler{
		level:   h.level,
		program: h.program,
		attrs:   slices.Clone(h.attrs),
		groups:  append(slices.Clone(h.groups), name),
	}
}
