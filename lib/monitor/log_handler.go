// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// noticeMsg delivers a log record to the model for display in the
// status bar.
type noticeMsg struct {
	Summary string
	Level   slog.Level
}

// noticeFadeMsg clears the status bar notice. Generation matches the
// notice it was scheduled for, so a newer notice is not cleared early.
type noticeFadeMsg struct {
	generation int
}

// noticeFadeDelay is how long a notice stays in the status bar.
const noticeFadeDelay = 5 * time.Second

// LogHandler is a slog.Handler that shows records in the monitor's
// status bar while the bubbletea program owns the terminal. Records
// below the configured level are dropped, as are records that arrive
// before SetProgram.
//
// Handlers derived through WithAttrs and WithGroup share the program
// reference, so one SetProgram call reaches all of them.
type LogHandler struct {
	level  slog.Level
	target *programTarget
	attrs  []slog.Attr
	group  string
}

type programTarget struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (target *programTarget) load() func(tea.Msg) {
	target.mu.Lock()
	defer target.mu.Unlock()
	return target.send
}

// NewLogHandler returns a handler for records at or above level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{level: level, target: &programTarget{}}
}

// SetProgram routes records to program. Safe to call from any
// goroutine.
func (handler *LogHandler) SetProgram(program *tea.Program) {
	handler.setSend(program.Send)
}

func (handler *LogHandler) setSend(send func(tea.Msg)) {
	handler.target.mu.Lock()
	handler.target.send = send
	handler.target.mu.Unlock()
}

// Enabled reports whether records at level are shown.
func (handler *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends it
// to the program.
func (handler *LogHandler) Handle(_ context.Context, record slog.Record) error {
	send := handler.target.load()
	if send == nil {
		return nil
	}

	var summary strings.Builder
	summary.WriteString(record.Message)
	first := true
	writeAttr := func(attr slog.Attr) bool {
		if first {
			summary.WriteString(" (")
			first = false
		} else {
			summary.WriteString(", ")
		}
		summary.WriteString(attr.Key)
		summary.WriteByte('=')
		summary.WriteString(attr.Value.String())
		return true
	}
	for _, attr := range handler.attrs {
		writeAttr(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		return writeAttr(handler.qualify(attr))
	})
	if !first {
		summary.WriteByte(')')
	}

	send(noticeMsg{Summary: summary.String(), Level: record.Level})
	return nil
}

// qualify prefixes attr's key with the handler's group.
func (handler *LogHandler) qualify(attr slog.Attr) slog.Attr {
	if handler.group != "" {
		attr.Key = handler.group + "." + attr.Key
	}
	return attr
}

// WithAttrs returns a handler that adds attrs to every record.
func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *handler
	derived.attrs = append([]slog.Attr(nil), handler.attrs...)
	for _, attr := range attrs {
		derived.attrs = append(derived.attrs, handler.qualify(attr))
	}
	return &derived
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (handler *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return handler
	}
	derived := *handler
	if derived.group != "" {
		derived.group += "." + name
	} else {
		derived.group = name
	}
	return &derived
}
