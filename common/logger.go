package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger. Accessed atomically so the render goroutine,
// the loader goroutines and the CLI can all log without extra locking.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by every package in the engine.
// By default the engine produces no log output. Pass nil to restore the silent default.
//
// Log levels used:
//   - slog.LevelDebug: rebuild decisions, buffer writes, watcher events
//   - slog.LevelInfo: successful pipeline builds, shader reloads, project loads
//   - slog.LevelWarn: failed pipeline builds, duplicate uniform names, dropped messages
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the currently configured logger. Never nil.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
