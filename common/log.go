package common

import (
	"context"
	"log/slog"
)

// logger is the package-level logger for the engine. It defaults to a no-op
// handler so the engine is silent unless the host application opts in via
// SetLogger.
var logger = slog.New(nopHandler{})

// SetLogger installs a custom slog.Logger for engine diagnostics.
// Passing nil restores the no-op default.
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		logger = slog.New(nopHandler{})
		return
	}
	logger = l
}

// Logger returns the currently installed engine logger.
//
// Returns:
//   - *slog.Logger: the active logger (never nil)
func Logger() *slog.Logger {
	return logger
}

// nopHandler is a slog.Handler that discards all records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
