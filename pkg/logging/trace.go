package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// traceOn gates per-region evaluation detail.
var traceOn atomic.Bool

// SetTrace turns trace output on or off.
func SetTrace(on bool) { traceOn.Store(on) }

// TraceEnabled reports whether trace output is on.
func TraceEnabled() bool { return traceOn.Load() }

// Trace logs msg at DEBUG on logger when trace output is on.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceOn.Load() {
		logger.Log(context.Background(), slog.LevelDebug, msg, args...)
	}
}

// TraceDefault is Trace on the default logger.
func TraceDefault(msg string, args ...any) {
	if traceOn.Load() {
		slog.Debug(msg, args...)
	}
}
