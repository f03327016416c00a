// Package clog carries the ambient structured-logging stack every
// component in this module shares: a LevelTrace step for the
// high-frequency backpressure/stall diagnostics a deployment would
// normally filter out, and an Invariant call sited immediately before
// every panic that enforces one of spec.md §7's invariants, so a
// structured log captures the violation even if the panic is recovered
// upstream of the component that raised it.
//
// Grounded on _examples/sarchlab-zeonica/core/util.go's LevelTrace
// constant and Trace(msg, args...) helper.
package clog

import (
	"context"
	"log/slog"
)

// LevelTrace sits one step above Info, the way core/util.go's does.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs msg at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// Invariant logs msg at Error, for the caller to follow with a panic.
func Invariant(msg string, args ...any) {
	slog.Error(msg, args...)
}
