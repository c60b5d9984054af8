// Package diag defines the captured-failure record and the crash-sink
// contract. A Diagnostic is a side-channel report, not an error return:
// it is routed to a sink (crash reporter, log, test collector) and never
// surfaces to the boundary caller. Sinks wired into the bridge must never
// block it; wrap slow sinks in AsyncSink.
package diag

import (
	"time"

	"go.uber.org/zap"
)

// Diagnostic is a captured failure: what broke, where, and with what stack.
// Repeats counts coalesced occurrences folded into this record beyond the
// first.
type Diagnostic struct {
	Component string
	Message   string
	Stack     string
	Repeats   int
	Time      time.Time
}

// Sink receives Diagnostic records. Implementations are expected to be fast
// or to buffer internally; Report must not panic.
type Sink interface {
	Report(d Diagnostic)
}

// NopSink discards all diagnostics.
type NopSink struct{}

// Report implements Sink.
func (NopSink) Report(Diagnostic) {}

// LogSink writes diagnostics to a zap logger at error level.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a LogSink backed by log.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

// Report implements Sink.
func (s *LogSink) Report(d Diagnostic) {
	fields := []zap.Field{
		zap.String("component", d.Component),
		zap.Time("at", d.Time),
	}
	if d.Repeats > 0 {
		fields = append(fields, zap.Int("repeats", d.Repeats))
	}
	if d.Stack != "" {
		fields = append(fields, zap.String("stack", d.Stack))
	}
	s.log.Error(d.Message, fields...)
}

// Funnel adapts a plain function to the Sink interface.
type Funnel func(Diagnostic)

// Report implements Sink.
func (f Funnel) Report(d Diagnostic) { f(d) }
