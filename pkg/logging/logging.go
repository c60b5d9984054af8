// Package logging routes engine-side log output into the bridge's event
// stream so the host UI can show it without a second channel. EventCore is
// a zapcore.Core; tee it with a console core for local debugging, or use
// it alone when the host is the only consumer of logs.
package logging

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

// Emit receives one log event per entry written through the core.
type Emit func(ev wire.Event)

type eventCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	emit   Emit
}

// NewEventCore returns a zapcore.Core that forwards each log entry at or
// above enab as a wire log event through emit.
func NewEventCore(enab zapcore.LevelEnabler, emit Emit) zapcore.Core {
	return &eventCore{LevelEnabler: enab, emit: emit}
}

// NewLogger builds a zap logger whose output is delivered to the host as
// log events. The usual entry point for hosts that mirror engine logs in
// their own UI.
func NewLogger(enab zapcore.LevelEnabler, emit Emit) *zap.Logger {
	return zap.New(NewEventCore(enab, emit))
}

func (c *eventCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(clone.fields[:len(clone.fields):len(clone.fields)], fields...)
	return &clone
}

func (c *eventCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *eventCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	msg := ent.Message
	if extra := renderFields(c.fields, fields); extra != "" {
		msg += " " + extra
	}

	ev := wire.LogLine(ent.Level.String(), msg)
	ev.Time = &ent.Time
	if ent.LoggerName != "" {
		ev.Name = ent.LoggerName
	}
	c.emit(ev)
	return nil
}

func (c *eventCore) Sync() error { return nil }

// renderFields flattens structured fields into the message tail. The host
// side treats log events as display lines, not structured records, so a
// compact key=value form is enough.
func renderFields(base, extra []zapcore.Field) string {
	if len(base) == 0 && len(extra) == 0 {
		return ""
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range base {
		f.AddTo(enc)
	}
	for _, f := range extra {
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, enc.Fields[k]))
	}
	return strings.Join(parts, " ")
}
