package logrouter

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blueenergy/strategy-supervisor/internal/logstream"
)

// zapCore adapts a Router to zapcore.Core so any zap.Logger — the
// adapter's own logger, or the wrapped engine's logger — can be built on
// top of a worker's Router. The attribution filter must be attached to
// every sink the engine logger uses, satisfied by making the Router
// itself the zap core every log statement funnels through before
// fan-out.
type zapCore struct {
	zapcore.LevelEnabler
	router *Router
	fields []zapcore.Field
}

// NewZapCore returns a zapcore.Core backed by router, at the given
// minimum level.
func NewZapCore(router *Router, level zapcore.Level) zapcore.Core {
	return &zapCore{LevelEnabler: zap.NewAtomicLevelAt(level), router: router}
}

// NewLogger builds a *zap.Logger whose every record is routed through
// router's attribution filter and sinks.
func NewLogger(router *Router, level zapcore.Level) *zap.Logger {
	return zap.New(NewZapCore(router, level))
}

func (c *zapCore) With(fields []zapcore.Field) zapcore.Core {
	return &zapCore{LevelEnabler: c.LevelEnabler, router: c.router, fields: append(append([]zapcore.Field{}, c.fields...), fields...)}
}

func (c *zapCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}

	return checked
}

func (c *zapCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field{}, c.fields...), fields...)

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range all {
		f.AddTo(enc)
	}

	record := logstream.Record{
		Timestamp:  entry.Time,
		Level:      entry.Level.String(),
		Message:    entry.Message,
		LoggerName: entry.LoggerName,
		Module:     stringField(enc, "module"),
		FuncName:   stringField(enc, "func"),
		LineNo:     entry.Caller.Line,
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	c.router.Route(record)

	return nil
}

func (c *zapCore) Sync() error { return nil }

func stringField(enc *zapcore.MapObjectEncoder, key string) string {
	if v, ok := enc.Fields[key].(string); ok {
		return v
	}

	return ""
}
