/*
Package toolbox – logging interface.

Table logs every request it sends. The default implementations are backed by zap.
*/
package toolbox

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface callers may supply to Table.
// Each method receives a structured context map (may be nil).
type Logger interface {
	Trace(message string, ctx map[string]any)
	Info(message string, ctx map[string]any)
	Error(message string, ctx map[string]any)
	Data(message string, ctx map[string]any)
}

// ZapLogger adapts a *zap.Logger. Trace and Data are written at debug level.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z. A nil z yields a no-op logger.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

func (l *ZapLogger) Trace(msg string, ctx map[string]any) {
	l.z.Debug(msg, append(zapFields(ctx), zap.String("level", "trace"))...)
}

func (l *ZapLogger) Data(msg string, ctx map[string]any) {
	l.z.Debug(msg, append(zapFields(ctx), zap.String("level", "data"))...)
}

func (l *ZapLogger) Info(msg string, ctx map[string]any)  { l.z.Info(msg, zapFields(ctx)...) }
func (l *ZapLogger) Error(msg string, ctx map[string]any) { l.z.Error(msg, zapFields(ctx)...) }

// Zap exposes the wrapped logger.
func (l *ZapLogger) Zap() *zap.Logger { return l.z }

// zapFields turns a context map into fields with a stable order.
func zapFields(ctx map[string]any) []zap.Field {
	if len(ctx) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, ctx[k]))
	}
	return fields
}

// defaultLogger writes info and error lines only.
func defaultLogger() Logger {
	return newLevelLogger(zapcore.InfoLevel)
}

// verboseLogger additionally writes trace and data lines.
func verboseLogger() Logger {
	return newLevelLogger(zapcore.DebugLevel)
}

func newLevelLogger(level zapcore.Level) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		return NopLogger{}
	}
	return NewZapLogger(z.Named("toolbox"))
}

// FuncLogger wraps a plain function: func(level, message string, ctx map[string]any).
type FuncLogger struct {
	Fn func(level, message string, ctx map[string]any)
}

func (f FuncLogger) Trace(msg string, ctx map[string]any) { f.Fn("trace", msg, ctx) }
func (f FuncLogger) Data(msg string, ctx map[string]any)  { f.Fn("data", msg, ctx) }
func (f FuncLogger) Info(msg string, ctx map[string]any)  { f.Fn("info", msg, ctx) }
func (f FuncLogger) Error(msg string, ctx map[string]any) { f.Fn("error", msg, ctx) }

// NopLogger silently discards everything.
type NopLogger struct{}

func (NopLogger) Trace(string, map[string]any) {}
func (NopLogger) Data(string, map[string]any)  {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}

func logTrace(l Logger, msg string, ctx map[string]any) { l.Trace(msg, ctx) }
func logData(l Logger, msg string, ctx map[string]any)  { l.Data(msg, ctx) }
func logInfo(l Logger, msg string, ctx map[string]any)  { l.Info(msg, ctx) }
func logError(l Logger, msg string, ctx map[string]any) { l.Error(msg, ctx) }
