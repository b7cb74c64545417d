package observe

import (
	"context"

	"go.uber.org/zap"
)

// zapLogger adapts a *zap.Logger to Logger for applications that already
// standardise on zap.
type zapLogger struct{ l *zap.Logger }

// NewZapLogger wraps l. A nil l yields a no-op logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return NopLogger()
	}
	return zapLogger{l: l}
}

func (z zapLogger) Info(_ context.Context, msg string, f ...Field)  { z.l.Info(msg, zf(f)...) }
func (z zapLogger) Warn(_ context.Context, msg string, f ...Field)  { z.l.Warn(msg, zf(f)...) }
func (z zapLogger) Error(_ context.Context, msg string, f ...Field) { z.l.Error(msg, zf(f)...) }
func (z zapLogger) Debug(_ context.Context, msg string, f ...Field) { z.l.Debug(msg, zf(f)...) }

func (z zapLogger) With(f ...Field) Logger {
	return zapLogger{l: z.l.With(zf(f)...)}
}

func zf(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, redact(f)))
	}
	return out
}
