// Package logger provides the structured logger used across every bounded
// context. It wraps zap behind a small interface so call sites depend on a
// handful of leveled methods rather than on zap directly.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Field is a structured key-value pair. Passed as a flat ...any list of
// alternating key/value at call sites, mirroring the keyvals convention used
// throughout the rest of the codebase.
type Field = zap.Field

// LoggerInterface is the logging contract every component depends on.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
	With(keyvals ...any) LoggerInterface
}

// Logger is the concrete zap-backed LoggerInterface implementation.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger writing JSON to w at the given level, tagged with a
// service name and any fixed base fields.
func New(w io.Writer, level Level, service string, base []Field) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		level.zapLevel(),
	)

	fields := append([]Field{zap.String("service", service)}, base...)
	z := zap.New(core).With(fields...)
	return &Logger{z: z}
}

func toFields(keyvals []any) []Field {
	fields := make([]Field, 0, len(keyvals)/2+1)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	return fields
}

func (l *Logger) Debug(_ context.Context, msg string, keyvals ...any) {
	l.z.Debug(msg, toFields(keyvals)...)
}

func (l *Logger) Info(_ context.Context, msg string, keyvals ...any) {
	l.z.Info(msg, toFields(keyvals)...)
}

func (l *Logger) Warn(_ context.Context, msg string, keyvals ...any) {
	l.z.Warn(msg, toFields(keyvals)...)
}

func (l *Logger) Error(_ context.Context, msg string, keyvals ...any) {
	l.z.Error(msg, toFields(keyvals)...)
}

// With returns a child logger carrying additional fixed fields.
func (l *Logger) With(keyvals ...any) LoggerInterface {
	return &Logger{z: l.z.With(toFields(keyvals)...)}
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}
