package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logKeyT struct{}

var logKey logKeyT

var defaultLogger *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if os.Getenv("DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	if defaultLogger, err = cfg.Build(); err != nil {
		panic(err)
	}
}

// Logger returns the logger attached to ctx, or the process-wide logger.
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(logKey).(*zap.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a context whose logger carries the given fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, logKey, Logger(ctx).With(fields...))
}

// Fatal logs the message and exits with a non-zero status.
func Fatal(msg string, fields ...zap.Field) {
	defaultLogger.Fatal(msg, fields...)
}
