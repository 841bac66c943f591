package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/upb/llm-router-lab/internal/shared"
)

// Logger provides structured logging with context awareness.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field represents a structured log field.
type Field = zap.Field

// LogConfig selects the level and encoding of the process logger.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// NewLogger builds a production JSON logger, or a development console logger when
// Format is "console".
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// ZapLogger is the zap-backed Logger. It tags entries with the request and run ids
// found in the context.
type ZapLogger struct {
	base *zap.Logger
}

// NewContextLogger wraps base. A nil base discards everything.
func NewContextLogger(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{base: base}
}

func (l *ZapLogger) from(ctx context.Context) *zap.Logger {
	logger := l.base
	if id := shared.RequestID(ctx); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	if id := shared.RunID(ctx); id != "" {
		logger = logger.With(zap.String("run_id", id))
	}
	return logger
}

func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.from(ctx).Debug(msg, fields...)
}

func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.from(ctx).Info(msg, fields...)
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.from(ctx).Warn(msg, fields...)
}

func (l *ZapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.from(ctx).Error(msg, fields...)
}

// Zap exposes the underlying logger for components that take a *zap.Logger.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.base
}
