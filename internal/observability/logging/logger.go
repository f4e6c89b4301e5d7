// Package logging provides the structured logging interface for the
// orchestration core, backed by zap with JSON/console encoding and
// optional file rotation.
package logging

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pixelforge/pixelforge/pkg/types"
)

// Logger defines the unified logging interface
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With adds fields to the logger context
	With(fields ...Field) Logger

	// WithContext adds request/user/trace ids from the context
	WithContext(ctx context.Context) Logger

	// Sync flushes buffered entries
	Sync() error
}

// Field represents a log field
type Field = zapcore.Field

// Config defines logger construction options
type Config struct {
	// Level (debug, info, warn, error)
	Level string

	// Format (json, console)
	Format string

	// Output (stdout, stderr, file)
	Output string

	// FilePath and rotation settings, used when Output is "file"
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Development enables colored console output
	Development bool
}

// ZapLogger wraps zap.Logger to implement Logger
type ZapLogger struct {
	logger *zap.Logger
}

// New creates a logger from the given configuration
func New(cfg Config) (*ZapLogger, error) {
	encoder := buildEncoder(cfg)
	level := parseLevel(cfg.Level)

	var sink zapcore.WriteSyncer
	switch cfg.Output {
	case "stderr":
		sink = zapcore.AddSync(os.Stderr)
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file output requires a file path")
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	default:
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, level)
	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return &ZapLogger{logger: logger}, nil
}

// NewDevelopment creates a console logger at debug level
func NewDevelopment() (*ZapLogger, error) {
	return New(Config{Level: "debug", Format: "console", Output: "stdout", Development: true})
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }

// With adds fields to the logger context
func (l *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{logger: l.logger.With(fields...)}
}

// WithContext adds request/user ids carried in the context
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	var fields []Field
	if id := types.RequestIDFrom(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := types.UserIDFrom(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func buildEncoder(cfg Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cfg.Format == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Field constructors re-exported for call-site brevity

// String creates a string field
func String(key, val string) Field { return zap.String(key, val) }

// Int creates an int field
func Int(key string, val int) Field { return zap.Int(key, val) }

// Int64 creates an int64 field
func Int64(key string, val int64) Field { return zap.Int64(key, val) }

// Float64 creates a float64 field
func Float64(key string, val float64) Field { return zap.Float64(key, val) }

// Bool creates a bool field
func Bool(key string, val bool) Field { return zap.Bool(key, val) }

// Error creates an error field
func Error(err error) Field { return zap.Error(err) }

// Any creates a field from any value
func Any(key string, val interface{}) Field { return zap.Any(key, val) }

// Strings creates a string slice field
func Strings(key string, val []string) Field { return zap.Strings(key, val) }

// NoopLogger is a logger that discards everything; used in tests
type NoopLogger struct{}

// NewNoopLogger creates a no-op logger
func NewNoopLogger() Logger { return &NoopLogger{} }

func (l *NoopLogger) Debug(msg string, fields ...Field)      {}
func (l *NoopLogger) Info(msg string, fields ...Field)       {}
func (l *NoopLogger) Warn(msg string, fields ...Field)       {}
func (l *NoopLogger) Error(msg string, fields ...Field)      {}
func (l *NoopLogger) With(fields ...Field) Logger            { return l }
func (l *NoopLogger) WithContext(ctx context.Context) Logger { return l }
func (l *NoopLogger) Sync() error                            { return nil }
