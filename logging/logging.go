// Package logging provides the zap loggers used throughout rsmq.
//
// Output is JSON on stdout unless LOG_FORMAT=development, in which case it is
// colored console output on stderr. LOG_LEVEL overrides the default level
// (info in production, debug in development).
package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseConfig = NewConfig()
	baseLogger = zap.Must(baseConfig.Build())
)

type contextKey int

const (
	contextFieldsKey contextKey = iota
)

func NewConfig() zap.Config {
	var config zap.Config
	if os.Getenv("LOG_FORMAT") == "development" {
		config = newDevelopmentConfig()
	} else {
		config = newProductionConfig()
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if strings.EqualFold(level, "warning") {
			level = "warn"
		}
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			config.Level = lvl
		}
	}

	return config
}

func newDevelopmentConfig() zap.Config {
	encoderConfig := newEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Development:       true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stderr"},
	}
}

func newProductionConfig() zap.Config {
	return zap.Config{
		Level: zap.NewAtomicLevelAt(zap.InfoLevel),
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:      "json",
		EncoderConfig: newEncoderConfig(),
		OutputPaths:   []string{"stdout"},
	}
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New returns a logger named after the package or component using it.
func New(name string) *zap.Logger {
	return baseLogger.Named(name)
}

// SetLevel changes the level of every logger returned by New.
func SetLevel(level zapcore.Level) {
	baseConfig.Level.SetLevel(level)
}

// Sync flushes buffered log entries. Call it before the process exits.
func Sync() error {
	return baseLogger.Sync()
}

func GetFields(ctx context.Context) []zap.Field {
	f, ok := ctx.Value(contextFieldsKey).([]zap.Field)
	if !ok {
		return []zap.Field{}
	}
	return f
}

// AddFields returns a context carrying fields in addition to any already
// present. Loggers built with GetFields(ctx) include them on every entry.
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := GetFields(ctx)
	f := make([]zap.Field, 0, len(existing)+len(fields))
	f = append(f, existing...)
	f = append(f, fields...)
	return context.WithValue(ctx, contextFieldsKey, f)
}
