package telemetry

import (
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	otel.SetLogger(logr.New(&zapSink{logger: logger.Named("otel")}))
}

// zapSink routes the SDK's internal logr logging to zap.
type zapSink struct {
	logger *zap.Logger
}

func (z *zapSink) Init(info logr.RuntimeInfo) {
	// +1 for this sink, +1 for opentelemetry-go's internal_logging.go
	z.logger = z.logger.WithOptions(zap.AddCallerSkip(info.CallDepth + 2))
}

func (z *zapSink) Enabled(level int) bool {
	return z.logger.Core().Enabled(levelFor(level))
}

func (z *zapSink) Info(level int, msg string, keysAndValues ...any) {
	z.logger.Sugar().Logw(levelFor(level), msg, keysAndValues...)
}

func (z *zapSink) Error(err error, msg string, keysAndValues ...any) {
	z.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func (z *zapSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &zapSink{logger: z.logger.Sugar().With(keysAndValues...).Desugar()}
}

func (z *zapSink) WithName(name string) logr.LogSink {
	return &zapSink{logger: z.logger.Named(name)}
}

// levelFor maps opentelemetry-go verbosity (0 warn, 1-4 info, 5+ debug) to
// zap levels.
func levelFor(level int) zapcore.Level {
	switch {
	case level <= 1:
		return zapcore.WarnLevel
	case level <= 4:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
