package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/replicate/rsmq/version"
)

// Tracer fetches a tracer named "rsmq/<service>/<component>".
func Tracer(service string, component string, opts ...trace.TracerOption) trace.Tracer {
	name := fmt.Sprintf("rsmq/%s/%s", service, component)
	opts = append(opts, trace.WithInstrumentationVersion(version.Version()))
	return otel.Tracer(name, opts...)
}

func configureTracerProvider() {
	tp, err := CreateTracerProvider(context.Background())
	if err != nil {
		logger.Warn("failed to create tracer provider", zap.Error(err))
		return
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// CreateTracerProvider returns a tracer provider which batches spans to the
// OTLP/HTTP endpoint configured by the standard OTEL_* environment variables.
func CreateTracerProvider(ctx context.Context, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	exp, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trace exporter: %w", err)
	}

	opts = append(
		opts,
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(DefaultResource()),
	)
	return sdktrace.NewTracerProvider(opts...), nil
}
