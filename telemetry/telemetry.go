// Package telemetry configures OpenTelemetry tracing for rsmq.
//
// Traces are exported over OTLP/HTTP when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// Otherwise the global no-op tracer provider is left in place and spans cost
// next to nothing.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/replicate/rsmq/logging"
)

var logger = logging.New("telemetry")

func init() {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		logger.Debug("traces will not be exported via OTLP (OTEL_EXPORTER_OTLP_ENDPOINT is not set)")
		return
	}

	configureTracerProvider()
}

// Shutdown flushes and stops the tracer provider, if one was configured.
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*trace.TracerProvider); ok && tp != nil {
		return tp.Shutdown(ctx)
	}
	return nil
}
