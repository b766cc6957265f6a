package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigureTracerProvider(t *testing.T) {
	// Usually only called from init when OTEL_EXPORTER_OTLP_ENDPOINT is set.
	configureTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	require.NoError(t, Shutdown(context.Background()))
}

func TestTracerName(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer("rsmq", "queue").Start(context.Background(), "queue.send")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "queue.send", spans[0].Name())
	assert.Equal(t, "rsmq/rsmq/queue", spans[0].InstrumentationScope().Name)
}

func TestDefaultResource(t *testing.T) {
	r := DefaultResource()
	require.NotNil(t, r)
	assert.Same(t, r, DefaultResource())
}
