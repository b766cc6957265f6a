package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var captured []error
	h := &errorHandler{
		log:     zap.New(core),
		capture: func(err error) { captured = append(captured, err) },
	}

	h.Handle(nil)
	assert.Empty(t, logs.All())
	assert.Empty(t, captured)

	err := errors.New("export failed")
	h.Handle(err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "otel", entries[0].ContextMap()["component"])
	assert.Equal(t, "export failed", entries[0].ContextMap()["error"])
	assert.Equal(t, []error{err}, captured)
}
