package telemetry

import (
	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func init() {
	otel.SetErrorHandler(newErrorHandler())
}

// errorHandler receives errors the OpenTelemetry SDK cannot return to a
// caller, such as failed span exports. They are logged and sent to Sentry
// tagged with component=otel.
type errorHandler struct {
	log     *zap.Logger
	capture func(error)
}

func newErrorHandler() *errorHandler {
	return &errorHandler{
		// +1 for Handle, +3 for opentelemetry-go's internal error handling code
		log: logger.Named("otel").WithOptions(zap.AddCallerSkip(4)),
		capture: func(err error) {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("component", "otel")
				sentry.CaptureException(err)
			})
		},
	}
}

func (h *errorHandler) Handle(err error) {
	if err == nil {
		return
	}
	h.log.Warn("opentelemetry error", zap.String("component", "otel"), zap.Error(err))
	h.capture(err)
}
