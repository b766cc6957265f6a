// Package errors reports unexpected errors to Sentry.
package errors

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/replicate/rsmq/logging"
	"github.com/replicate/rsmq/version"
)

var logger = logging.New("errors")

// Init configures the Sentry client from SENTRY_DSN. Without a DSN, errors
// passed to sentry.CaptureException are silently dropped.
func Init() {
	sentryDSN := os.Getenv("SENTRY_DSN")
	if sentryDSN == "" {
		logger.Debug("SENTRY_DSN not set: skipping Sentry initialization")
		return
	}

	logger.Info("Initializing Sentry")
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              sentryDSN,
		AttachStacktrace: true,
		Release:          version.Version(),
		Environment:      os.Getenv("SENTRY_ENVIRONMENT"),
	})
	if err != nil {
		logger.Sugar().Warnf("Failed to initialize Sentry client: %v", err)
	}
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	if !sentry.Flush(timeout) {
		logger.Warn("timed out flushing Sentry events")
	}
}
