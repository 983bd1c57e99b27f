// Package report forwards errors to Sentry. Without a DSN every call is a no-op.
package report

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"tourguide/pkg/version"
)

// SetupSentry initializes the Sentry client. An empty DSN disables reporting.
func SetupSentry(dsn, environment string) error {
	if dsn == "" {
		slog.Debug("Sentry disabled, no DSN configured")
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          "tourguide@" + version.Version,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	sentry.CaptureMessage("Tour guide started")
	return nil
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
