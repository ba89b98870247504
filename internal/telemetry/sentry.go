// Package telemetry provides opt-in error reporting to Sentry.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/via2coco/internal/buildinfo"
	"github.com/tphakala/via2coco/internal/conf"
	"github.com/tphakala/via2coco/internal/errors"
	"github.com/tphakala/via2coco/internal/logger"
)

// DefaultFlushTimeout bounds how long Flush waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// InitSentry initializes Sentry when telemetry is enabled and routes
// enhanced errors to it. It is a no-op otherwise.
func InitSentry(settings *conf.Settings, build *buildinfo.Context, log logger.Logger) error {
	if !settings.Telemetry.Enabled {
		return nil
	}
	if log == nil {
		log = logger.NewDiscard()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Telemetry.DSN,
		SampleRate: 1.0,
		Debug:      false,

		AttachStacktrace: false,
		Environment:      settings.Telemetry.Environment,
		ServerName:       "",
		Release:          build.Release(),

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentryInitialized.Store(true)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	log.Module("telemetry").Info("error reporting enabled",
		logger.String("environment", settings.Telemetry.Environment),
		logger.String("release", build.Release()))
	return nil
}

// IsInitialized reports whether Sentry was initialized.
func IsInitialized() bool {
	return sentryInitialized.Load()
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) {
	if sentryInitialized.Load() {
		sentry.Flush(timeout)
	}
}

// applyPrivacyFilters strips host and user data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
