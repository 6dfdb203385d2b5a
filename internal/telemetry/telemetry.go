// Package telemetry provides opt-in error reporting through Sentry. Nothing
// is sent unless the operator explicitly enables reporting and supplies a
// DSN, and no document content or file names ever leave the process: only
// error category, component and sanitized context travel.
package telemetry

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/logging"
)

// contextKeyBlocklist names context keys that may carry user data. They are
// dropped before an event is built.
var contextKeyBlocklist = map[string]bool{
	"filename":      true,
	"original_name": true,
	"path":          true,
	"subject":       true,
	"label":         true,
}

// Reporter forwards enhanced errors to Sentry. It satisfies
// errors.TelemetryReporter so the error builder can hand errors over without
// importing this package.
type Reporter struct {
	enabled atomic.Bool
	log     *slog.Logger
}

var globalReporter atomic.Pointer[Reporter]

// Init configures error reporting. When telemetry is disabled or no DSN is
// set, Init returns a nil reporter and the process never talks to Sentry.
func Init(settings *conf.Settings) (*Reporter, error) {
	log := logging.ForService("telemetry")
	if log == nil {
		log = slog.Default().With("service", "telemetry")
	}

	t := settings.Realtime.Telemetry
	if !t.Enabled || t.DSN == "" {
		log.Info("error reporting disabled")
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              t.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		ServerName:       "", // never leak the hostname
		Release:          fmt.Sprintf("gearmap-go@%s", settings.Version),
	})
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	r := &Reporter{log: log}
	r.enabled.Store(true)
	globalReporter.Store(r)
	errors.SetTelemetryReporter(r)
	log.Info("error reporting enabled")
	return r, nil
}

// IsEnabled reports whether events are currently forwarded.
func (r *Reporter) IsEnabled() bool {
	return r != nil && r.enabled.Load()
}

// ReportError forwards one enhanced error. Context values whose keys might
// identify a document or subject are stripped.
func (r *Reporter) ReportError(ee *errors.EnhancedError) {
	if !r.IsEnabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		for k, v := range ee.GetContext() {
			if contextKeyBlocklist[k] {
				continue
			}
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(ee)
	})
}

// CaptureError reports an arbitrary error outside the enhanced-error flow.
func CaptureError(err error, component string) {
	r := globalReporter.Load()
	if !r.IsEnabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
}

// Flush drains pending events, called on shutdown. A nil or disabled
// reporter flushes instantly.
func Flush(timeout time.Duration) {
	r := globalReporter.Load()
	if !r.IsEnabled() {
		return
	}
	sentry.Flush(timeout)
}

// Shutdown disables reporting and detaches from the error builder.
func Shutdown(timeout time.Duration) {
	r := globalReporter.Load()
	if r == nil {
		return
	}
	Flush(timeout)
	r.enabled.Store(false)
	errors.SetTelemetryReporter(nil)
	globalReporter.Store(nil)
}
