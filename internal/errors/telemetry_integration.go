// Package errors - telemetry integration (optional)
package errors

import (
	"sync/atomic"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems.
// It is implemented by the telemetry package; keeping only the interface here
// avoids a circular dependency between the two packages.
type TelemetryReporter interface {
	ReportError(ee *EnhancedError)
	IsEnabled() bool
}

// Global telemetry reporter (nil when telemetry is disabled)
var globalTelemetryReporter atomic.Pointer[TelemetryReporter]

// hasActiveReporting is a fast-path flag checked on every Build call.
// When false, error construction skips component detection entirely.
var hasActiveReporting atomic.Bool

// SetTelemetryReporter sets the global telemetry reporter.
// Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	globalTelemetryReporter.Store(&reporter)
	hasActiveReporting.Store(reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter, or nil.
func GetTelemetryReporter() TelemetryReporter {
	ptr := globalTelemetryReporter.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	if !hasActiveReporting.Load() {
		return
	}

	ptr := globalTelemetryReporter.Load()
	if ptr == nil {
		return
	}

	reporter := *ptr
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}
