package errors

import (
	"fmt"
	"testing"
)

// BenchmarkErrorCreationNoTelemetry tests error creation performance when telemetry is disabled
func BenchmarkErrorCreationNoTelemetry(b *testing.B) {
	SetTelemetryReporter(nil)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		err := fmt.Errorf("test error")
		_ = New(err).
			Component("test").
			Category(CategoryGeneric).
			Build()
	}
}

// BenchmarkErrorCreationNoTelemetryAutoDetect tests error creation with auto-detection when telemetry is disabled
func BenchmarkErrorCreationNoTelemetryAutoDetect(b *testing.B) {
	SetTelemetryReporter(nil)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		err := fmt.Errorf("test error")
		_ = New(err).Build() // Let it auto-detect component and category
	}
}

// BenchmarkErrorCreationWithContext tests error creation with context when telemetry is disabled
func BenchmarkErrorCreationWithContext(b *testing.B) {
	SetTelemetryReporter(nil)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		err := fmt.Errorf("test error")
		_ = New(err).
			Component("test").
			Category(CategoryGeneric).
			Context("operation", "test_op").
			Context("count", 42).
			Build()
	}
}

type noopReporter struct{}

func (noopReporter) IsEnabled() bool               { return true }
func (noopReporter) ReportError(ee *EnhancedError) { _ = ee.GetComponent() }

// BenchmarkErrorCreationWithTelemetry tests error creation when telemetry is enabled
func BenchmarkErrorCreationWithTelemetry(b *testing.B) {
	SetTelemetryReporter(noopReporter{})
	defer SetTelemetryReporter(nil)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		err := fmt.Errorf("conversion failed on page 3")
		_ = New(err).
			Component("convert").
			Category(CategoryRender).
			Context("page", 3).
			Build()
	}
}
