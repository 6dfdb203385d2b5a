package errors

import (
	"fmt"
	"testing"
)

func TestFastPathNoTelemetry(t *testing.T) {
	t.Parallel()

	// Create an error without a reporter installed - should use fast path
	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.GetComponent() != "unknown" {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestBuilderExplicitFields(t *testing.T) {
	t.Parallel()

	ee := Newf("parse page %d: %s", 3, "bad dict").
		Component("pdf").
		Category(CategoryDocumentParse).
		Priority(PriorityHigh).
		Context("page", 3).
		Build()

	if ee.GetComponent() != "pdf" {
		t.Errorf("Expected component 'pdf', got '%s'", ee.GetComponent())
	}
	if ee.Category != CategoryDocumentParse {
		t.Errorf("Expected category 'document-parse', got '%s'", ee.Category)
	}
	if ee.GetPriority() != PriorityHigh {
		t.Errorf("Expected priority 'high', got '%s'", ee.GetPriority())
	}
	if got := ee.GetContext()["page"]; got != 3 {
		t.Errorf("Expected page context 3, got %v", got)
	}
}

func TestInvalidPriorityFallsBack(t *testing.T) {
	t.Parallel()

	ee := Newf("boom").Priority("urgent-ish").Build()
	if ee.GetPriority() != PriorityMedium {
		t.Errorf("Expected invalid priority to fall back to medium, got '%s'", ee.GetPriority())
	}
}

func TestContextCopyIsIsolated(t *testing.T) {
	t.Parallel()

	ee := Newf("boom").Context("key", "value").Build()
	ctx := ee.GetContext()
	ctx["key"] = "mutated"

	if ee.GetContext()["key"] != "value" {
		t.Error("GetContext must return a copy, not the underlying map")
	}
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	wrapped := New(fmt.Errorf("outer: %w", sentinel)).Category(CategoryFileIO).Build()

	if !Is(wrapped, sentinel) {
		t.Error("Is should find the sentinel through the enhanced wrapper")
	}

	var ee *EnhancedError
	if !As(wrapped, &ee) {
		t.Error("As should recover the EnhancedError")
	}
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	ee := Newf("subject has no mapping").Category(CategoryNotFound).Build()

	if !IsCategory(ee, CategoryNotFound) {
		t.Error("IsCategory should match the assigned category")
	}
	if IsCategory(ee, CategoryDatabase) {
		t.Error("IsCategory should not match a different category")
	}
	if !IsNotFound(ee) {
		t.Error("IsNotFound should be true for CategoryNotFound")
	}

	wrapped := fmt.Errorf("during convert: %w", ee)
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through fmt.Errorf wrapping")
	}
}

func TestDetectCategoryHeuristics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		msg       string
		component string
		want      ErrorCategory
	}{
		{"could not locate xref table", "", CategoryDocumentParse},
		{"layer_order holds 2 entries, want 3", "", CategoryIconConfig},
		{"config gear-默认 not found", "", CategoryNotFound},
		{"validation failed: circle_border_width negative", "", CategoryValidation},
		{"something odd", "mapping", CategoryMappingTable},
		{"something odd", "render", CategoryRender},
		{"something odd", "", CategoryGeneric},
	}

	for _, tc := range cases {
		got := detectCategory(NewStd(tc.msg), tc.component)
		if got != tc.want {
			t.Errorf("detectCategory(%q, %q) = %s, want %s", tc.msg, tc.component, got, tc.want)
		}
	}
}

func TestCategorizedErrorWins(t *testing.T) {
	t.Parallel()

	err := testCategorized{}
	if got := detectCategory(err, "pdf"); got != CategoryImageLoad {
		t.Errorf("CategorizedError should take precedence, got %s", got)
	}
}

type testCategorized struct{}

func (testCategorized) Error() string                { return "png decode failed" }
func (testCategorized) ErrorCategory() ErrorCategory { return CategoryImageLoad }

func TestFileContextAnonymizes(t *testing.T) {
	t.Parallel()

	ee := FileError(NewStd("open failed"), "/data/uploads/floorplan.pdf", 3*1024*1024)

	ctx := ee.GetContext()
	if ctx["file_type"] != "absolute-path" {
		t.Errorf("Expected anonymized path type, got %v", ctx["file_type"])
	}
	if ctx["file_extension"] != "pdf" {
		t.Errorf("Expected extension 'pdf', got %v", ctx["file_extension"])
	}
	if ctx["file_size_category"] != "medium" {
		t.Errorf("Expected size category 'medium', got %v", ctx["file_size_category"])
	}
	for k := range ctx {
		if k == "file_path" {
			t.Error("raw file path must never enter error context")
		}
	}
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	ee := NotFoundError("icon config", "Camera X100")
	if !IsNotFound(ee) {
		t.Error("NotFoundError should produce CategoryNotFound")
	}
	if ee.Error() != `icon config "Camera X100" not found` {
		t.Errorf("unexpected message: %s", ee.Error())
	}
}

type recordingReporter struct {
	enabled bool
	seen    []*EnhancedError
}

func (r *recordingReporter) IsEnabled() bool              { return r.enabled }
func (r *recordingReporter) ReportError(ee *EnhancedError) { r.seen = append(r.seen, ee) }

func TestReporterReceivesBuiltErrors(t *testing.T) {
	// Not parallel: installs the global reporter.
	reporter := &recordingReporter{enabled: true}
	SetTelemetryReporter(reporter)
	defer SetTelemetryReporter(nil)

	Newf("boom").Component("convert").Category(CategoryRender).Build()

	if len(reporter.seen) != 1 {
		t.Fatalf("Expected 1 reported error, got %d", len(reporter.seen))
	}
	if reporter.seen[0].GetComponent() != "convert" {
		t.Errorf("Expected component 'convert', got '%s'", reporter.seen[0].GetComponent())
	}
}

func TestDisabledReporterSkipsDetection(t *testing.T) {
	// Not parallel: installs the global reporter.
	reporter := &recordingReporter{enabled: false}
	SetTelemetryReporter(reporter)
	defer SetTelemetryReporter(nil)

	ee := Newf("boom").Build()
	if len(reporter.seen) != 0 {
		t.Errorf("Disabled reporter must not receive errors, got %d", len(reporter.seen))
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("Fast path should default to generic, got %s", ee.Category)
	}
}
