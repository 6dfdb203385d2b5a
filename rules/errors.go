//go:build ruleguard

// Package gorules defines custom linter rules for this codebase, run through
// golangci-lint's ruleguard integration.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// EnhancedErrorsInPipeline flags fmt.Errorf in the conversion pipeline
// packages. Those packages report failures through the enhanced error
// builder so every error carries a component and category for the API's
// status mapping and for telemetry.
//
// Old pattern:
//
//	return fmt.Errorf("annotation %d unreadable: %w", i, err)
//
// Expected pattern:
//
//	return errors.New(err).
//	    Component("extract").
//	    Category(errors.CategoryExtraction).
//	    Build()
func EnhancedErrorsInPipeline(m dsl.Matcher) {
	m.Match(
		`fmt.Errorf($*_)`,
	).
		Where(m.File().PkgPath.Matches(`internal/(convert|extract|render|iconstore|mapping)$`)).
		Report("conversion pipeline packages build enhanced errors (internal/errors) instead of fmt.Errorf so failures carry a component and category")
}

// ErrorsIsOverTypeAssert flags type assertions on error values.
//
// Old pattern:
//
//	if _, ok := err.(*errors.EnhancedError); ok { ... }
//
// Expected pattern:
//
//	var ee *errors.EnhancedError
//	if errors.As(err, &ee) { ... }
//
// Type assertions miss wrapped errors; the pipeline wraps aggressively.
func ErrorsIsOverTypeAssert(m dsl.Matcher) {
	m.Match(
		`$_, $_ := $err.($typ)`,
		`$_, $_ = $err.($typ)`,
	).
		Where(m["err"].Type.Is("error")).
		Report("use errors.As (or errors.IsCategory for categories) instead of a type assertion; assertions miss wrapped errors")
}
