// Package convert orchestrates the conversion of a bid map document:
// annotation extraction, mapping resolution, icon rendering and assembly of
// the output document.
package convert

import (
	"context"
	"log/slog"
	"time"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/extract"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/logging"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/observability"
	"github.com/gearmap/gearmap-go/internal/observability/metrics"
	"github.com/gearmap/gearmap-go/internal/pdf"
	"github.com/gearmap/gearmap-go/internal/render"
)

// Engine runs conversions. It never mutates store state, every render works
// on a snapshot taken the moment the annotation is processed.
type Engine struct {
	store    iconstore.Interface
	table    *mapping.Table
	renderer *render.Renderer
	metrics  *observability.Metrics
	log      *slog.Logger
}

// New creates a conversion engine. Metrics may be nil, conversions then run
// unobserved.
func New(store iconstore.Interface, table *mapping.Table, renderer *render.Renderer, obs *observability.Metrics) *Engine {
	log := logging.ForService("convert")
	if log == nil {
		log = slog.Default().With("service", "convert")
	}
	return &Engine{
		store:    store,
		table:    table,
		renderer: renderer,
		metrics:  obs,
		log:      log,
	}
}

// Convert translates every mapped markup annotation of doc into the target
// vocabulary's icon and returns the rewritten document with its statistics.
// Annotations are processed sequentially in extraction order, which keeps
// the skipped subject list deterministic.
//
// A document that cannot be parsed and an unsupported direction abort the
// job with no partial result. Unmapped subjects, missing target
// configurations and per-annotation render failures degrade the annotation
// to skipped. A stored configuration that violates its own invariants aborts
// the job, that is corruption, not a mapping gap.
func (e *Engine) Convert(ctx context.Context, doc []byte, originalName string, direction mapping.Direction) ([]byte, *Result, error) {
	start := time.Now()

	if !e.table.Supported(direction) {
		return nil, nil, errors.Newf("direction %q is not supported", direction).
			Component("convert").
			Category(errors.CategoryValidation).
			Context("direction", string(direction)).
			Build()
	}

	reader, err := pdf.NewReaderFromBytes(doc)
	if err != nil {
		e.recordConversion(direction, "error", start)
		return nil, nil, errors.New(err).
			Component("convert").
			Category(errors.CategoryDocumentParse).
			Context("operation", "open_document").
			Build()
	}

	annotations, err := extract.Extract(reader)
	if err != nil {
		e.recordConversion(direction, "error", start)
		return nil, nil, err
	}

	result := &Result{
		OriginalName:  originalName,
		ConvertedName: convertedName(originalName, direction),
		Direction:     string(direction),
		Processed:     len(annotations),
	}

	var placed []placedIcon
	for i := range annotations {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.New(err).
				Component("convert").
				Category(errors.CategoryCancellation).
				Context("operation", "convert_document").
				Build()
		}

		a := &annotations[i]
		if a.Subject == "" {
			result.skipAnonymous()
			e.recordAnnotation(metrics.AnnotationSkippedNoSubject)
			continue
		}

		target, ok := e.table.Resolve(direction, a.Subject)
		if !ok {
			result.skipSubject(a.Subject)
			e.recordAnnotation(metrics.AnnotationSkippedUnmapped)
			continue
		}

		snapshot, release, err := e.store.Snapshot(target)
		if err != nil {
			if errors.IsNotFound(err) {
				// A mapping target with no renderable definition skips this
				// annotation only, same bucket as an unmapped subject.
				result.skipSubject(a.Subject)
				e.recordAnnotation(metrics.AnnotationSkippedNoConfig)
				continue
			}
			return nil, nil, err
		}

		icon, renderErr := e.renderIcon(snapshot, a.Label())
		release()
		if renderErr != nil {
			if errors.IsCategory(renderErr, errors.CategoryIconConfig) {
				// corrupt stored configuration, abort the whole job
				e.recordConversion(direction, "error", start)
				return nil, nil, renderErr
			}
			e.log.Warn("annotation render failed, skipping",
				"page", a.Page,
				"subject", a.Subject,
				"target", target,
				"error", renderErr)
			result.skipAnonymous()
			e.recordAnnotation(metrics.AnnotationSkippedRender)
			continue
		}

		if a.Ref.IsZero() {
			// inline annotation dictionary, there is no object to replace
			e.log.Warn("annotation has no indirect reference, skipping",
				"page", a.Page,
				"subject", a.Subject)
			result.skipAnonymous()
			e.recordAnnotation(metrics.AnnotationSkippedRender)
			continue
		}

		placed = append(placed, placedIcon{
			annotation: a,
			icon:       icon,
			target:     target,
		})
		result.Converted++
		e.recordAnnotation(metrics.AnnotationConverted)
	}

	out, err := assemble(reader, placed)
	if err != nil {
		e.recordConversion(direction, "error", start)
		return nil, nil, errors.New(err).
			Component("convert").
			Category(errors.CategoryDocumentWrite).
			Context("operation", "assemble_output").
			Build()
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	if result.Processed != result.Converted+result.Skipped {
		return nil, nil, errors.Newf("conversion accounting broken: processed %d, converted %d, skipped %d",
			result.Processed, result.Converted, result.Skipped).
			Component("convert").
			Category(errors.CategorySystem).
			Build()
	}

	e.recordConversion(direction, "success", start)
	e.log.Info("document converted",
		"direction", string(direction),
		"processed", result.Processed,
		"converted", result.Converted,
		"skipped", result.Skipped,
		"elapsed_ms", result.ProcessingTimeMs)
	return out, result, nil
}

// renderIcon renders one snapshot, timing the render when metrics are on.
func (e *Engine) renderIcon(snapshot iconstore.IconConfig, label string) (*render.Icon, error) {
	start := time.Now()
	icon, err := e.renderer.Render(snapshot, label)
	if e.metrics != nil {
		e.metrics.Conversion.RecordRenderDuration(time.Since(start).Seconds())
	}
	return icon, err
}

func (e *Engine) recordAnnotation(result string) {
	if e.metrics != nil {
		e.metrics.Conversion.RecordAnnotation(result)
	}
}

func (e *Engine) recordConversion(direction mapping.Direction, status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.Conversion.RecordConversion(string(direction), status, time.Since(start).Seconds())
	}
}
