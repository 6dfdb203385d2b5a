// Package metrics provides the Prometheus collectors for the gearmap
// subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Annotation outcome labels for the annotations_total counter.
const (
	AnnotationConverted        = "converted"
	AnnotationSkippedUnmapped  = "skipped_unmapped"
	AnnotationSkippedNoSubject = "skipped_no_subject"
	AnnotationSkippedNoConfig  = "skipped_no_config"
	AnnotationSkippedRender    = "skipped_render"
)

// ConversionMetrics contains Prometheus metrics for document conversions.
type ConversionMetrics struct {
	conversionsTotal   *prometheus.CounterVec
	annotationsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	documentPages      prometheus.Histogram
	renderDuration     prometheus.Histogram
}

// NewConversionMetrics creates and registers new conversion metrics.
func NewConversionMetrics(registry *prometheus.Registry) (*ConversionMetrics, error) {
	m := &ConversionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ConversionMetrics) initMetrics() {
	m.conversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearmap_conversions_total",
			Help: "Total number of document conversions",
		},
		[]string{"direction", "status"}, // status: success, error
	)

	m.annotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearmap_annotations_total",
			Help: "Total number of annotations by conversion outcome",
		},
		[]string{"result"},
	)

	m.conversionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gearmap_conversion_duration_seconds",
			Help:    "Time taken for whole document conversions",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"direction"},
	)

	m.documentPages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gearmap_document_pages",
			Help:    "Page counts of converted documents",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512 pages
		},
	)

	m.renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gearmap_render_duration_seconds",
			Help:    "Time taken to render one icon",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
}

func (m *ConversionMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.conversionsTotal,
		m.annotationsTotal,
		m.conversionDuration,
		m.documentPages,
		m.renderDuration,
	}
}

// Describe implements the Collector interface.
func (m *ConversionMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface.
func (m *ConversionMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordConversion counts one finished conversion.
func (m *ConversionMetrics) RecordConversion(direction, status string, duration float64) {
	m.conversionsTotal.WithLabelValues(direction, status).Inc()
	m.conversionDuration.WithLabelValues(direction).Observe(duration)
}

// RecordAnnotation counts one annotation outcome.
func (m *ConversionMetrics) RecordAnnotation(result string) {
	m.annotationsTotal.WithLabelValues(result).Inc()
}

// RecordDocumentPages records the page count of a converted document.
func (m *ConversionMetrics) RecordDocumentPages(pages int) {
	m.documentPages.Observe(float64(pages))
}

// RecordRenderDuration records the time one icon render took.
func (m *ConversionMetrics) RecordRenderDuration(duration float64) {
	m.renderDuration.Observe(duration)
}
