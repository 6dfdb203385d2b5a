// iconstore.go icon configuration store metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IconStoreMetrics contains Prometheus metrics for icon configuration store
// operations.
type IconStoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	applyToAllTotal   prometheus.Counter
	applyToAllRecords prometheus.Histogram
}

// NewIconStoreMetrics creates and registers new icon store metrics.
func NewIconStoreMetrics(registry *prometheus.Registry) (*IconStoreMetrics, error) {
	m := &IconStoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IconStoreMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearmap_iconstore_operations_total",
			Help: "Total number of icon store operations",
		},
		[]string{"operation", "status"}, // operation: get, list, create, update, delete, apply_to_all
	)

	m.applyToAllTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gearmap_iconstore_apply_to_all_total",
			Help: "Total number of apply-to-all batch operations",
		},
	)

	m.applyToAllRecords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gearmap_iconstore_apply_to_all_records",
			Help:    "Number of records written per apply-to-all batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
}

func (m *IconStoreMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.applyToAllTotal,
		m.applyToAllRecords,
	}
}

// Describe implements the Collector interface.
func (m *IconStoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface.
func (m *IconStoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation counts one store operation.
func (m *IconStoreMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordApplyToAll records one batch propagation and its write count.
func (m *IconStoreMetrics) RecordApplyToAll(records int) {
	m.applyToAllTotal.Inc()
	m.applyToAllRecords.Observe(float64(records))
}
