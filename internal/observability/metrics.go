// Package observability provides metrics and monitoring capabilities for the
// gearmap service.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gearmap/gearmap-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Conversion *metrics.ConversionMetrics
	IconStore  *metrics.IconStoreMetrics
	HTTP       *metrics.HTTPMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any metric collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	conversionMetrics, err := metrics.NewConversionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion metrics: %w", err)
	}

	iconStoreMetrics, err := metrics.NewIconStoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon store metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Conversion: conversionMetrics,
		IconStore:  iconStoreMetrics,
		HTTP:       httpMetrics,
	}, nil
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
