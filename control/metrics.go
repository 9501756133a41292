// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for the echo engines, exported through Prometheus.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "hioload_echo"

// Metrics holds the collectors shared by every engine.
// Each Metrics owns a private registry so independent servers never collide.
type Metrics struct {
	Accepted      prometheus.Counter
	Active        prometheus.Gauge
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter
	PartialWrites prometheus.Counter
	Quits         prometheus.Counter
	IOErrors      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors labelled with the engine name.
func NewMetrics(engine string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"engine": engine}
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &Metrics{
		Accepted:      counter("accepted_total", "Connections accepted"),
		BytesRead:     counter("bytes_read_total", "Bytes read from clients"),
		BytesWritten:  counter("bytes_written_total", "Bytes echoed back to clients"),
		PartialWrites: counter("partial_writes_total", "Writes that could not complete in one call"),
		Quits:         counter("quit_total", "Connections that sent the quit marker"),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "active_connections",
			Help:        "Connections currently registered",
			ConstLabels: labels,
		}),
		IOErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "io_errors_total",
			Help:        "Per-connection I/O failures by operation and error class",
			ConstLabels: labels,
		}, []string{"op", "class"}),
		registry: reg,
	}
}

// Gatherer exposes the private registry to the admin endpoint.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
