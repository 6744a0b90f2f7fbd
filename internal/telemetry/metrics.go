package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orasp/internal/orasp"
)

// Metrics holds the generator collectors on a private registry.
type Metrics struct {
	Registry  *prometheus.Registry
	Generated *prometheus.CounterVec
	Repairs   *prometheus.CounterVec
	Duration  prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orasp",
			Name:      "instances_generated_total",
			Help:      "Generation attempts by outcome.",
		}, []string{"status"}),
		Repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orasp",
			Name:      "repairs_total",
			Help:      "Entries forced by the repair passes, by side.",
		}, []string{"side"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orasp",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of one instance generation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	m.Registry.MustRegister(m.Generated, m.Repairs, m.Duration)
	return m
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, orasp.ErrInvalidParameter):
		return "invalid"
	case errors.Is(err, orasp.ErrInternalConsistency):
		return "inconsistent"
	default:
		return "error"
	}
}

// Observe records the outcome of one generation. Safe for concurrent use.
func (m *Metrics) Observe(inst *orasp.Instance, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Generated.WithLabelValues(status(err)).Inc()
	m.Duration.Observe(d.Seconds())
	if inst != nil {
		m.Repairs.WithLabelValues("rooms").Add(float64(inst.Repairs.Rooms))
		m.Repairs.WithLabelValues("operations").Add(float64(inst.Repairs.Operations))
		m.Repairs.WithLabelValues("surgeons").Add(float64(inst.Repairs.Surgeons))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
