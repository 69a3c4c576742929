package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the station collectors on a registry of its own, so several
// stations (or tests) can live in one process.
type Metrics struct {
	registry         *prometheus.Registry
	Readings         *prometheus.CounterVec
	ReadErrors       *prometheus.CounterVec
	ValidationErrors *prometheus.CounterVec
	ParameterValue   *prometheus.GaugeVec
	ReadDuration     prometheus.Histogram
}

// New returns registered Metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qinst_readings_total",
				Help: "Completed measurement reads.",
			},
			[]string{"measurement", "mode"},
		),
		ReadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qinst_read_errors_total",
				Help: "Measurement reads failed by the upstream instrument.",
			},
			[]string{"measurement"},
		),
		ValidationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qinst_validation_errors_total",
				Help: "Rejected parameter assignments.",
			},
			[]string{"parameter"},
		),
		ParameterValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "qinst_parameter_value",
				Help: "Current value of each settable parameter.",
			},
			[]string{"parameter"},
		),
		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "qinst_read_duration_seconds",
			Help:    "Time spent in measurement reads, upstream included.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.Readings,
		m.ReadErrors,
		m.ValidationErrors,
		m.ParameterValue,
		m.ReadDuration,
	)
	return m
}

// ObserveRead records one read attempt.
func (m *Metrics) ObserveRead(measurement, mode string, start time.Time, err error) {
	m.ReadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.ReadErrors.WithLabelValues(measurement).Inc()
		return
	}
	m.Readings.WithLabelValues(measurement, mode).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
