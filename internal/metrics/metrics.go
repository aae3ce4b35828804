// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cpu_throttle"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Temperature  prometheus.Gauge
	AppliedFreq  prometheus.Gauge
	FreqWrites   prometheus.Counter
	WriteErrors  prometheus.Counter
	Commands     *prometheus.CounterVec
	SkinInstalls *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last sampled CPU temperature.",
		}),
		AppliedFreq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "applied_frequency_khz",
			Help:      "Frequency cap most recently written to the cores.",
		}),
		FreqWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frequency_writes_total",
			Help:      "Frequency cap changes that passed the dead-band.",
		}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frequency_write_errors_total",
			Help:      "Per-core scaling_max_freq writes that failed.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by protocol and verb.",
		}, []string{"protocol", "verb"}),
		SkinInstalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skin_installs_total",
			Help:      "Skin install attempts, by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Temperature, m.AppliedFreq, m.FreqWrites, m.WriteErrors, m.Commands, m.SkinInstalls,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Command counts one handled command.
func (m *Metrics) Command(protocol, verb string) {
	m.Commands.WithLabelValues(protocol, verb).Inc()
}
