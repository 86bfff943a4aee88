// Package metrics exposes prometheus instruments for order transitions and the
// realtime change feed.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiffin"

type Metrics struct {
	Transitions       *prometheus.CounterVec
	TransitionLatency *prometheus.HistogramVec
	RealtimeEvents    *prometheus.CounterVec
	Subscriptions     prometheus.Gauge
	MountedScreens    prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New builds a Metrics bundle on its own registry so tests can create as many
// as they like without colliding on the default one.
func New() *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "transitions_total",
			Help:      "Order status transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		TransitionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "transition_duration_ms",
			Help:      "Latency of the guarded status write in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"to"}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Change events folded into screen caches by type and result.",
		}, []string{"type", "result"}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscriptions",
			Help:      "Open change feed subscriptions.",
		}),
		MountedScreens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "mounted_screens",
			Help:      "Screens currently mounted.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Transitions,
		m.TransitionLatency,
		m.RealtimeEvents,
		m.Subscriptions,
		m.MountedScreens,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
