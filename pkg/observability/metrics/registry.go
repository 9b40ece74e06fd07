// Package metrics exposes wheretruck's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric defined here.
const Namespace = "wheretruck"

// Registry is a private Prometheus registry holding the request metrics,
// collection update outcomes and the runtime collectors.
type Registry struct {
	reg *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	inFlight        prometheus.Gauge
	updates         *prometheus.CounterVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	routeLabels := []string{"method", "path", "status"}
	return &Registry{
		reg: reg,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, routeLabels),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, routeLabels),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "collection_updates_total",
			Help:      "Nested collection updates by kind and outcome status.",
		}, []string{"kind", "status"}),
	}
}

// RecordHTTP observes a finished request. path is the route template.
func (r *Registry) RecordHTTP(method, path string, status int, took time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	r.requestDuration.With(labels).Observe(took.Seconds())
	r.requests.With(labels).Inc()
}

func (r *Registry) IncInFlight() { r.inFlight.Inc() }
func (r *Registry) DecInFlight() { r.inFlight.Dec() }

// RecordOutcome counts one collection update.
func (r *Registry) RecordOutcome(kind, status string) {
	r.updates.WithLabelValues(kind, status).Inc()
}

// MustRegister adds collectors owned by other packages.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Handler serves the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		Registry:          r.reg,
		EnableOpenMetrics: true,
	})
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
