// Package metrics exposes Prometheus collectors for catalog rebuilds,
// category source calls, overhead display refreshes and HTTP traffic.
// Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "techbar"

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	rebuilds        *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	categories      *prometheus.GaugeVec
	sourceCalls     *prometheus.CounterVec
	sourceDuration  *prometheus.HistogramVec
	overhead        *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_rebuilds_total",
			Help:      "Catalog helper reconstructions by kapp and result.",
		}, []string{"kapp", "result"}),
		rebuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_rebuild_duration_seconds",
			Help:      "Time spent fetching and indexing a kapp's categories.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kapp"}),
		categories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_categories",
			Help:      "Number of categories held for a kapp.",
		}, []string{"kapp"}),
		sourceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_calls_total",
			Help:      "Calls to the category source by operation and result.",
		}, []string{"operation", "result"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_call_duration_seconds",
			Help:      "Latency of category source calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		overhead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overhead_refreshes_total",
			Help:      "Overhead display refreshes by Tech Bar and result.",
		}, []string{"techbar", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rebuilds,
		m.rebuildDuration,
		m.categories,
		m.sourceCalls,
		m.sourceDuration,
		m.overhead,
		m.httpRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRebuild records one helper reconstruction.
func (m *Metrics) ObserveRebuild(kapp string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(kapp, result(success)).Inc()
	m.rebuildDuration.WithLabelValues(kapp).Observe(duration.Seconds())
}

// SetCategories records the number of categories currently held for a kapp.
func (m *Metrics) SetCategories(kapp string, n int) {
	if m == nil {
		return
	}
	m.categories.WithLabelValues(kapp).Set(float64(n))
}

// ObserveSource records one call to the category source.
func (m *Metrics) ObserveSource(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.sourceCalls.WithLabelValues(operation, result(success)).Inc()
	m.sourceDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveOverhead records one overhead display refresh.
func (m *Metrics) ObserveOverhead(techBarID string, success bool) {
	if m == nil {
		return
	}
	m.overhead.WithLabelValues(techBarID, result(success)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
