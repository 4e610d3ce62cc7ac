package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	CacheInvalidation *prometheus.CounterVec
	ContentMutations  *prometheus.CounterVec
	StagedUploads     prometheus.Gauge
}

// New registers every collector on a private registry
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of query cache hits",
		}, []string{"query"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of query cache misses",
		}, []string{"query"}),
		CacheInvalidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total number of query cache prefix invalidations",
		}, []string{"query"}),
		ContentMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_mutations_total",
			Help:      "Content mutations sent to the content API, by outcome",
		}, []string{"operation", "outcome"}),
		StagedUploads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staged_uploads",
			Help:      "Number of images currently staged on disk",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.CacheHits,
		m.CacheMisses,
		m.CacheInvalidation,
		m.ContentMutations,
		m.StagedUploads,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// The query label is the first key segment, e.g. "all-contents"; full keys
// would make label cardinality unbounded.

func (m *Metrics) RecordCacheHit(query string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(query).Inc()
}

func (m *Metrics) RecordCacheMiss(query string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(query).Inc()
}

func (m *Metrics) RecordInvalidation(query string) {
	if m == nil {
		return
	}
	m.CacheInvalidation.WithLabelValues(query).Inc()
}

// RecordMutation counts a create, update, delete or status call
func (m *Metrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ContentMutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SetStagedUploads(n int) {
	if m == nil {
		return
	}
	m.StagedUploads.Set(float64(n))
}
