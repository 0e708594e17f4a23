package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry              *prometheus.Registry
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	topologyBuildsTotal   prometheus.Counter
	manifestLoadsTotal    prometheus.Counter
	manifestEntries       prometheus.Gauge
	collectionRunsTotal   prometheus.Counter
	collectionRunDuration prometheus.Histogram
	sceneLoadsTotal       prometheus.Counter
}

// New creates a fresh Metrics registry with HTTP, topology, manifest
// and collection metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by viz-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "netmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by viz-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	topologyBuildsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netmap",
		Name:      "topology_builds_total",
		Help:      "Total number of topology graphs built",
	})

	manifestLoadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netmap",
		Name:      "manifest_loads_total",
		Help:      "Total number of model manifest load attempts",
	})

	manifestEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netmap",
		Name:      "manifest_entries",
		Help:      "Number of model entries in the current registry",
	})

	collectionRunsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netmap",
		Name:      "collection_runs_total",
		Help:      "Total number of device collection runs triggered",
	})

	collectionRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "netmap",
		Name:      "collection_run_duration_seconds",
		Help:      "Duration of collection runs from trigger to re-poll completion",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})

	sceneLoadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netmap",
		Name:      "scene_loads_total",
		Help:      "Total number of graph snapshots loaded into the renderer",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		topologyBuildsTotal,
		manifestLoadsTotal,
		manifestEntries,
		collectionRunsTotal,
		collectionRunDuration,
		sceneLoadsTotal,
	)

	return &Metrics{
		registry:              registry,
		httpRequests:          httpRequests,
		httpRequestDuration:   httpRequestDuration,
		topologyBuildsTotal:   topologyBuildsTotal,
		manifestLoadsTotal:    manifestLoadsTotal,
		manifestEntries:       manifestEntries,
		collectionRunsTotal:   collectionRunsTotal,
		collectionRunDuration: collectionRunDuration,
		sceneLoadsTotal:       sceneLoadsTotal,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncTopologyBuild increments the topology build counter.
func (m *Metrics) IncTopologyBuild() {
	if m == nil {
		return
	}
	m.topologyBuildsTotal.Inc()
}

// ObserveManifestLoad records a manifest load and the resulting entry count.
func (m *Metrics) ObserveManifestLoad(entries int) {
	if m == nil {
		return
	}
	m.manifestLoadsTotal.Inc()
	m.manifestEntries.Set(float64(entries))
}

// IncCollectionRun increments the collection run counter.
func (m *Metrics) IncCollectionRun() {
	if m == nil {
		return
	}
	m.collectionRunsTotal.Inc()
}

// ObserveCollectionRunDuration observes a collection run duration.
func (m *Metrics) ObserveCollectionRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.collectionRunDuration.Observe(duration.Seconds())
}

// IncSceneLoad increments the renderer scene load counter.
func (m *Metrics) IncSceneLoad() {
	if m == nil {
		return
	}
	m.sceneLoadsTotal.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
