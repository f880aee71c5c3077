package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Graph load outcomes
const (
	LoadBootstrapped = "bootstrapped"
	LoadInjected     = "injected"
	LoadUnchanged    = "unchanged"
)

// Collector holds all Prometheus metrics for the service
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Bus metrics
	Dispatches       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Engine metrics
	GraphLoads      *prometheus.CounterVec
	GraphSaves      prometheus.Counter
	Publishes       prometheus.Counter
	DegradedSources *prometheus.CounterVec
	Reindexes       *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Commands and queries dispatched on the buses",
		}, []string{"kind", "name", "status"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Command and query handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "name"}),
		GraphLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_loads_total",
			Help:      "Graph reads by outcome",
		}, []string{"outcome"}),
		GraphSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_saves_total",
			Help:      "Client graphs persisted",
		}),
		Publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_publishes_total",
			Help:      "Snapshot sections upserted into the memory document",
		}),
		DegradedSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_sources_total",
			Help:      "External lookups that failed or timed out and were treated as empty",
		}, []string{"source"}),
		Reindexes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_total",
			Help:      "Chunk index refreshes by trigger and status",
		}, []string{"trigger", "status"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Dispatches,
		c.DispatchDuration,
		c.GraphLoads,
		c.GraphSaves,
		c.Publishes,
		c.DegradedSources,
		c.Reindexes,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveDispatch records a bus dispatch
func (c *Collector) ObserveDispatch(kind, name string, duration time.Duration, err error) {
	c.Dispatches.WithLabelValues(kind, name, statusLabel(err)).Inc()
	c.DispatchDuration.WithLabelValues(kind, name).Observe(duration.Seconds())
}

// RecordGraphLoad records how a read produced its graph
func (c *Collector) RecordGraphLoad(outcome string) {
	c.GraphLoads.WithLabelValues(outcome).Inc()
}

// RecordSave records a persisted client graph
func (c *Collector) RecordSave() {
	c.GraphSaves.Inc()
}

// RecordPublish records a snapshot upsert
func (c *Collector) RecordPublish() {
	c.Publishes.Inc()
}

// RecordDegraded records a lookup that degraded to an empty result
func (c *Collector) RecordDegraded(source string) {
	c.DegradedSources.WithLabelValues(source).Inc()
}

// RecordReindex records the outcome of a chunk index refresh
func (c *Collector) RecordReindex(trigger string, err error) {
	c.Reindexes.WithLabelValues(trigger, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
