package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for one process. Each collector
// owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Mutations       *prometheus.CounterVec
	GraphNodes      prometheus.Gauge
	GraphEdges      prometheus.Gauge
	GraphComplexity prometheus.Gauge
	SubscriberPanic prometheus.Counter

	PersistenceOps      *prometheus.CounterVec
	PersistenceDuration *prometheus.HistogramVec
	Autosaves           *prometheus.CounterVec

	MigrationsApplied prometheus.Counter
}

// NewCollector creates and registers the metrics under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_mutations_total",
			Help:      "Graph changes by entity and change kind",
		}, []string{"entity", "change"}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the active graph",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_relationships",
			Help:      "Relationships in the active graph",
		}),
		GraphComplexity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_complexity",
			Help:      "Complexity score of the active graph",
		}),
		SubscriberPanic: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_panics_total",
			Help:      "Change subscribers that panicked",
		}),
		PersistenceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_operations_total",
			Help:      "Persistence adapter calls by backend, operation and result",
		}, []string{"backend", "operation", "result"}),
		PersistenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persistence_duration_seconds",
			Help:      "Persistence adapter latency",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"backend", "operation"}),
		Autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosaves_total",
			Help:      "Autosave attempts by result",
		}, []string{"result"}),
		MigrationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_applied_total",
			Help:      "Graphs migrated while loading",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.Mutations, c.GraphNodes, c.GraphEdges, c.GraphComplexity, c.SubscriberPanic,
		c.PersistenceOps, c.PersistenceDuration, c.Autosaves,
		c.MigrationsApplied,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObservePersistence records one adapter call.
func (c *Collector) ObservePersistence(backend, operation string, ok bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.PersistenceOps.WithLabelValues(backend, operation, result).Inc()
	c.PersistenceDuration.WithLabelValues(backend, operation).Observe(elapsed.Seconds())
}

// ObserveGraph updates the active graph gauges.
func (c *Collector) ObserveGraph(nodes, edges, complexity int) {
	if c == nil {
		return
	}
	c.GraphNodes.Set(float64(nodes))
	c.GraphEdges.Set(float64(edges))
	c.GraphComplexity.Set(float64(complexity))
}

// ObserveMutation counts one graph change.
func (c *Collector) ObserveMutation(entity, change string) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(entity, change).Inc()
}

// ObserveAutosave counts one autosave attempt.
func (c *Collector) ObserveAutosave(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.Autosaves.WithLabelValues("ok").Inc()
		return
	}
	c.Autosaves.WithLabelValues("error").Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
