package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the query engine.
type Metrics struct {
	registry *prometheus.Registry

	QueryDuration   *prometheus.HistogramVec
	QueryTotal      *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	BackendAttempts *prometheus.CounterVec
	BackendFailures *prometheus.CounterVec
	IngestedNodes   prometheus.Counter
	IngestedEdges   prometheus.Counter
	EmbeddingJobs   *prometheus.CounterVec
	EmbeddingQueue  prometheus.Gauge
}

// NewMetrics creates and registers all instruments on a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of graph queries by query type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query_type"}),
		QueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_total",
			Help:      "Total graph queries by query type and outcome.",
		}, []string{"query_type", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Query cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Query cache misses.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Query cache entries removed by TTL expiry or invalidation.",
		}),
		BackendAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_attempts_total",
			Help:      "Backend execution attempts by backend name.",
		}, []string{"backend"}),
		BackendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_failures_total",
			Help:      "Backend execution failures by backend name.",
		}, []string{"backend"}),
		IngestedNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_nodes_total",
			Help:      "Nodes upserted by scan ingestion.",
		}),
		IngestedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_edges_total",
			Help:      "Edges upserted by scan ingestion.",
		}),
		EmbeddingJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_jobs_total",
			Help:      "Embedding jobs by outcome.",
		}, []string{"outcome"}),
		EmbeddingQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "embedding_queue_depth",
			Help:      "Pending jobs in the embedding queue.",
		}),
	}

	registry.MustRegister(
		m.QueryDuration,
		m.QueryTotal,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.BackendAttempts,
		m.BackendFailures,
		m.IngestedNodes,
		m.IngestedEdges,
		m.EmbeddingJobs,
		m.EmbeddingQueue,
	)

	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
