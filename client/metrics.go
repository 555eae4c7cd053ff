package client

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "client"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of connections handed out from the live cache.
	CacheHits metrics.Counter
	// Number of live connections evicted because the cache was full.
	CacheEvictions metrics.Counter
	// Number of candidate addresses skipped because they were quarantined.
	QuarantineHits metrics.Counter
	// Number of failed connection attempts.
	DialFailures metrics.Counter
	// Number of peer addresses learned via store_node during requests.
	PeersDiscovered metrics.Counter
	// Number of requests by outcome (ok, timeout, exhausted, error).
	Requests metrics.Counter
	// Time spent driving a request to completion.
	RequestDurationSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		CacheHits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Number of connections handed out from the live cache.",
		}, []string{}),
		CacheEvictions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "cache_evictions_total",
			Help:      "Number of live connections evicted because the cache was full.",
		}, []string{}),
		QuarantineHits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "quarantine_hits_total",
			Help:      "Number of candidate addresses skipped because they were quarantined.",
		}, []string{}),
		DialFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "dial_failures_total",
			Help:      "Number of failed connection attempts.",
		}, []string{}),
		PeersDiscovered: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "peers_discovered_total",
			Help:      "Number of peer addresses learned via store_node during requests.",
		}, []string{}),
		Requests: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "requests_total",
			Help:      "Number of requests by outcome.",
		}, []string{"outcome"}),
		RequestDurationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Time spent driving a request to completion.",
			Buckets:   stdprometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"outcome"}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		CacheHits:              discard.NewCounter(),
		CacheEvictions:         discard.NewCounter(),
		QuarantineHits:         discard.NewCounter(),
		DialFailures:           discard.NewCounter(),
		PeersDiscovered:        discard.NewCounter(),
		Requests:               discard.NewCounter(),
		RequestDurationSeconds: discard.NewHistogram(),
	}
}
