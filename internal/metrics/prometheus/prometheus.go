// Package prometheus provides a Prometheus-backed implementation of
// internal/metrics.CacheMetrics.
package prometheus

import (
	"sync"
	"time"

	"github.com/marmos91/smmap/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
)

// Registry returns the package's lazily-initialized Prometheus registry,
// creating it on first use.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
	return registry
}

// cacheMetrics is the Prometheus implementation of metrics.CacheMetrics.
type cacheMetrics struct {
	fetchDuration   prometheus.Histogram
	fetchBytes      prometheus.Histogram
	upstreamCalls   *prometheus.CounterVec
	upstreamBytes   prometheus.Histogram
	upstreamLatency prometheus.Histogram
	validBlocks     *prometheus.GaugeVec
	totalBlocks     *prometheus.GaugeVec
	lockWait        prometheus.Histogram
}

// NewCacheMetrics registers and returns a Prometheus-backed
// metrics.CacheMetrics against Registry().
func NewCacheMetrics() metrics.CacheMetrics {
	reg := Registry()

	return &cacheMetrics{
		fetchDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "smmap_fetch_duration_seconds",
			Help:    "Duration of Cache.Fetch/FetchContext calls.",
			Buckets: prometheus.DefBuckets,
		}),
		fetchBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "smmap_fetch_bytes",
			Help:    "Size of the byte range requested per Fetch call.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		upstreamCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "smmap_upstream_calls_total",
			Help: "Upstream fetcher invocations, partitioned by outcome.",
		}, []string{"outcome"}),
		upstreamBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "smmap_upstream_bytes",
			Help:    "Size of each coalesced upstream fetch.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		upstreamLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "smmap_upstream_latency_seconds",
			Help:    "Latency of upstream fetcher calls.",
			Buckets: prometheus.DefBuckets,
		}),
		validBlocks: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "smmap_valid_blocks",
			Help: "Number of blocks currently marked valid, by cache location.",
		}, []string{"location"}),
		totalBlocks: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "smmap_total_blocks",
			Help: "Total number of blocks in the cache, by cache location.",
		}, []string{"location"}),
		lockWait: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "smmap_lock_wait_seconds",
			Help:    "Time spent blocked on another process's writer lock.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *cacheMetrics) ObserveFetch(bytes int64, duration time.Duration) {
	m.fetchBytes.Observe(float64(bytes))
	m.fetchDuration.Observe(duration.Seconds())
}

func (m *cacheMetrics) ObserveUpstreamCall(bytes int64, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamCalls.WithLabelValues(outcome).Inc()
	m.upstreamBytes.Observe(float64(bytes))
	m.upstreamLatency.Observe(duration.Seconds())
}

func (m *cacheMetrics) RecordValidBlocks(location string, valid, total uint64) {
	m.validBlocks.WithLabelValues(location).Set(float64(valid))
	m.totalBlocks.WithLabelValues(location).Set(float64(total))
}

func (m *cacheMetrics) RecordLockWait(duration time.Duration) {
	m.lockWait.Observe(duration.Seconds())
}
