package assetcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector records cache behaviour. The worker calls it on every
// request so implementations must be cheap and goroutine safe.
type MetricsCollector interface {
	RecordHit(source string)
	RecordMiss()
	RecordPassthrough()
	RecordRevalidation(outcome string)
	RecordFetchLatency(duration time.Duration)
}

// Collector is the Prometheus-backed MetricsCollector.
type Collector struct {
	hits         *prometheus.CounterVec
	misses       prometheus.Counter
	passthrough  prometheus.Counter
	revalidation *prometheus.CounterVec
	fetchLatency prometheus.Histogram
}

// NewCollector builds a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_asset_cache_hits_total",
			Help: "Asset requests answered from cache, by source (memory or disk).",
		}, []string{"source"}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_asset_cache_misses_total",
			Help: "Asset requests that required an origin fetch.",
		}),
		passthrough: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_asset_passthrough_total",
			Help: "Requests forwarded to the origin without caching.",
		}),
		revalidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_asset_revalidations_total",
			Help: "Background revalidation attempts by outcome.",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fintrack_asset_fetch_latency_seconds",
			Help:    "Latency of origin asset fetches in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.hits,
		c.misses,
		c.passthrough,
		c.revalidation,
		c.fetchLatency,
	)

	return c
}

func (c *Collector) RecordHit(source string) {
	c.hits.WithLabelValues(source).Inc()
}

func (c *Collector) RecordMiss() {
	c.misses.Inc()
}

func (c *Collector) RecordPassthrough() {
	c.passthrough.Inc()
}

func (c *Collector) RecordRevalidation(outcome string) {
	c.revalidation.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// NopCollector discards every measurement. Used in tests and in the CLI,
// which has no scrape endpoint.
type NopCollector struct{}

func (NopCollector) RecordHit(string)                 {}
func (NopCollector) RecordMiss()                      {}
func (NopCollector) RecordPassthrough()               {}
func (NopCollector) RecordRevalidation(string)        {}
func (NopCollector) RecordFetchLatency(time.Duration) {}
