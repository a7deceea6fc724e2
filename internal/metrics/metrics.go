// Package metrics exposes gateway and cache statistics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joocer/s1/internal/cache"
)

const namespace = "s1"

// CacheStatser is implemented by *cache.Cache.
type CacheStatser interface {
	Stats() cache.Stats
}

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// RequestTotal counts HTTP requests by method, operation and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
	// SelectRecords counts rows returned by Select.
	SelectRecords prometheus.Counter
	// SelectBytesScanned counts object bytes read by Select.
	SelectBytesScanned prometheus.Counter
}

// New registers the gateway metrics and a collector for c.
func New(c CacheStatser) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "operation", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "operation"},
		),
		SelectRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "select_records_total",
			Help:      "Rows returned by SelectObjectContent",
		}),
		SelectBytesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "select_bytes_scanned_total",
			Help:      "Object bytes scanned by SelectObjectContent",
		}),
	}
	reg.MustRegister(
		m.RequestTotal,
		m.RequestDuration,
		m.SelectRecords,
		m.SelectBytesScanned,
		newCacheCollector(c),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records request counts and latency. operation labels the
// request by S3 operation rather than raw path to keep cardinality bounded.
func (m *Metrics) Middleware(operation func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			op := operation(r)
			m.RequestTotal.WithLabelValues(r.Method, op, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, op).Observe(time.Since(start).Seconds())
		})
	}
}

// cacheCollector reads cache counters at scrape time.
type cacheCollector struct {
	cache     CacheStatser
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	fetches   *prometheus.Desc
	evictions *prometheus.Desc
	entries   *prometheus.Desc
	capacity  *prometheus.Desc
}

func newCacheCollector(c CacheStatser) *cacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &cacheCollector{
		cache:     c,
		hits:      desc("hits_total", "Cache lookups served from memory"),
		misses:    desc("misses_total", "Cache lookups that had to wait for a fetch"),
		fetches:   desc("fetches_total", "Backend fetches issued by the cache"),
		evictions: desc("evictions_total", "Entries evicted to stay within capacity"),
		entries:   desc("entries", "Objects currently cached"),
		capacity:  desc("capacity", "Maximum number of cached objects"),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.fetches
	ch <- c.evictions
	ch <- c.entries
	ch <- c.capacity
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.fetches, prometheus.CounterValue, float64(s.Fetches))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
}
