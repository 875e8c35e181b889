package prometheus

import (
	"time"

	"github.com/marmos91/picseq/pkg/metrics"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/prometheus/client_golang/prometheus"
)

// prefetchMetrics is the Prometheus implementation of prefetch.Metrics.
type prefetchMetrics struct {
	cache string

	requests   *prometheus.CounterVec
	produced   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	evictions  *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
	entries    *prometheus.GaugeVec
}

// NewPrefetchMetrics returns metrics for the cache named cache.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPrefetchMetrics(cache string) prefetch.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newPrefetchMetrics(metrics.GetRegistry(), cache)
}

func newPrefetchMetrics(reg prometheus.Registerer, cache string) *prefetchMetrics {
	return &prefetchMetrics{
		cache: cache,
		requests: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "prefetch",
				Name:      "requests_total",
				Help:      "Direct cache requests by result",
			},
			[]string{"cache", "result"}, // result: "hit", "miss"
		)),
		produced: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "prefetch",
				Name:      "productions_total",
				Help:      "Completed productions by status",
			},
			[]string{"cache", "status"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "prefetch",
				Name:      "production_duration_seconds",
				Help:      "Time spent producing one value",
				Buckets: []float64{
					0.005, // small thumbnails
					0.01,
					0.05,
					0.1,
					0.25,
					0.5,
					1,
					2.5,
					10, // large photos on slow disks
				},
			},
			[]string{"cache"},
		)),
		evictions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "prefetch",
				Name:      "evictions_total",
				Help:      "Evicted entries by reason",
			},
			[]string{"cache", "reason"}, // reason: "group", "lru", "invalidate"
		)),
		queueDepth: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "prefetch",
				Name:      "queue_depth",
				Help:      "Productions waiting for a worker",
			},
			[]string{"cache"},
		)),
		entries: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "prefetch",
				Name:      "entries",
				Help:      "Retained cache entries",
			},
			[]string{"cache"},
		)),
	}
}

func (m *prefetchMetrics) ObserveRequest(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.requests.WithLabelValues(m.cache, result).Inc()
}

func (m *prefetchMetrics) ObserveProduction(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.produced.WithLabelValues(m.cache, status(err)).Inc()
	m.duration.WithLabelValues(m.cache).Observe(d.Seconds())
}

func (m *prefetchMetrics) ObserveEviction(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(m.cache, reason).Inc()
}

func (m *prefetchMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(m.cache).Set(float64(n))
}

func (m *prefetchMetrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(m.cache).Set(float64(n))
}
