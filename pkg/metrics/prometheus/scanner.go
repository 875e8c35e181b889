package prometheus

import (
	"time"

	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// scannerMetrics is the Prometheus implementation of fileseq.Metrics.
type scannerMetrics struct {
	strategy string

	scans      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	moves      *prometheus.CounterVec
	shortfall  *prometheus.CounterVec
	cachedDirs *prometheus.GaugeVec
}

// NewScannerMetrics returns metrics labelled with the scanner strategy.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewScannerMetrics(strategy fileseq.Strategy) fileseq.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newScannerMetrics(metrics.GetRegistry(), strategy.String())
}

func newScannerMetrics(reg prometheus.Registerer, strategy string) *scannerMetrics {
	return &scannerMetrics{
		strategy: strategy,
		scans: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "scanner",
				Name:      "scans_total",
				Help:      "Directory scans by strategy and status",
			},
			[]string{"strategy", "status"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "scanner",
				Name:      "scan_duration_seconds",
				Help:      "Time spent listing and ordering one directory",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"strategy"},
		)),
		moves: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "scanner",
				Name:      "moves_total",
				Help:      "Cursor moves by direction",
			},
			[]string{"strategy", "direction"},
		)),
		shortfall: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "scanner",
				Name:      "move_shortfall_total",
				Help:      "Requested positions that could not be moved because a sequence end was reached",
			},
			[]string{"strategy"},
		)),
		cachedDirs: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "scanner",
				Name:      "cached_directories",
				Help:      "Directory listings retained by the tree scanner",
			},
			[]string{"strategy"},
		)),
	}
}

func (m *scannerMetrics) ObserveScan(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(m.strategy, status(err)).Inc()
	m.duration.WithLabelValues(m.strategy).Observe(d.Seconds())
}

func (m *scannerMetrics) ObserveMove(requested, moved int) {
	if m == nil || requested == 0 {
		return
	}
	direction := "forward"
	if requested < 0 {
		direction, requested, moved = "backward", -requested, -moved
	}
	m.moves.WithLabelValues(m.strategy, direction).Inc()
	if moved < requested {
		m.shortfall.WithLabelValues(m.strategy).Add(float64(requested - moved))
	}
}

func (m *scannerMetrics) SetCachedDirs(n int) {
	if m == nil {
		return
	}
	m.cachedDirs.WithLabelValues(m.strategy).Set(float64(n))
}
