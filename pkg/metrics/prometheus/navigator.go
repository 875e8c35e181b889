package prometheus

import (
	"errors"
	"time"

	"github.com/marmos91/picseq/pkg/metrics"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/prometheus/client_golang/prometheus"
)

// navigatorMetrics is the Prometheus implementation of navigator.Metrics.
type navigatorMetrics struct {
	displays    *prometheus.CounterVec
	duration    prometheus.Histogram
	navigations *prometheus.CounterVec
}

// NewNavigatorMetrics returns display and navigation metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewNavigatorMetrics() navigator.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newNavigatorMetrics(metrics.GetRegistry())
}

func newNavigatorMetrics(reg prometheus.Registerer) *navigatorMetrics {
	return &navigatorMetrics{
		displays: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "navigator",
				Name:      "displays_total",
				Help:      "Display requests by outcome",
			},
			[]string{"outcome"}, // outcome: "ok", "timeout", "invalid", "no_image", "error"
		)),
		duration: register(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "navigator",
				Name:      "display_wait_seconds",
				Help:      "Time between a display request and its image being available",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		)),
		navigations: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "navigator",
				Name:      "operations_total",
				Help:      "Navigation operations by name and status",
			},
			[]string{"operation", "status"},
		)),
	}
}

func displayOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, prefetch.ErrTimeout):
		return "timeout"
	case errors.Is(err, navigator.ErrInvalidImage):
		return "invalid"
	case errors.Is(err, navigator.ErrNoImage):
		return "no_image"
	default:
		return "error"
	}
}

func (m *navigatorMetrics) ObserveDisplay(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.displays.WithLabelValues(displayOutcome(err)).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *navigatorMetrics) ObserveNavigation(op string, err error) {
	if m == nil {
		return
	}
	st := status(err)
	if errors.Is(err, navigator.ErrLastImage) || errors.Is(err, navigator.ErrFirstImage) {
		st = "boundary"
	}
	m.navigations.WithLabelValues(op, st).Inc()
}
