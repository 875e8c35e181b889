package prometheus

import (
	"time"

	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// decodeMetrics is the Prometheus implementation of imageload.Metrics.
type decodeMetrics struct {
	decodes  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Histogram
}

// NewDecodeMetrics returns image decoding metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDecodeMetrics() imageload.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newDecodeMetrics(metrics.GetRegistry())
}

func newDecodeMetrics(reg prometheus.Registerer) *decodeMetrics {
	return &decodeMetrics{
		decodes: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "imageload",
				Name:      "decodes_total",
				Help:      "Image decodes by format and status",
			},
			[]string{"format", "status"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "imageload",
				Name:      "decode_duration_seconds",
				Help:      "Time spent reading and decoding one image",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
			},
			[]string{"format"},
		)),
		bytes: register(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "imageload",
				Name:      "file_bytes",
				Help:      "Size of the decoded image files",
				Buckets: []float64{
					16 << 10,  // 16KB - thumbnails
					128 << 10, // 128KB
					512 << 10, // 512KB
					1 << 20,   // 1MB
					4 << 20,   // 4MB - typical camera JPEG
					16 << 20,  // 16MB
					64 << 20,  // 64MB - large PNG/TIFF
				},
			},
		)),
	}
}

func (m *decodeMetrics) ObserveDecode(format string, size int64, d time.Duration, err error) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	m.decodes.WithLabelValues(format, status(err)).Inc()
	m.duration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil && size > 0 {
		m.bytes.Observe(float64(size))
	}
}
