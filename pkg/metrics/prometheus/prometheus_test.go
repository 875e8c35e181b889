package prometheus

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefetchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newPrefetchMetrics(reg, "images")

	m.ObserveRequest(true)
	m.ObserveRequest(true)
	m.ObserveRequest(false)
	m.ObserveEviction(prefetch.EvictGroup)
	m.ObserveProduction(10*time.Millisecond, nil)
	m.ObserveProduction(10*time.Millisecond, errors.New("corrupt"))
	m.SetQueueDepth(4)
	m.SetEntries(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("images", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("images", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions.WithLabelValues("images", "group")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.produced.WithLabelValues("images", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("images")))

	expected := `
# HELP picseq_prefetch_entries Retained cache entries
# TYPE picseq_prefetch_entries gauge
picseq_prefetch_entries{cache="images"} 7
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "picseq_prefetch_entries"))
}

func TestRegisterReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newScannerMetrics(reg, "current-dir-alphabetical")
	second := newScannerMetrics(reg, "traverse-tree-by-time")

	first.ObserveScan(time.Millisecond, nil)
	second.ObserveScan(time.Millisecond, errors.New("denied"))

	assert.Same(t, first.scans, second.scans)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.scans.WithLabelValues("current-dir-alphabetical", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.scans.WithLabelValues("traverse-tree-by-time", "error")))
}

func TestScannerMetrics_Moves(t *testing.T) {
	m := newScannerMetrics(prometheus.NewRegistry(), "s")

	m.ObserveMove(3, 3)
	m.ObserveMove(5, 2)
	m.ObserveMove(-4, -1)
	m.ObserveMove(0, 0)
	m.SetCachedDirs(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.moves.WithLabelValues("s", "forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moves.WithLabelValues("s", "backward")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.shortfall.WithLabelValues("s")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.cachedDirs.WithLabelValues("s")))
}

func TestNavigatorMetrics(t *testing.T) {
	m := newNavigatorMetrics(prometheus.NewRegistry())

	m.ObserveDisplay(time.Millisecond, nil)
	m.ObserveDisplay(time.Second, prefetch.ErrTimeout)
	m.ObserveDisplay(time.Millisecond, navigator.ErrInvalidImage)
	m.ObserveNavigation(navigator.OpNext, navigator.ErrLastImage)
	m.ObserveNavigation(navigator.OpNext, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.displays.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.displays.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.navigations.WithLabelValues("next", "boundary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.navigations.WithLabelValues("next", "ok")))
}

func TestDecodeMetrics(t *testing.T) {
	m := newDecodeMetrics(prometheus.NewRegistry())

	m.ObserveDecode("png", 2048, time.Millisecond, nil)
	m.ObserveDecode("", 10, time.Millisecond, errors.New("bad"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodes.WithLabelValues("png", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodes.WithLabelValues("unknown", "error")))
}

func TestConstructorsDisabled(t *testing.T) {
	assert.Nil(t, NewPrefetchMetrics("images"))
	assert.Nil(t, NewNavigatorMetrics())
	assert.Nil(t, NewDecodeMetrics())
}

func TestNilReceivers(t *testing.T) {
	var p *prefetchMetrics
	p.ObserveRequest(true)
	p.SetEntries(1)

	var s *scannerMetrics
	s.ObserveMove(1, 1)

	var n *navigatorMetrics
	n.ObserveDisplay(0, nil)

	var d *decodeMetrics
	d.ObserveDecode("png", 1, 0, nil)
}
