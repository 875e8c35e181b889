package prefetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

// countingProducer returns "value:<key>" and records every call.
type countingProducer struct {
	mu    sync.Mutex
	calls map[string]int
	order []string
	gate  chan struct{} // when non-nil, every production waits on it
}

func newCountingProducer() *countingProducer {
	return &countingProducer{calls: make(map[string]int)}
}

func (p *countingProducer) produce(ctx context.Context, key string) (string, error) {
	p.mu.Lock()
	p.calls[key]++
	p.order = append(p.order, key)
	gate := p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "value:" + key, nil
}

func (p *countingProducer) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

func (p *countingProducer) produced() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

func startCache[V any](t *testing.T, c *GroupedCache[string, V]) {
	t.Helper()
	c.Start(context.Background())
	t.Cleanup(func() { c.Stop(time.Second) })
}

func TestGet_SharesOneProduction(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 2})

	h1 := c.Get("a")
	h2 := c.Get("a")
	assert.Same(t, h1, h2)
	assert.Equal(t, StateQueued, h1.State())

	startCache(t, c)

	v, err := h1.WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "value:a", v)

	v, err = h2.WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "value:a", v)

	// Completed values are served without producing again.
	v, err = c.Get("a").WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "value:a", v)
	assert.Equal(t, 1, p.count("a"))
	assert.Equal(t, StateDone, h1.State())
}

func TestPrefetch_QueuesInGroupOrder(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	c.Prefetch("displayed", []string{"a", "b", "a", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, c.queuedKeys())
	assert.Equal(t, []string{"a", "b", "c"}, c.Group("displayed"))
	assert.Equal(t, 3, c.Len())
}

func TestGet_MovesQueuedTaskToFront(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	c.Prefetch("displayed", []string{"a", "b", "c", "d"})
	h := c.Get("c")
	assert.Equal(t, []string{"c", "a", "b", "d"}, c.queuedKeys())

	startCache(t, c)

	_, err := h.WaitTimeout(waitFor)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(p.produced()) == 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"c", "a", "b", "d"}, p.produced())
}

func TestPrefetch_EvictsKeysLeavingGroup(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	c.Prefetch("displayed", []string{"a", "b"})
	c.Prefetch("displayed", []string{"b", "c"})

	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, []string{"b", "c"}, c.queuedKeys())

	c.Prefetch("displayed", nil)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.queuedKeys())
	assert.Empty(t, c.Group("displayed"))
}

func TestPrefetch_KeyInTwoGroupsSurvives(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	c.Prefetch("g1", []string{"a", "b"})
	c.Prefetch("g2", []string{"b"})
	c.Prefetch("g1", nil)

	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.Equal(t, []string{"b"}, c.queuedKeys())
}

func TestPrefetch_RecentKeySurvivesGroup(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	c.Prefetch("displayed", []string{"a", "b"})
	c.Get("a")
	c.Prefetch("displayed", nil)

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
}

func TestLRU_EvictsBeyondCapacity(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 2, LRUEntries: 2})
	startCache(t, c)

	for _, k := range []string{"a", "b", "c"} {
		_, err := c.Get(k).WaitTimeout(waitFor)
		require.NoError(t, err)
	}

	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())

	_, err := c.Get("a").WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, 2, p.count("a"))
	assert.False(t, c.Contains("b"))
}

func TestLRU_GroupProtectsTail(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1, LRUEntries: 1})

	c.Prefetch("displayed", []string{"a"})
	c.Get("a")
	c.Get("b")

	assert.True(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
}

func TestEviction_KeepsTaskAwaitedByGet(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1, LRUEntries: 1})

	ha := c.Get("a")
	c.Get("b")

	// a fell out of the LRU but its waiter still gets a value.
	assert.False(t, c.Contains("a"))
	assert.Equal(t, []string{"b", "a"}, c.queuedKeys())

	startCache(t, c)

	v, err := ha.WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "value:a", v)
}

func TestEviction_ReusesDetachedTask(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1, LRUEntries: 1})

	ha := c.Get("a")
	c.Get("b")
	again := c.Get("a")

	assert.Same(t, ha, again)
	assert.Equal(t, []string{"a", "b"}, c.queuedKeys())
}

func TestHandle_ProductionFailure(t *testing.T) {
	errBoom := errors.New("boom")
	c := New(func(context.Context, string) (int, error) { return 0, errBoom }, Config{Workers: 1})
	startCache(t, c)

	h := c.Get("bad")
	_, err := h.WaitTimeout(waitFor)
	require.Error(t, err)

	var perr *ProduceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad", perr.Key)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateFailed, h.State())
	assert.Contains(t, h.String(), "state=failed")

	at, last := c.LastError()
	assert.ErrorIs(t, last, errBoom)
	assert.False(t, at.IsZero())
	assert.Equal(t, 1, c.Stats().Failed)
}

func TestHandle_TimeoutIsDistinct(t *testing.T) {
	p := newCountingProducer()
	p.gate = make(chan struct{})
	c := New(p.produce, Config{Workers: 1})
	startCache(t, c)

	h := c.Get("slow")
	_, err := h.WaitTimeout(20 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "slow")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)

	close(p.gate)
	v, err := h.WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "value:slow", v)
}

func TestHandle_StateWhileRunning(t *testing.T) {
	p := newCountingProducer()
	p.gate = make(chan struct{})
	c := New(p.produce, Config{Workers: 1})
	startCache(t, c)

	h := c.Get("a")
	require.Eventually(t, func() bool { return h.State() == StateRunning }, waitFor, time.Millisecond)
	assert.Contains(t, h.String(), "running_for=")
	assert.Equal(t, 1, c.Stats().Running)

	close(p.gate)
	_, err := h.WaitTimeout(waitFor)
	require.NoError(t, err)
	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after completion")
	}
}

func TestProducerPanicIsRecovered(t *testing.T) {
	c := New(func(_ context.Context, key string) (string, error) {
		if key == "bad" {
			panic("decoder exploded")
		}
		return key, nil
	}, Config{Workers: 1})
	startCache(t, c)

	_, err := c.Get("bad").WaitTimeout(waitFor)
	var perr *ProduceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "decoder exploded")

	v, err := c.Get("good").WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "good", v)
}

func TestStop_FailsQueuedWork(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	h := c.Get("a")
	c.Stop(time.Second)

	_, err := h.WaitTimeout(waitFor)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, StateCancelled, h.State())

	_, err = c.Get("b").WaitTimeout(waitFor)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Zero(t, p.count("a"))
}

func TestStop_WaitsForRunningProduction(t *testing.T) {
	p := newCountingProducer()
	p.gate = make(chan struct{})
	c := New(p.produce, Config{Workers: 1})
	c.Start(context.Background())

	h := c.Get("a")
	require.Eventually(t, func() bool { return h.State() == StateRunning }, waitFor, time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(p.gate)
	}()
	c.Stop(waitFor)

	v, err := h.WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, "value:a", v)
}

func TestInvalidate_ReproducesRetainedKey(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})
	startCache(t, c)

	_, err := c.Get("a").WaitTimeout(waitFor)
	require.NoError(t, err)

	c.Invalidate("a")
	_, err = c.Get("a").WaitTimeout(waitFor)
	require.NoError(t, err)
	assert.Equal(t, 2, p.count("a"))

	// Unknown keys are ignored.
	c.Invalidate("zzz")
	assert.False(t, c.Contains("zzz"))
}

func TestInvalidate_LeavesQueuedTask(t *testing.T) {
	p := newCountingProducer()
	c := New(p.produce, Config{Workers: 1})

	h := c.Get("a")
	c.Invalidate("a")

	assert.Same(t, h, c.Get("a"))
	assert.Equal(t, []string{"a"}, c.queuedKeys())
}

type recordingMetrics struct {
	hits, misses atomic.Int32
	productions  atomic.Int32
	evictions    sync.Map
	queueDepth   atomic.Int32
	entries      atomic.Int32
}

func (m *recordingMetrics) ObserveRequest(hit bool) {
	if hit {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
}

func (m *recordingMetrics) ObserveProduction(time.Duration, error) { m.productions.Add(1) }

func (m *recordingMetrics) ObserveEviction(reason string) {
	n, _ := m.evictions.LoadOrStore(reason, new(atomic.Int32))
	n.(*atomic.Int32).Add(1)
}

func (m *recordingMetrics) SetQueueDepth(n int) { m.queueDepth.Store(int32(n)) }
func (m *recordingMetrics) SetEntries(n int)    { m.entries.Store(int32(n)) }

func (m *recordingMetrics) evicted(reason string) int32 {
	n, ok := m.evictions.Load(reason)
	if !ok {
		return 0
	}
	return n.(*atomic.Int32).Load()
}

func TestMetrics(t *testing.T) {
	p := newCountingProducer()
	m := &recordingMetrics{}
	c := New(p.produce, Config{Workers: 1, LRUEntries: 1}, WithMetrics(m), WithName("test"))

	c.Prefetch("displayed", []string{"a", "b"})
	assert.EqualValues(t, 2, m.queueDepth.Load())
	assert.EqualValues(t, 2, m.entries.Load())

	c.Get("a")
	c.Get("a")
	assert.EqualValues(t, 2, m.hits.Load())

	c.Get("c")
	assert.EqualValues(t, 1, m.misses.Load())

	c.Prefetch("displayed", nil)
	assert.EqualValues(t, 2, m.evicted(EvictGroup))

	// a is still awaited by Get, b was dropped from the queue.
	startCache(t, c)
	require.Eventually(t, func() bool { return m.productions.Load() == 2 }, waitFor, 5*time.Millisecond)
	assert.Zero(t, p.count("b"))
}
