// Package prefetch implements a grouped prefetch cache: values are produced
// asynchronously by a worker pool, and are retained while their key belongs
// to a named group or sits in a small LRU of recently requested keys.
package prefetch

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/picseq/internal/logger"
)

// Producer computes the value of one key. It runs on a worker goroutine and
// may block.
type Producer[K comparable, V any] func(ctx context.Context, key K) (V, error)

// task is one production. It is referenced from entries while the key is
// retained and from inflight while queued or running.
type task[K comparable, V any] struct {
	key    K
	handle *Handle[V]
	elem   *list.Element // position in the pending queue, nil once dequeued

	// direct is set when Get asked for the key before it completed. A
	// direct task is never dropped from the queue by eviction.
	direct bool
}

// Stats is a point-in-time snapshot of the cache.
type Stats struct {
	Entries   int
	Queued    int
	Running   int
	Groups    int
	Recent    int
	Completed int
	Failed    int
}

// GroupedCache produces and retains values keyed by K.
//
// A key is retained while it is a member of at least one group or one of the
// LRUEntries most recently requested keys. Retained keys keep their value;
// keys falling out of both sets are evicted and their unstarted production
// is dropped.
type GroupedCache[K comparable, V any] struct {
	producer Producer[K, V]
	cfg      Config
	name     string
	metrics  Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	entries  map[K]*task[K, V]
	inflight map[K]*task[K, V]
	queue    *list.List // *task, front is produced first
	running  int

	groups map[string][]K
	refs   map[K]int // number of groups containing the key

	recent      *list.List // K, front is most recent
	recentIndex map[K]*list.Element

	started   bool
	stopping  bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stoppedCh chan struct{}

	completed   int
	failed      int
	lastError   error
	lastErrorAt time.Time
}

// New creates a cache producing values with producer. Call Start to launch
// the workers; requests made before Start are queued.
func New[K comparable, V any](producer Producer[K, V], cfg Config, opts ...Option) *GroupedCache[K, V] {
	o := options{name: "prefetch", metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}

	c := &GroupedCache[K, V]{
		producer:    producer,
		cfg:         cfg.withDefaults(),
		name:        o.name,
		metrics:     o.metrics,
		entries:     make(map[K]*task[K, V]),
		inflight:    make(map[K]*task[K, V]),
		queue:       list.New(),
		groups:      make(map[string][]K),
		refs:        make(map[K]int),
		recent:      list.New(),
		recentIndex: make(map[K]*list.Element),
		stoppedCh:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start launches the worker pool. Producers receive a context derived from
// ctx that is cancelled when the cache stops.
func (c *GroupedCache[K, V]) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopping {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	logger.Info("Starting prefetch cache", "cache", c.name,
		logger.KeyWorkers, c.cfg.Workers, "lru_entries", c.cfg.LRUEntries)

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}

	go func() {
		c.wg.Wait()
		close(c.stoppedCh)
	}()
}

// Stop fails every queued production with ErrStopped and waits up to
// timeout for running productions to finish.
func (c *GroupedCache[K, V]) Stop(timeout time.Duration) {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	started := c.started
	dropped := c.drainLocked()
	c.cond.Broadcast()
	c.mu.Unlock()

	if !started {
		return
	}

	logger.Info("Stopping prefetch cache", "cache", c.name,
		logger.KeyPending, dropped, "running", c.runningCount())

	select {
	case <-c.stoppedCh:
		logger.Info("Prefetch cache stopped gracefully", "cache", c.name)
	case <-time.After(timeout):
		logger.Warn("Prefetch cache stop timed out", "cache", c.name, "running", c.runningCount())
	}
	c.cancel()
}

// drainLocked fails all queued tasks. Caller holds mu.
func (c *GroupedCache[K, V]) drainLocked() int {
	n := c.queue.Len()
	for e := c.queue.Front(); e != nil; e = e.Next() {
		t := e.Value.(*task[K, V])
		t.elem = nil
		delete(c.inflight, t.key)
		var zero V
		t.handle.complete(zero, ErrStopped, StateCancelled)
	}
	c.queue.Init()
	c.metrics.SetQueueDepth(0)
	return n
}

// Prefetch replaces the membership of group with keys. Keys new to the
// cache are queued for production in the given order; keys that left the
// group and are no longer retained are evicted.
func (c *GroupedCache[K, V]) Prefetch(group string, keys []K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	members := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		members = append(members, k)
		c.refs[k]++
	}

	old := c.groups[group]
	for _, k := range old {
		if c.refs[k]--; c.refs[k] <= 0 {
			delete(c.refs, k)
		}
	}
	if len(members) == 0 {
		delete(c.groups, group)
	} else {
		c.groups[group] = members
	}

	evicted := 0
	for _, k := range old {
		if !c.retainedLocked(k) && c.evictLocked(k, EvictGroup) {
			evicted++
		}
	}

	queued := 0
	for _, k := range members {
		if _, hit := c.ensureLocked(k); !hit {
			queued++
		}
	}

	if evicted > 0 || queued > 0 {
		logger.Debug("Prefetch group updated", "cache", c.name, logger.KeyGroup, group,
			logger.KeyCount, len(members), "queued", queued, logger.KeyEvicted, evicted)
	}
	c.reportLocked()
}

// Get returns the handle for key, queuing its production if needed. The key
// becomes the most recently used one and, if still queued, is produced next.
func (c *GroupedCache[K, V]) Get(key K) *Handle[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.touchLocked(key)
	t, hit := c.ensureLocked(key)
	if t.handle.State() < StateDone {
		t.direct = true
	}
	if t.elem != nil {
		c.queue.MoveToFront(t.elem)
	}

	c.metrics.ObserveRequest(hit)
	c.reportLocked()
	return t.handle
}

// Invalidate discards the value of key. A production that already started
// is detached so that later requests produce afresh; if the key is still
// retained a new production is queued at once.
func (c *GroupedCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.entries[key]
	if !ok {
		t, ok = c.inflight[key]
		if !ok {
			return
		}
	}
	if t.elem != nil {
		// Not started yet, it will read the current content.
		return
	}

	delete(c.entries, key)
	if c.inflight[key] == t {
		delete(c.inflight, key)
	}
	c.metrics.ObserveEviction(EvictInvalidate)
	logger.Debug("Cache entry invalidated", "cache", c.name, logger.Key(key))

	if c.retainedLocked(key) {
		c.ensureLocked(key)
	}
	c.reportLocked()
}

// Contains reports whether key is retained, produced or not.
func (c *GroupedCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of retained keys.
func (c *GroupedCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Group returns the current members of a group.
func (c *GroupedCache[K, V]) Group(name string) []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]K(nil), c.groups[name]...)
}

// Pending returns the number of queued productions.
func (c *GroupedCache[K, V]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Stats returns a snapshot of the cache.
func (c *GroupedCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Queued:    c.queue.Len(),
		Running:   c.running,
		Groups:    len(c.groups),
		Recent:    c.recent.Len(),
		Completed: c.completed,
		Failed:    c.failed,
	}
}

// LastError returns when the last production failed and its error.
func (c *GroupedCache[K, V]) LastError() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErrorAt, c.lastError
}

func (c *GroupedCache[K, V]) runningCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ============================================================================
// Retention
// ============================================================================

func (c *GroupedCache[K, V]) retainedLocked(key K) bool {
	if c.refs[key] > 0 {
		return true
	}
	_, ok := c.recentIndex[key]
	return ok
}

// touchLocked moves key to the LRU head and trims the tail. Trimmed keys
// that still belong to a group are kept.
func (c *GroupedCache[K, V]) touchLocked(key K) {
	if e, ok := c.recentIndex[key]; ok {
		c.recent.MoveToFront(e)
	} else {
		c.recentIndex[key] = c.recent.PushFront(key)
	}

	for c.recent.Len() > c.cfg.LRUEntries {
		tail := c.recent.Back()
		k := c.recent.Remove(tail).(K)
		delete(c.recentIndex, k)
		if c.refs[k] == 0 {
			c.evictLocked(k, EvictLRU)
		}
	}
}

// ensureLocked returns the task for key, creating and queuing one when the
// key has neither a retained value nor a production in flight.
func (c *GroupedCache[K, V]) ensureLocked(key K) (*task[K, V], bool) {
	if t, ok := c.entries[key]; ok {
		return t, true
	}
	if t, ok := c.inflight[key]; ok {
		c.entries[key] = t
		return t, true
	}

	t := &task[K, V]{key: key, handle: newHandle[V](fmt.Sprint(key))}
	if c.stopping {
		var zero V
		t.handle.complete(zero, ErrStopped, StateCancelled)
		return t, false
	}
	c.entries[key] = t
	c.inflight[key] = t
	t.elem = c.queue.PushBack(t)
	c.cond.Signal()
	return t, false
}

// evictLocked forgets key. A queued production is dropped unless a Get is
// waiting on it; a running one completes for its current waiters only.
func (c *GroupedCache[K, V]) evictLocked(key K, reason string) bool {
	t, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)

	if t.elem != nil && !t.direct {
		c.queue.Remove(t.elem)
		t.elem = nil
		delete(c.inflight, key)
		var zero V
		t.handle.complete(zero, ErrEvicted, StateCancelled)
	}

	c.metrics.ObserveEviction(reason)
	logger.Debug("Cache entry evicted", "cache", c.name, logger.Key(key), logger.KeyReason, reason)
	return true
}

func (c *GroupedCache[K, V]) reportLocked() {
	c.metrics.SetQueueDepth(c.queue.Len())
	c.metrics.SetEntries(len(c.entries))
}

// queuedKeys lists the pending queue front to back.
func (c *GroupedCache[K, V]) queuedKeys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.queue.Len())
	for e := c.queue.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*task[K, V]).key)
	}
	return keys
}

// ============================================================================
// Workers
// ============================================================================

func (c *GroupedCache[K, V]) worker(ctx context.Context, id int) {
	defer c.wg.Done()

	logger.Debug("Prefetch worker started", "cache", c.name, "worker_id", id)

	for {
		c.mu.Lock()
		for c.queue.Len() == 0 && !c.stopping {
			c.cond.Wait()
		}
		if c.stopping {
			c.mu.Unlock()
			logger.Debug("Prefetch worker stopped", "cache", c.name, "worker_id", id)
			return
		}
		t := c.queue.Remove(c.queue.Front()).(*task[K, V])
		t.elem = nil
		t.handle.markRunning()
		c.running++
		c.metrics.SetQueueDepth(c.queue.Len())
		c.mu.Unlock()

		c.process(ctx, t)
	}
}

func (c *GroupedCache[K, V]) process(ctx context.Context, t *task[K, V]) {
	start := time.Now()
	v, err := c.produce(ctx, t.key)
	c.metrics.ObserveProduction(time.Since(start), err)

	c.mu.Lock()
	c.running--
	if c.inflight[t.key] == t {
		delete(c.inflight, t.key)
	}
	if err != nil {
		c.failed++
		c.lastError = err
		c.lastErrorAt = time.Now()
	} else {
		c.completed++
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warn("Production failed", "cache", c.name, logger.Key(t.key),
			logger.DurationMs(start), logger.Err(err))
		t.handle.complete(v, &ProduceError{Key: t.handle.key, Err: err}, StateFailed)
		return
	}
	t.handle.complete(v, nil, StateDone)
}

// produce runs the producer, turning a panic into an error.
func (c *GroupedCache[K, V]) produce(ctx context.Context, key K) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	return c.producer(ctx, key)
}
