package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned by Handle.Wait when the wait deadline passes
	// before the value is produced.
	ErrTimeout = errors.New("timed out waiting for value")

	// ErrEvicted completes handles whose queued production was dropped
	// because the key is no longer retained.
	ErrEvicted = errors.New("entry evicted before production")

	// ErrStopped completes handles for work that can no longer run because
	// the cache was stopped.
	ErrStopped = errors.New("cache stopped")
)

// ProduceError wraps a failure of the producer for one key.
type ProduceError struct {
	Key string
	Err error
}

func (e *ProduceError) Error() string {
	return fmt.Sprintf("producing %s: %v", e.Key, e.Err)
}

func (e *ProduceError) Unwrap() error { return e.Err }

// State is the lifecycle stage of a production.
type State int32

const (
	StateQueued State = iota
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle is the eventual result of producing the value of one key. Every
// caller requesting the same production receives the same Handle.
type Handle[V any] struct {
	key     string
	created time.Time
	started atomic.Int64
	state   atomic.Int32
	done    chan struct{}

	// value and err are written once, before done is closed.
	value V
	err   error
}

func newHandle[V any](key string) *Handle[V] {
	return &Handle[V]{
		key:     key,
		created: time.Now(),
		done:    make(chan struct{}),
	}
}

func (h *Handle[V]) markRunning() {
	h.started.Store(time.Now().UnixNano())
	h.state.Store(int32(StateRunning))
}

func (h *Handle[V]) complete(v V, err error, st State) {
	h.value, h.err = v, err
	h.state.Store(int32(st))
	close(h.done)
}

// Done is closed once the value, or its failure, is available.
func (h *Handle[V]) Done() <-chan struct{} { return h.done }

// State reports the current lifecycle stage.
func (h *Handle[V]) State() State { return State(h.state.Load()) }

// Key returns the printed form of the key being produced.
func (h *Handle[V]) Key() string { return h.key }

// Wait blocks until the value is available or ctx ends. A ctx deadline is
// reported as ErrTimeout; production failures as *ProduceError.
func (h *Handle[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-h.done:
		return h.value, h.err
	default:
	}

	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		var zero V
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %s (%s)", ErrTimeout, h.key, h.State())
		}
		return zero, ctx.Err()
	}
}

// WaitTimeout is Wait bounded by d.
func (h *Handle[V]) WaitTimeout(d time.Duration) (V, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return h.Wait(ctx)
}

// String describes the production for diagnostics.
func (h *Handle[V]) String() string {
	st := h.State()
	s := fmt.Sprintf("key=%s state=%s age=%s", h.key, st, time.Since(h.created).Round(time.Millisecond))
	if started := h.started.Load(); started != 0 && st == StateRunning {
		s += fmt.Sprintf(" running_for=%s", time.Since(time.Unix(0, started)).Round(time.Millisecond))
	}
	if st == StateFailed || st == StateCancelled {
		s += fmt.Sprintf(" error=%q", h.err)
	}
	return s
}
