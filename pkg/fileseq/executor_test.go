package fileseq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutorRunsJobsInOrder(t *testing.T) {
	e := newExecutor()

	var got []int
	for i := 0; i < 100; i++ {
		assert.True(t, e.submit(func() { got = append(got, i) }))
	}
	e.barrier()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)

	e.close()
	assert.False(t, e.submit(func() {}))
	e.barrier() // returns immediately once closed
}

func TestExecutorDrainsOnClose(t *testing.T) {
	e := newExecutor()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		e.submit(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	e.close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

func TestReadinessGenerations(t *testing.T) {
	var mu sync.Mutex
	r := newReadiness(&mu)
	assert.Equal(t, "uninitialized", r.state.String())

	first := r.begin()
	second := r.begin()
	done := r.done

	assert.False(t, r.finish(first), "superseded generation must not complete")
	assert.False(t, r.ready())

	assert.True(t, r.finish(second))
	assert.True(t, r.ready())
	select {
	case <-done:
	default:
		t.Fatal("done channel not closed")
	}

	r.begin()
	assert.NotEqual(t, done, r.done, "a new generation gets a fresh channel")
	assert.Equal(t, "scanning", r.state.String())
}
