package fileseq

import "sync"

// executor runs submitted jobs one at a time, in submission order, on a
// single goroutine. Jobs queued before close still run.
type executor struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newExecutor() *executor {
	e := &executor{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *executor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			<-e.wake
			continue
		}
		job := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		job()
	}
}

// submit queues job. It reports false once the executor is closed.
func (e *executor) submit(job func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, job)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// barrier blocks until every job submitted before it has run.
func (e *executor) barrier() {
	ch := make(chan struct{})
	if !e.submit(func() { close(ch) }) {
		<-e.done
		return
	}
	<-ch
}

// close stops accepting jobs and waits for the queue to drain.
func (e *executor) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	<-e.done
}
