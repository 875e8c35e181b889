package fileseq

import "sync"

type scanState int

const (
	stateUninitialized scanState = iota
	stateScanning
	stateReady
)

func (s scanState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateScanning:
		return "scanning"
	case stateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// readiness tracks whether a scanner's cursor may be read. Each scan
// generation owns a one-shot done channel that is closed when the newest
// generation finishes; superseded generations never close it. All methods
// require the owner's mutex, which is also mu.
type readiness struct {
	mu    *sync.Mutex
	state scanState
	gen   uint64
	done  chan struct{}
}

func newReadiness(mu *sync.Mutex) readiness {
	return readiness{mu: mu, done: make(chan struct{})}
}

// begin starts a new scan generation and returns its number.
func (r *readiness) begin() uint64 {
	if r.state == stateReady {
		r.done = make(chan struct{})
	}
	r.state = stateScanning
	r.gen++
	return r.gen
}

// finish marks generation gen complete. It reports false when a newer
// generation has started in the meantime.
func (r *readiness) finish(gen uint64) bool {
	if gen != r.gen || r.state != stateScanning {
		return false
	}
	r.state = stateReady
	close(r.done)
	return true
}

func (r *readiness) ready() bool { return r.state == stateReady }

// lockReady acquires mu and waits, releasing it while blocked, until the
// scanner is ready. It returns with mu held.
func (r *readiness) lockReady() {
	r.mu.Lock()
	for r.state != stateReady {
		done := r.done
		r.mu.Unlock()
		<-done
		r.mu.Lock()
	}
}
