package fileseq

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/spf13/afero"
)

// SimpleScanner is a cursor over the images of a single directory, the
// parent of the starting file. When the directory cannot be listed, or holds
// no image, the starting file is the only entry.
type SimpleScanner struct {
	fs      afero.Fs
	cmp     Comparator
	filter  *Filter
	metrics Metrics
	exec    *executor
	once    sync.Once

	mu    sync.Mutex
	ready readiness
	start string
	dir   *DirInfo
	files []Entry
	idx   int
}

var _ Scanner = (*SimpleScanner)(nil)

// NewSimpleScanner creates a scanner positioned at start. Call Start to scan.
func NewSimpleScanner(fs afero.Fs, start string, opts Options) *SimpleScanner {
	opts = opts.withDefaults()
	s := &SimpleScanner{
		fs:      fs,
		cmp:     opts.Comparator,
		filter:  opts.Filter,
		metrics: opts.Metrics,
		exec:    newExecutor(),
		start:   filepath.Clean(start),
	}
	s.ready = newReadiness(&s.mu)
	return s
}

func (s *SimpleScanner) Start(onReady func()) {
	s.mu.Lock()
	gen := s.ready.begin()
	start := s.start
	s.mu.Unlock()

	s.submit(func() { s.load(gen, start, nil, onReady) })
}

func (s *SimpleScanner) submit(job func()) {
	if !s.exec.submit(job) {
		job()
	}
}

// load lists the directory of path and positions the cursor on path, or on
// its nearest successor when path is not listed. fallback describes path
// when it can no longer be stat'ed.
func (s *SimpleScanner) load(gen uint64, path string, fallback *Entry, onDone func()) {
	defer func() {
		if onDone != nil {
			onDone()
		}
	}()

	began := time.Now()
	target, err := statEntry(s.fs, path)
	if err != nil && fallback != nil {
		target = *fallback
	}

	dir := newDirInfo(filepath.Dir(path))
	scanErr := dir.scan(s.fs, s.cmp, s.filter)
	if scanErr != nil {
		logger.Debug("Directory listing unavailable", logger.KeyDir, dir.Path, logger.KeyError, scanErr)
	}
	if s.metrics != nil {
		s.metrics.ObserveScan(time.Since(began), scanErr)
	}

	files := dir.images
	idx := 0
	if len(files) == 0 {
		files = []Entry{target}
	} else if i, _ := dir.locate(target, s.cmp); i < len(files) {
		idx = i
	} else {
		idx = len(files) - 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.ready.gen {
		return
	}
	s.dir, s.files, s.idx = dir, files, idx
	s.ready.finish(gen)

	logger.Debug("Directory scanned",
		logger.KeyDir, dir.Path,
		logger.KeyCount, len(dir.images),
		logger.KeyDurationMs, logger.Duration(began))
}

func (s *SimpleScanner) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.ready() {
		return s.start
	}
	return s.files[s.idx].Path
}

func (s *SimpleScanner) MoveNext() bool { return s.Move(1) == 1 }

func (s *SimpleScanner) MovePrevious() bool { return s.Move(-1) == -1 }

func (s *SimpleScanner) Move(diff int) int {
	s.ready.lockReady()
	target := min(max(s.idx+diff, 0), len(s.files)-1)
	moved := target - s.idx
	s.idx = target
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveMove(diff, moved)
	}
	return moved
}

func (s *SimpleScanner) Next(n int) []string {
	s.ready.lockReady()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	end := min(s.idx+1+n, len(s.files))
	return paths(s.files[s.idx+1 : end])
}

func (s *SimpleScanner) Previous(n int) []string {
	s.ready.lockReady()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	return paths(s.files[max(s.idx-n, 0):s.idx])
}

func (s *SimpleScanner) Window(n int) (prev []string, cur string, next []string) {
	s.ready.lockReady()
	defer s.mu.Unlock()
	cur = s.files[s.idx].Path
	if n <= 0 {
		return nil, cur, nil
	}
	prev = paths(s.files[max(s.idx-n, 0):s.idx])
	next = paths(s.files[s.idx+1 : min(s.idx+1+n, len(s.files))])
	return prev, cur, next
}

func (s *SimpleScanner) Reload(onDone func()) {
	s.mu.Lock()
	path := s.start
	var fallback *Entry
	if s.ready.ready() {
		e := s.files[s.idx]
		path, fallback = e.Path, &e
	}
	gen := s.ready.begin()
	s.mu.Unlock()

	s.submit(func() { s.load(gen, path, fallback, onDone) })
}

func (s *SimpleScanner) SetCurrent(path string) {
	path = filepath.Clean(path)

	s.mu.Lock()
	s.start = path
	gen := s.ready.begin()
	s.mu.Unlock()

	s.submit(func() { s.load(gen, path, nil, nil) })
}

// Dir returns the directory listing the cursor moves over, or nil before the
// first scan completes.
func (s *SimpleScanner) Dir() *DirInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

func (s *SimpleScanner) Close() error {
	s.once.Do(s.exec.close)
	return nil
}

func paths(entries []Entry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
