package fileseq

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/spf13/afero"
)

// cursor points at one image of a cached directory listing.
type cursor struct {
	dir *DirInfo
	idx int
}

func (c cursor) valid() bool { return c.dir != nil }

func (c cursor) entry() Entry { return c.dir.images[c.idx] }

func (c cursor) equal(o cursor) bool {
	if c.dir == nil || o.dir == nil {
		return c.dir == o.dir
	}
	return c.dir.Path == o.dir.Path && c.idx == o.idx
}

// TreeScanner is a cursor over a pre-order depth-first traversal of a
// directory tree: a directory's own images come first, then the traversals
// of its sub-directories in sibling order. Directories without images are
// scanned but never hold the cursor.
//
// Listings are cached per directory and trimmed after every cursor change to
// the directories touched while walking from Window images before the cursor
// to Window images after it.
type TreeScanner struct {
	fs      afero.Fs
	cmp     Comparator
	filter  *Filter
	window  int
	root    string
	metrics Metrics
	exec    *executor
	once    sync.Once

	mu       sync.Mutex
	ready    readiness
	start    string
	dirs     map[string]*DirInfo
	cur      cursor
	windowed cursor
	dirty    bool
	visit    func(path string)
}

var _ Scanner = (*TreeScanner)(nil)

// NewTreeScanner creates a scanner positioned at start. Call Start to scan.
func NewTreeScanner(fs afero.Fs, start string, opts Options) *TreeScanner {
	opts = opts.withDefaults()
	s := &TreeScanner{
		fs:      fs,
		cmp:     opts.Comparator,
		filter:  opts.Filter,
		window:  opts.Window,
		root:    opts.Root,
		metrics: opts.Metrics,
		exec:    newExecutor(),
		start:   filepath.Clean(start),
		dirs:    make(map[string]*DirInfo),
	}
	s.ready = newReadiness(&s.mu)
	return s
}

func (s *TreeScanner) Start(onReady func()) {
	s.mu.Lock()
	gen := s.ready.begin()
	start := s.start
	s.mu.Unlock()

	s.submit(func() { s.resolveJob(gen, start, nil, false, onReady) })
}

func (s *TreeScanner) submit(job func()) {
	if !s.exec.submit(job) {
		job()
	}
}

// resolveJob positions the cursor on path with a fresh listing of its
// directory. reset drops every cached listing first.
func (s *TreeScanner) resolveJob(gen uint64, path string, fallback *Entry, reset bool, onDone func()) {
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

	s.mu.Lock()
	if gen != s.ready.gen {
		s.mu.Unlock()
		return
	}
	if reset {
		clear(s.dirs)
	}

	if target.IsDir {
		delete(s.dirs, path)
		d := s.dirInfo(path)
		s.cur = s.firstFrom(d)
	} else {
		dirPath := filepath.Dir(path)
		delete(s.dirs, dirPath)
		s.cur, _ = s.resolve(s.dirInfo(dirPath), target)
	}
	s.dirty = true
	s.ready.finish(gen)
	current := s.start
	if s.cur.valid() {
		current = s.cur.entry().Path
	}
	s.mu.Unlock()

	logger.Debug("Tree cursor resolved",
		logger.KeyPath, current,
		logger.KeyDurationMs, logger.Duration(began))

	s.trim()
}

// resolve positions on e within d. A missing entry resolves to its nearest
// successor in traversal order, or to its predecessor when nothing follows.
func (s *TreeScanner) resolve(d *DirInfo, e Entry) (cursor, bool) {
	idx, _ := d.locate(e, s.cmp)
	if idx < len(d.images) {
		return cursor{d, idx}, true
	}
	if c, ok := s.seekForward(d, 0); ok {
		return c, true
	}
	if len(d.images) > 0 {
		return cursor{d, len(d.images) - 1}, true
	}
	return s.seekBackward(d)
}

// firstFrom returns the first image at or after directory d.
func (s *TreeScanner) firstFrom(d *DirInfo) cursor {
	if c, ok := s.firstIn(d); ok {
		return c
	}
	if c, ok := s.seekForward(d, len(d.subDirs)); ok {
		return c
	}
	c, _ := s.seekBackward(d)
	return c
}

// dirInfo returns the cached listing of path, scanning it on first use.
// Must be called with mu held.
func (s *TreeScanner) dirInfo(path string) *DirInfo {
	if s.visit != nil {
		s.visit(path)
	}
	if d, ok := s.dirs[path]; ok {
		return d
	}

	began := time.Now()
	d := newDirInfo(path)
	err := d.scan(s.fs, s.cmp, s.filter)
	if err != nil {
		logger.Debug("Directory listing unavailable", logger.KeyDir, path, logger.KeyError, err)
	}
	if s.metrics != nil {
		s.metrics.ObserveScan(time.Since(began), err)
	}
	s.dirs[path] = d
	s.dirty = true
	return d
}

// parentOf returns the listing of d's parent and d's position among the
// parent's sub-directories. found is false when d is not listed there, in
// which case pos is where it would sort. ok is false at the traversal root.
func (s *TreeScanner) parentOf(d *DirInfo) (parent *DirInfo, pos int, found, ok bool) {
	if d.Path == s.root {
		return nil, 0, false, false
	}
	pp := filepath.Dir(d.Path)
	if pp == d.Path {
		return nil, 0, false, false
	}
	parent = s.dirInfo(pp)

	self := d.entry
	if self.Path == "" {
		self = Entry{Path: d.Path, Name: filepath.Base(d.Path), IsDir: true}
	}
	pos, found = parent.locateDir(self, s.cmp)
	return parent, pos, found, true
}

func (s *TreeScanner) firstIn(d *DirInfo) (cursor, bool) {
	if len(d.images) > 0 {
		return cursor{d, 0}, true
	}
	for _, sub := range d.subDirs {
		if c, ok := s.firstIn(s.dirInfo(sub.Path)); ok {
			return c, true
		}
	}
	return cursor{}, false
}

func (s *TreeScanner) lastIn(d *DirInfo) (cursor, bool) {
	for j := len(d.subDirs) - 1; j >= 0; j-- {
		if c, ok := s.lastIn(s.dirInfo(d.subDirs[j].Path)); ok {
			return c, true
		}
	}
	if len(d.images) > 0 {
		return cursor{d, len(d.images) - 1}, true
	}
	return cursor{}, false
}

// seekForward finds the first image in the sub-directories of d from index
// from onwards, climbing to later siblings of d's ancestors as needed.
func (s *TreeScanner) seekForward(d *DirInfo, from int) (cursor, bool) {
	for {
		for j := from; j < len(d.subDirs); j++ {
			if c, ok := s.firstIn(s.dirInfo(d.subDirs[j].Path)); ok {
				return c, true
			}
		}
		parent, pos, found, ok := s.parentOf(d)
		if !ok {
			return cursor{}, false
		}
		if found {
			pos++
		}
		d, from = parent, pos
	}
}

// seekBackward finds the last image preceding the whole subtree of d: the
// last image of an earlier sibling's subtree, else the parent's own last
// image, climbing further as needed.
func (s *TreeScanner) seekBackward(d *DirInfo) (cursor, bool) {
	for {
		parent, pos, _, ok := s.parentOf(d)
		if !ok {
			return cursor{}, false
		}
		for j := pos - 1; j >= 0; j-- {
			if c, ok := s.lastIn(s.dirInfo(parent.subDirs[j].Path)); ok {
				return c, true
			}
		}
		if len(parent.images) > 0 {
			return cursor{parent, len(parent.images) - 1}, true
		}
		d = parent
	}
}

func (s *TreeScanner) stepForward(c cursor) (cursor, bool) {
	if c.idx+1 < len(c.dir.images) {
		return cursor{c.dir, c.idx + 1}, true
	}
	return s.seekForward(c.dir, 0)
}

func (s *TreeScanner) stepBackward(c cursor) (cursor, bool) {
	if c.idx > 0 {
		return cursor{c.dir, c.idx - 1}, true
	}
	return s.seekBackward(c.dir)
}

// move applies diff single steps to c and returns the resulting cursor and
// the signed number of steps actually taken.
func (s *TreeScanner) move(c cursor, diff int) (cursor, int) {
	moved := 0
	for moved < diff {
		n, ok := s.stepForward(c)
		if !ok {
			break
		}
		c, moved = n, moved+1
	}
	for moved > diff {
		n, ok := s.stepBackward(c)
		if !ok {
			break
		}
		c, moved = n, moved-1
	}
	return c, moved
}

// trim recomputes the retention window around the cursor and evicts every
// listing outside it. It runs on the executor.
func (s *TreeScanner) trim() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready.ready() || !s.cur.valid() {
		return
	}
	if s.cur.equal(s.windowed) && !s.dirty {
		return
	}

	lower, back := s.move(s.cur, -s.window)
	_, fwd := s.move(s.cur, s.window)

	keep := map[string]struct{}{lower.dir.Path: {}}
	s.visit = func(path string) { keep[path] = struct{}{} }
	s.move(lower, fwd-back)
	s.visit = nil

	evicted := 0
	for path := range s.dirs {
		if _, ok := keep[path]; !ok {
			delete(s.dirs, path)
			evicted++
		}
	}
	s.windowed = s.cur
	s.dirty = false

	if s.metrics != nil {
		s.metrics.SetCachedDirs(len(s.dirs))
	}
	if evicted > 0 {
		logger.Debug("Listing cache trimmed",
			logger.KeyWindow, s.window,
			logger.KeyEntries, len(s.dirs),
			logger.KeyEvicted, evicted)
	}
}

func (s *TreeScanner) scheduleTrim() {
	s.submit(s.trim)
}

func (s *TreeScanner) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.ready() || !s.cur.valid() {
		return s.start
	}
	return s.cur.entry().Path
}

func (s *TreeScanner) MoveNext() bool { return s.Move(1) == 1 }

func (s *TreeScanner) MovePrevious() bool { return s.Move(-1) == -1 }

func (s *TreeScanner) Move(diff int) int {
	s.ready.lockReady()
	if !s.cur.valid() {
		s.mu.Unlock()
		return 0
	}
	var moved int
	s.cur, moved = s.move(s.cur, diff)
	dirty := s.dirty
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveMove(diff, moved)
	}
	if moved != 0 || dirty {
		s.scheduleTrim()
	}
	return moved
}

func (s *TreeScanner) Next(n int) []string {
	return s.walk(n, s.stepForward)
}

func (s *TreeScanner) Previous(n int) []string {
	return reversed(s.walk(n, s.stepBackward))
}

func (s *TreeScanner) Window(n int) (prev []string, cur string, next []string) {
	s.ready.lockReady()
	cur = s.start
	if s.cur.valid() {
		cur = s.cur.entry().Path
	}
	next = s.collectLocked(n, s.stepForward)
	prev = reversed(s.collectLocked(n, s.stepBackward))
	dirty := s.dirty
	s.mu.Unlock()

	if dirty {
		s.scheduleTrim()
	}
	return prev, cur, next
}

// walk collects up to n paths by stepping a copy of the cursor.
func (s *TreeScanner) walk(n int, step func(cursor) (cursor, bool)) []string {
	s.ready.lockReady()
	out := s.collectLocked(n, step)
	dirty := s.dirty
	s.mu.Unlock()

	if dirty {
		s.scheduleTrim()
	}
	return out
}

func (s *TreeScanner) collectLocked(n int, step func(cursor) (cursor, bool)) []string {
	if !s.cur.valid() || n <= 0 {
		return nil
	}
	var out []string
	c := s.cur
	for len(out) < n {
		next, ok := step(c)
		if !ok {
			break
		}
		c = next
		out = append(out, c.entry().Path)
	}
	return out
}

func reversed(paths []string) []string {
	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

func (s *TreeScanner) Reload(onDone func()) {
	s.mu.Lock()
	path := s.start
	var fallback *Entry
	if s.ready.ready() && s.cur.valid() {
		e := s.cur.entry()
		path, fallback = e.Path, &e
	}
	gen := s.ready.begin()
	s.mu.Unlock()

	s.submit(func() { s.resolveJob(gen, path, fallback, true, onDone) })
}

func (s *TreeScanner) SetCurrent(path string) {
	path = filepath.Clean(path)

	s.ready.lockReady()
	if s.cur.valid() && s.cur.entry().Path == path {
		s.mu.Unlock()
		return
	}
	s.start = path
	gen := s.ready.begin()
	s.mu.Unlock()

	s.submit(func() { s.resolveJob(gen, path, nil, false, nil) })
}

// CachedDirs returns the sorted paths of the cached directory listings once
// pending window recomputations have run.
func (s *TreeScanner) CachedDirs() []string {
	s.exec.barrier()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dirs))
	for path := range s.dirs {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (s *TreeScanner) Close() error {
	s.once.Do(s.exec.close)
	return nil
}
