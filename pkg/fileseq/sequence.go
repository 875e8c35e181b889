// Package fileseq provides cursors over ordered sequences of image files.
//
// Two scanners are available: SimpleScanner walks the images of a single
// directory, TreeScanner walks a pre-order depth-first traversal of a whole
// directory tree. Both scan lazily on a background goroutine and block
// position reads until the scan they depend on has completed.
package fileseq

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/language"
)

// DefaultWindow is the number of images kept reachable without rescanning on
// each side of a tree scanner's cursor.
const DefaultWindow = 1000

// Scanner is a movable cursor over an ordered sequence of image files.
//
// Except for Current, every position operation blocks until the scan started
// by Start, Reload or SetCurrent has completed.
type Scanner interface {
	// Start begins the initial scan. onReady, if non-nil, runs once it completes.
	Start(onReady func())

	// Current returns the file at the cursor, or the starting file while the
	// scan is still running.
	Current() string

	// MoveNext advances by one and reports whether the cursor moved.
	MoveNext() bool

	// MovePrevious retreats by one and reports whether the cursor moved.
	MovePrevious() bool

	// Move moves by diff positions and returns how many it actually moved,
	// which is smaller in magnitude at a boundary.
	Move(diff int) int

	// Next returns up to n files after the cursor, in traversal order.
	Next(n int) []string

	// Previous returns up to n files before the cursor, in traversal order.
	Previous(n int) []string

	// Window returns Previous(n), Current and Next(n) read at one cursor
	// position.
	Window(n int) (prev []string, cur string, next []string)

	// Reload rescans asynchronously; onDone, if non-nil, runs on completion.
	Reload(onDone func())

	// SetCurrent repoints the cursor at path.
	SetCurrent(path string)

	// Close stops the background goroutine once queued scans are done.
	Close() error
}

// Metrics receives scanner observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveScan(duration time.Duration, err error)
	ObserveMove(requested, moved int)
	SetCachedDirs(n int)
}

// Options configures a scanner. The zero value is usable.
type Options struct {
	// Comparator orders images and directories. Defaults to Alphabetical(Locale).
	Comparator Comparator

	// Locale drives the default alphabetical collation.
	Locale language.Tag

	// Filter selects images. Defaults to NewFilter().
	Filter *Filter

	// Window is the tree scanner's listing retention in images per side.
	// Zero selects DefaultWindow.
	Window int

	// Root bounds the tree traversal from above. Empty means the filesystem root.
	Root string

	Metrics Metrics
}

func (o Options) withDefaults() Options {
	if o.Comparator == nil {
		o.Comparator = Alphabetical(o.Locale)
	}
	if o.Filter == nil {
		o.Filter = NewFilter()
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Root != "" {
		o.Root = filepath.Clean(o.Root)
	}
	return o
}

// ComparatorFor returns the ordering used by strategy.
func ComparatorFor(strategy Strategy, locale language.Tag) Comparator {
	cmp := Alphabetical(locale)
	if strategy.ByTime() {
		cmp = ByTime(cmp)
	}
	return cmp
}

// New builds the scanner for strategy positioned at start and starts its
// initial scan. Unknown strategies fail with ErrUnknownStrategy and no
// scanner is created.
func New(fs afero.Fs, strategy Strategy, start string, opts Options, onReady func()) (Scanner, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if opts.Comparator == nil {
		opts.Comparator = ComparatorFor(strategy, opts.Locale)
	}

	var s Scanner
	if strategy.Tree() {
		opts.Filter = treeFilter(opts.Filter)
		s = NewTreeScanner(fs, start, opts)
	} else {
		s = NewSimpleScanner(fs, start, opts)
	}
	s.Start(onReady)
	return s, nil
}

// treeFilter returns a filter that skips hidden entries, as tree traversal
// never descends into dot directories.
func treeFilter(f *Filter) *Filter {
	if f == nil {
		return NewFilter()
	}
	if !f.IncludeHidden {
		return f
	}
	clone := *f
	clone.IncludeHidden = false
	return &clone
}

// ListImages returns the images directly inside dir, sorted the way strategy
// orders them. Hidden files follow opts.Filter.
func ListImages(fs afero.Fs, dir string, strategy Strategy, opts Options) ([]Entry, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if opts.Comparator == nil {
		opts.Comparator = ComparatorFor(strategy, opts.Locale)
	}
	opts = opts.withDefaults()

	d := newDirInfo(filepath.Clean(dir))
	if err := d.scan(fs, opts.Comparator, opts.Filter); err != nil {
		return nil, err
	}
	return d.Images(), nil
}
