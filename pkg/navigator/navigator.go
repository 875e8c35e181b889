// Package navigator drives image browsing: it owns the active scanner,
// keeps the prefetch window around the displayed image and hands out
// decoded images with a bounded wait.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/internal/telemetry"
	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrLastImage    = errors.New("already at the last image")
	ErrFirstImage   = errors.New("already at the first image")
	ErrNoImage      = errors.New("no image to display")
	ErrInvalidImage = errors.New("image has no drawable area")
	ErrNotOpen      = errors.New("navigator not opened")
)

const (
	DefaultHalfWidth   = 10
	DefaultLoadTimeout = 10 * time.Second
)

// Operation names used in logs, spans and metrics.
const (
	OpDisplay  = "display"
	OpNext     = "next"
	OpPrevious = "previous"
	OpMove     = "move"
	OpReload   = "reload"
	OpSwitch   = "switch"
	OpSet      = "set_current"
)

// ImageCache is the prefetch cache of decoded images.
type ImageCache interface {
	Grouper
	Get(key string) *prefetch.Handle[*imageload.Image]
	Invalidate(key string)
}

// Metrics receives navigation observations.
type Metrics interface {
	ObserveDisplay(d time.Duration, err error)
	ObserveNavigation(op string, err error)
}

// Config configures a Navigator.
type Config struct {
	Strategy fileseq.Strategy

	// Scanner options shared by every scanner the navigator builds. The
	// comparator is derived from Strategy when unset.
	Scanner fileseq.Options

	// HalfWidth is the number of neighbours prefetched on each side. 0
	// prefetches only the current image; negative means DefaultHalfWidth.
	HalfWidth int

	// LoadTimeout bounds the wait for the displayed image.
	LoadTimeout time.Duration

	// ScannerMetrics builds the metrics for a scanner of the given strategy.
	ScannerMetrics func(fileseq.Strategy) fileseq.Metrics

	Metrics Metrics
}

// Navigator is safe for concurrent use.
type Navigator struct {
	fs        afero.Fs
	cache     ImageCache
	cfg       Config
	sessionID string

	mu         sync.RWMutex
	strategy   fileseq.Strategy
	scanner    fileseq.Scanner
	prefetcher *Prefetcher
}

// New creates a navigator over fs. Call Open before navigating.
func New(fs afero.Fs, cache ImageCache, cfg Config) *Navigator {
	if cfg.HalfWidth < 0 {
		cfg.HalfWidth = DefaultHalfWidth
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.Strategy == "" {
		cfg.Strategy = fileseq.CurrentDirAlphabetical
	}
	return &Navigator{
		fs:        fs,
		cache:     cache,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		strategy:  cfg.Strategy,
	}
}

// SessionID identifies this navigator in logs and traces.
func (n *Navigator) SessionID() string { return n.sessionID }

// Strategy returns the active traversal strategy.
func (n *Navigator) Strategy() fileseq.Strategy {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.strategy
}

// Open starts browsing at start, a file or directory, with the configured
// strategy. It returns once the initial scan completed.
func (n *Navigator) Open(ctx context.Context, start string) error {
	return n.open(ctx, n.Strategy(), start)
}

// SwitchTo changes the traversal strategy, keeping the current file.
func (n *Navigator) SwitchTo(ctx context.Context, strategy fileseq.Strategy) error {
	ctx = n.logContext(ctx, OpSwitch)
	cur := n.Current()
	if cur == "" {
		return ErrNotOpen
	}
	err := n.open(ctx, strategy, cur)
	n.observe(OpSwitch, err)
	if err == nil {
		logger.InfoCtx(ctx, "Strategy switched", logger.Strategy(strategy.String()), logger.Path(cur))
	}
	return err
}

func (n *Navigator) open(ctx context.Context, strategy fileseq.Strategy, start string) error {
	opts := n.cfg.Scanner
	opts.Comparator = nil
	if n.cfg.Scanner.Comparator != nil && strategy == n.cfg.Strategy {
		opts.Comparator = n.cfg.Scanner.Comparator
	}
	if n.cfg.ScannerMetrics != nil {
		opts.Metrics = n.cfg.ScannerMetrics(strategy)
	}

	ready := make(chan struct{})
	s, err := fileseq.New(n.fs, strategy, start, opts, func() { close(ready) })
	if err != nil {
		return err
	}

	select {
	case <-ready:
	case <-ctx.Done():
		_ = s.Close()
		return ctx.Err()
	}

	n.mu.Lock()
	old := n.scanner
	n.strategy = strategy
	n.scanner = s
	n.prefetcher = NewPrefetcher(s, n.cache)
	n.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	logger.DebugCtx(ctx, "Scanner ready",
		logger.Strategy(strategy.String()), logger.Path(start), logger.KeyRoot, opts.Root)
	return nil
}

func (n *Navigator) active() (fileseq.Scanner, *Prefetcher) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scanner, n.prefetcher
}

// Current returns the current file, or "" before Open.
func (n *Navigator) Current() string {
	s, _ := n.active()
	if s == nil {
		return ""
	}
	return s.Current()
}

// Window returns up to size files before and after the current one, in
// sequence order.
func (n *Navigator) Window(size int) (prev, next []string) {
	s, _ := n.active()
	if s == nil {
		return nil, nil
	}
	prev, _, next = s.Window(size)
	return prev, next
}

// Display prefetches the window around the current file and waits for its
// image.
func (n *Navigator) Display(ctx context.Context) (*imageload.Image, error) {
	_, p := n.active()
	if p == nil {
		return nil, ErrNotOpen
	}

	ctx = n.logContext(ctx, OpDisplay)
	cur := p.PrefetchWindow(n.cfg.HalfWidth)

	ctx, span := telemetry.StartNavigationSpan(ctx, telemetry.SpanDisplay, n.sessionID, cur,
		telemetry.Strategy(n.Strategy().String()),
		telemetry.Window(n.cfg.HalfWidth))
	defer span.End()

	start := time.Now()
	img, err := n.load(ctx, span, cur)
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.ObserveDisplay(time.Since(start), err)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return img, nil
}

func (n *Navigator) load(ctx context.Context, span trace.Span, path string) (*imageload.Image, error) {
	if path == "" {
		return nil, ErrNoImage
	}
	if dir, err := afero.IsDir(n.fs, path); err == nil && dir {
		return nil, fmt.Errorf("%s: %w", path, ErrNoImage)
	}

	h := n.cache.Get(path)
	span.SetAttributes(telemetry.CacheState(h.State().String()))

	waitCtx, cancel := context.WithTimeout(ctx, n.cfg.LoadTimeout)
	defer cancel()

	img, err := h.Wait(waitCtx)
	switch {
	case errors.Is(err, prefetch.ErrTimeout):
		logger.WarnCtx(ctx, "Timed out waiting for image",
			logger.Path(path), logger.KeyState, h.String())
		return nil, err
	case err != nil:
		logger.WarnCtx(ctx, "Image load failed", logger.Path(path), logger.Err(err))
		return nil, err
	case !img.Valid():
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidImage)
	}
	return img, nil
}

// Next advances to the following image and displays it.
func (n *Navigator) Next(ctx context.Context) (*imageload.Image, error) {
	return n.step(ctx, OpNext, 1, ErrLastImage)
}

// Previous steps back to the preceding image and displays it.
func (n *Navigator) Previous(ctx context.Context) (*imageload.Image, error) {
	return n.step(ctx, OpPrevious, -1, ErrFirstImage)
}

// step moves by one and displays. Unlike Move, hitting an end is reported
// as atEnd.
func (n *Navigator) step(ctx context.Context, op string, diff int, atEnd error) (*imageload.Image, error) {
	moved, err := n.Move(ctx, diff)
	if err != nil {
		return nil, err
	}
	if moved == 0 {
		n.observe(op, atEnd)
		return nil, atEnd
	}
	n.observe(op, nil)
	return n.Display(ctx)
}

// Move moves the cursor by diff positions, stopping at either end, and
// returns the number of positions actually moved. Moving 0 positions at a
// boundary is not an error.
func (n *Navigator) Move(ctx context.Context, diff int) (int, error) {
	s, _ := n.active()
	if s == nil {
		return 0, ErrNotOpen
	}

	ctx = n.logContext(ctx, OpMove)
	ctx, span := telemetry.StartNavigationSpan(ctx, telemetry.SpanNavigate, n.sessionID, s.Current())
	defer span.End()

	moved := s.Move(diff)
	span.SetAttributes(telemetry.Moved(moved))
	logger.DebugCtx(ctx, "Moved", "requested", diff, logger.KeyMoved, moved, logger.Path(s.Current()))

	return moved, nil
}

// SetCurrent repositions the navigator on path.
func (n *Navigator) SetCurrent(ctx context.Context, path string) error {
	s, _ := n.active()
	if s == nil {
		return ErrNotOpen
	}
	ctx = n.logContext(ctx, OpSet)
	s.SetCurrent(path)
	s.Move(0)
	logger.DebugCtx(ctx, "Current file set", logger.Path(path), "resolved", s.Current())
	n.observe(OpSet, nil)
	return nil
}

// Reload rescans the listings and returns once the cursor is repositioned.
func (n *Navigator) Reload(ctx context.Context) error {
	s, _ := n.active()
	if s == nil {
		return ErrNotOpen
	}

	ctx = n.logContext(ctx, OpReload)
	ctx, span := telemetry.StartNavigationSpan(ctx, telemetry.SpanReload, n.sessionID, s.Current())
	defer span.End()

	start := time.Now()
	done := make(chan struct{})
	s.Reload(func() { close(done) })

	select {
	case <-done:
	case <-ctx.Done():
		n.observe(OpReload, ctx.Err())
		return ctx.Err()
	}

	logger.InfoCtx(ctx, "Reloaded", logger.Path(s.Current()), logger.DurationMs(start))
	n.observe(OpReload, nil)
	return nil
}

// Invalidate drops the cached image of path.
func (n *Navigator) Invalidate(path string) {
	n.cache.Invalidate(path)
}

// Close stops the active scanner.
func (n *Navigator) Close() error {
	n.mu.Lock()
	s := n.scanner
	n.scanner, n.prefetcher = nil, nil
	n.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

func (n *Navigator) logContext(ctx context.Context, op string) context.Context {
	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext(n.sessionID, n.Strategy().String())
	}
	lc = lc.WithOperation(op)
	if id := telemetry.TraceID(ctx); id != "" {
		lc = lc.WithTrace(id, telemetry.SpanID(ctx))
	}
	return logger.WithContext(ctx, lc)
}

func (n *Navigator) observe(op string, err error) {
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.ObserveNavigation(op, err)
	}
}
