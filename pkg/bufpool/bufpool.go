// Package bufpool provides tiered read buffers for image files.
//
// Decoding workers read each file whole before decoding it. The pool keeps
// three size classes so that consecutive decodes of similarly sized images
// reuse the same backing arrays:
//   - Small buffers (default 256KiB): thumbnails and icons
//   - Medium buffers (default 4MiB): typical photos
//   - Large buffers (default 32MiB): high resolution scans
//
// Requests above the large class are allocated directly and never pooled.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"

	"github.com/marmos91/picseq/internal/bytesize"
)

// Default buffer size classes.
const (
	DefaultSmallSize  = 256 * bytesize.KiB
	DefaultMediumSize = 4 * bytesize.MiB
	DefaultLargeSize  = 32 * bytesize.MiB
)

// Config sets the size classes of a Pool. Zero values select the defaults.
type Config struct {
	SmallSize  bytesize.ByteSize
	MediumSize bytesize.ByteSize
	LargeSize  bytesize.ByteSize
}

// Pool hands out byte slices from one of three size classes.
type Pool struct {
	classes [3]class
}

type class struct {
	size int
	pool sync.Pool
}

// NewPool creates a pool. Size classes must be increasing; a class not larger
// than the previous one is raised to the default for its tier.
func NewPool(cfg Config) *Pool {
	sizes := [3]int{
		sizeOr(cfg.SmallSize, DefaultSmallSize),
		sizeOr(cfg.MediumSize, DefaultMediumSize),
		sizeOr(cfg.LargeSize, DefaultLargeSize),
	}
	defaults := [3]int{int(DefaultSmallSize), int(DefaultMediumSize), int(DefaultLargeSize)}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] <= sizes[i-1] {
			sizes[i] = max(defaults[i], sizes[i-1]*2)
		}
	}

	p := &Pool{}
	for i, size := range sizes {
		c := &p.classes[i]
		c.size = size
		c.pool.New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

func sizeOr(v, def bytesize.ByteSize) int {
	if v == 0 {
		return int(def)
	}
	return int(v)
}

// Get returns a slice of length size. The caller returns it with Put once no
// decoded value references it.
func (p *Pool) Get(size int) []byte {
	for i := range p.classes {
		c := &p.classes[i]
		if size <= c.size {
			buf := *c.pool.Get().(*[]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its size class. Slices that did not come from Get are
// dropped.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for i := range p.classes {
		c := &p.classes[i]
		if cap(buf) == c.size {
			full := buf[:c.size]
			c.pool.Put(&full)
			return
		}
	}
}

// Sizes returns the small, medium and large class sizes.
func (p *Pool) Sizes() (small, medium, large int) {
	return p.classes[0].size, p.classes[1].size, p.classes[2].size
}

var globalPool = NewPool(Config{})

// Get returns a slice of length size from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a slice to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
