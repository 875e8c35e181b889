package navigator

import "github.com/marmos91/picseq/pkg/fileseq"

// DisplayedGroup is the prefetch group holding the window around the
// displayed image.
const DisplayedGroup = "displayed"

// Grouper declares prefetch group membership.
type Grouper interface {
	Prefetch(group string, keys []string)
}

// Prefetcher keeps the cache's displayed group in step with a scanner.
type Prefetcher struct {
	scanner fileseq.Scanner
	cache   Grouper
}

// NewPrefetcher links scanner positions to cache.
func NewPrefetcher(scanner fileseq.Scanner, cache Grouper) *Prefetcher {
	return &Prefetcher{scanner: scanner, cache: cache}
}

// PrefetchWindow declares the current file and up to halfWidth neighbours on
// each side as the displayed group, nearest first, and returns the current
// file. The group is centred on the returned file even when the cursor moves
// concurrently.
func (p *Prefetcher) PrefetchWindow(halfWidth int) string {
	prev, cur, next := p.scanner.Window(max(halfWidth, 0))

	p.cache.Prefetch(DisplayedGroup, interleave(cur, next, prev))
	return cur
}

// interleave orders cur, next[0], prev[last], next[1], prev[last-1], ...
// prev is in sequence order, so its nearest element is the last one.
func interleave(cur string, next, prev []string) []string {
	keys := make([]string, 0, 1+len(next)+len(prev))
	keys = append(keys, cur)
	for i := 0; i < max(len(next), len(prev)); i++ {
		if i < len(next) {
			keys = append(keys, next[i])
		}
		if i < len(prev) {
			keys = append(keys, prev[len(prev)-1-i])
		}
	}
	return keys
}
