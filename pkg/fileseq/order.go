package fileseq

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparator orders two entries: negative when a sorts first, positive when b
// does, zero only for entries that are indistinguishable to the ordering.
type Comparator func(a, b Entry) int

// Alphabetical orders entries by name using the collation rules of tag, and
// falls back to byte-wise order when the collator considers two names equal.
func Alphabetical(tag language.Tag) Comparator {
	var mu sync.Mutex
	c := collate.New(tag)
	return func(a, b Entry) int {
		mu.Lock()
		r := c.CompareString(a.Name, b.Name)
		mu.Unlock()
		if r != 0 {
			return r
		}
		return strings.Compare(a.Name, b.Name)
	}
}

// ByTime orders entries by modification time, newest first, breaking ties with
// fallback. Entries without a readable timestamp count as the epoch.
func ByTime(fallback Comparator) Comparator {
	return func(a, b Entry) int {
		ta, tb := a.unixTime(), b.unixTime()
		switch {
		case ta > tb:
			return -1
		case ta < tb:
			return 1
		}
		return fallback(a, b)
	}
}

// DirectoryFirst ranks directories ahead of everything else and delegates to
// fallback within each class.
func DirectoryFirst(fallback Comparator) Comparator {
	return func(a, b Entry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return fallback(a, b)
	}
}
