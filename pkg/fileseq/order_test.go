package fileseq

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func named(names ...string) []Entry {
	out := make([]Entry, len(names))
	for i, n := range names {
		out[i] = Entry{Path: "/x/" + n, Name: n}
	}
	return out
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestAlphabetical(t *testing.T) {
	t.Run("CollatesIgnoringCase", func(t *testing.T) {
		entries := named("banana.png", "Apple.png", "cherry.png", "apple.png")
		slices.SortStableFunc(entries, Alphabetical(language.English))
		assert.Equal(t, []string{"apple.png", "Apple.png", "banana.png", "cherry.png"}, names(entries))
	})

	t.Run("StringOrderNotNumeric", func(t *testing.T) {
		entries := named("p9.png", "p10.png", "p1.png")
		slices.SortStableFunc(entries, Alphabetical(language.Und))
		assert.Equal(t, []string{"p1.png", "p10.png", "p9.png"}, names(entries))
	})

	t.Run("LocaleSpecific", func(t *testing.T) {
		a, b := Entry{Name: "öl"}, Entry{Name: "zebra"}
		assert.Negative(t, Alphabetical(language.German)(a, b))
		assert.Positive(t, Alphabetical(language.Swedish)(a, b))
	})

	t.Run("Total", func(t *testing.T) {
		cmp := Alphabetical(language.Und)
		a, b := Entry{Name: "x.png"}, Entry{Name: "X.png"}
		assert.Zero(t, cmp(a, a))
		assert.NotZero(t, cmp(a, b))
		assert.Equal(t, -cmp(a, b), cmp(b, a))
	})
}

func TestByTime(t *testing.T) {
	cmp := ByTime(Alphabetical(language.Und))
	old := Entry{Name: "b", ModTime: time.Unix(100, 0)}
	recent := Entry{Name: "c", ModTime: time.Unix(200, 0)}
	sameAsRecent := Entry{Name: "a", ModTime: time.Unix(200, 0)}
	unknown := Entry{Name: "0"}
	epoch := Entry{Name: "1", ModTime: time.Unix(0, 0)}

	assert.Negative(t, cmp(recent, old), "newest first")
	assert.Positive(t, cmp(recent, sameAsRecent), "ties broken alphabetically")
	assert.Positive(t, cmp(unknown, old), "unknown time sorts as the epoch")
	assert.Negative(t, cmp(unknown, epoch), "unknown and epoch tie, then alphabetical")
}

func TestDirectoryFirst(t *testing.T) {
	cmp := DirectoryFirst(Alphabetical(language.Und))
	entries := []Entry{
		{Name: "b.png"},
		{Name: "z", IsDir: true},
		{Name: "a.png"},
		{Name: "c", IsDir: true},
	}
	slices.SortStableFunc(entries, cmp)
	assert.Equal(t, []string{"c", "z", "a.png", "b.png"}, names(entries))
}

func TestFilter(t *testing.T) {
	f := NewFilter()
	for _, name := range []string{"a.jpg", "b.JPEG", "c.Gif", "d.png", "e.bmp"} {
		assert.True(t, f.IsImage(name), name)
	}
	for _, name := range []string{"a.txt", "b", "c.webp", "png"} {
		assert.False(t, f.IsImage(name), name)
	}

	custom := NewFilter(".WebP", " png ")
	assert.True(t, custom.IsImage("x.webp"))
	assert.True(t, custom.IsImage("x.png"))
	assert.False(t, custom.IsImage("x.jpg"))

	assert.False(t, f.Visible(".thumbs"))
	assert.True(t, f.Visible("thumbs"))
	assert.True(t, IsHidden(".x"))
	assert.False(t, IsHidden(".."))
}
