package bufpool

import (
	"sync"
	"testing"

	"github.com/marmos91/picseq/internal/bytesize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSizeClasses(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"Empty", 0, int(DefaultSmallSize)},
		{"Thumbnail", 10 * 1024, int(DefaultSmallSize)},
		{"SmallBoundary", int(DefaultSmallSize), int(DefaultSmallSize)},
		{"Photo", int(DefaultSmallSize) + 1, int(DefaultMediumSize)},
		{"Scan", int(DefaultMediumSize) + 1, int(DefaultLargeSize)},
		{"Oversized", int(DefaultLargeSize) + 1, int(DefaultLargeSize) + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Get(tt.size)
			defer Put(buf)

			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
		})
	}
}

func TestPutAndReuse(t *testing.T) {
	p := NewPool(Config{SmallSize: 16, MediumSize: 64, LargeSize: 256})

	buf := p.Get(10)
	require.Len(t, buf, 10)
	require.Equal(t, 16, cap(buf))
	buf[0] = 42
	p.Put(buf)

	again := p.Get(16)
	assert.Len(t, again, 16)
	assert.Equal(t, 16, cap(again))
}

func TestPutForeignSlices(t *testing.T) {
	p := NewPool(Config{SmallSize: 16, MediumSize: 64, LargeSize: 256})

	assert.NotPanics(t, func() {
		p.Put(nil)
		p.Put(make([]byte, 5))
		p.Put(make([]byte, 1000))
	})
}

func TestNewPoolSizes(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		small, medium, large := NewPool(Config{}).Sizes()
		assert.Equal(t, int(DefaultSmallSize), small)
		assert.Equal(t, int(DefaultMediumSize), medium)
		assert.Equal(t, int(DefaultLargeSize), large)
	})

	t.Run("Custom", func(t *testing.T) {
		small, medium, large := NewPool(Config{
			SmallSize:  64 * bytesize.KiB,
			MediumSize: 1 * bytesize.MiB,
			LargeSize:  8 * bytesize.MiB,
		}).Sizes()
		assert.Equal(t, 64*1024, small)
		assert.Equal(t, 1024*1024, medium)
		assert.Equal(t, 8*1024*1024, large)
	})

	t.Run("NonIncreasing", func(t *testing.T) {
		small, medium, large := NewPool(Config{
			SmallSize:  64 * bytesize.MiB,
			MediumSize: 1 * bytesize.MiB,
		}).Sizes()
		assert.Equal(t, 64*1024*1024, small)
		assert.Greater(t, medium, small)
		assert.Greater(t, large, medium)
	})
}

func TestConcurrentGetPut(t *testing.T) {
	p := NewPool(Config{SmallSize: 32, MediumSize: 128, LargeSize: 512})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				size := (g*31 + i*7) % 600
				buf := p.Get(size)
				if len(buf) != size {
					t.Errorf("Get(%d) returned len %d", size, len(buf))
					return
				}
				for j := range buf {
					buf[j] = byte(g)
				}
				p.Put(buf)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGetPut(b *testing.B) {
	for b.Loop() {
		buf := Get(2 * 1024 * 1024)
		Put(buf)
	}
}
