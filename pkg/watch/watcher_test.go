package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	mu          sync.Mutex
	reloads     int
	invalidated map[string]int
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{invalidated: make(map[string]int)}
}

func (r *recordingTarget) Reload(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads++
	return nil
}

func (r *recordingTarget) Invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated[path]++
}

func (r *recordingTarget) snapshot() (int, map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := make(map[string]int, len(r.invalidated))
	for k, v := range r.invalidated {
		inv[k] = v
	}
	return r.reloads, inv
}

func startWatcher(t *testing.T, cfg Config, dirs ...string) (*Watcher, *recordingTarget) {
	t.Helper()
	target := newRecordingTarget()
	w, err := New(target, cfg)
	require.NoError(t, err)
	for _, dir := range dirs {
		require.NoError(t, w.Watch(dir))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
		<-done
	})
	return w, target
}

func TestWatcher_CreateTriggersReload(t *testing.T) {
	dir := t.TempDir()
	_, target := startWatcher(t, Config{Debounce: 50 * time.Millisecond}, dir)

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool {
		reloads, _ := target.snapshot()
		return reloads >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// The burst is coalesced.
	time.Sleep(150 * time.Millisecond)
	reloads, inv := target.snapshot()
	assert.Equal(t, 1, reloads)
	assert.Contains(t, inv, filepath.Join(dir, "b.jpg"))
}

func TestWatcher_WriteInvalidatesOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	_, target := startWatcher(t, Config{Debounce: 20 * time.Millisecond}, dir)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte("v2"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		_, inv := target.snapshot()
		return inv[path] >= 1
	}, 5*time.Second, 10*time.Millisecond)

	reloads, _ := target.snapshot()
	assert.Zero(t, reloads)
}

func TestWatcher_RecursiveSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deeper"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))

	w, _ := startWatcher(t, Config{Recursive: true}, dir)

	assert.ElementsMatch(t, []string{
		dir,
		filepath.Join(dir, "sub"),
		filepath.Join(dir, "sub", "deeper"),
	}, w.WatchList())
}

func TestWatcher_RecursiveFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w, target := startWatcher(t, Config{Debounce: 20 * time.Millisecond, Recursive: true}, dir)

	sub := filepath.Join(dir, "new")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool {
		for _, p := range w.WatchList() {
			if p == sub {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.gif"), []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		_, inv := target.snapshot()
		return inv[filepath.Join(sub, "x.gif")] >= 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_WatchMissingDirectory(t *testing.T) {
	w, err := New(newRecordingTarget(), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}
