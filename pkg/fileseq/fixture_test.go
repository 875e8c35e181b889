package fileseq

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// newPicsFs builds the reference tree used across the scanner tests:
//
//	/pics/d1         p1.gif p2.bmp
//	/pics/d1/d4      f1 f2
//	/pics/d1/d5      p3.jpg
//	/pics/d2         p4.jpeg p5.png p6.png
//	/pics/d3/d6      p7.png p8.png f4
//	/pics/d3/d7/d8   p9.png p10.png
//	/pics/d3/d9      p11.png
func newPicsFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()

	files := []struct {
		path  string
		mtime int64
	}{
		{"/pics/d1/p1.gif", 100},
		{"/pics/d1/p2.bmp", 200},
		{"/pics/d1/d4/f1", 100},
		{"/pics/d1/d4/f2", 100},
		{"/pics/d1/d5/p3.jpg", 100},
		{"/pics/d1/d5/f3", 100},
		{"/pics/d2/p4.jpeg", 400},
		{"/pics/d2/p5.png", 100},
		{"/pics/d2/p6.png", 200},
		{"/pics/d3/d6/p7.png", 200},
		{"/pics/d3/d6/p8.png", 100},
		{"/pics/d3/d6/f4", 100},
		{"/pics/d3/d7/d8/p9.png", 100},
		{"/pics/d3/d7/d8/p10.png", 200},
		{"/pics/d3/d9/p11.png", 800},
	}
	for _, f := range files {
		writeFile(t, fs, f.path, f.mtime)
	}

	dirs := []struct {
		path  string
		mtime int64
	}{
		{"/pics/d1", 100},
		{"/pics/d2", 0},
		{"/pics/d3", 200},
		{"/pics/d1/d4", 100},
		{"/pics/d1/d5", 150},
		{"/pics/d3/d6", 100},
		{"/pics/d3/d7", 200},
		{"/pics/d3/d7/d8", 300},
		{"/pics/d3/d9", 400},
	}
	for _, d := range dirs {
		touch(t, fs, d.path, d.mtime)
	}
	return fs
}

func writeFile(t *testing.T, fs afero.Fs, path string, mtime int64) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(filepath.Base(path)), 0o644))
	touch(t, fs, path, mtime)
}

func touch(t *testing.T, fs afero.Fs, path string, mtime int64) {
	t.Helper()
	ts := time.Unix(mtime, 0)
	require.NoError(t, fs.Chtimes(path, ts, ts))
}

// pic maps a short fixture name such as "p7" to its full path.
func pic(name string) string {
	for _, p := range allPics {
		if strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) == name {
			return p
		}
	}
	panic("unknown fixture image " + name)
}

func pics(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pic(n)
	}
	return out
}

var allPics = []string{
	"/pics/d1/p1.gif",
	"/pics/d1/p2.bmp",
	"/pics/d1/d5/p3.jpg",
	"/pics/d2/p4.jpeg",
	"/pics/d2/p5.png",
	"/pics/d2/p6.png",
	"/pics/d3/d6/p7.png",
	"/pics/d3/d6/p8.png",
	"/pics/d3/d7/d8/p10.png",
	"/pics/d3/d7/d8/p9.png",
	"/pics/d3/d9/p11.png",
}

// flatten computes the expected pre-order traversal of dir with plain byte
// order, which matches collation for the ASCII fixture names.
func flatten(t *testing.T, fs afero.Fs, dir string, filter *Filter) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)

	var images, subDirs []string
	for _, fi := range infos {
		switch {
		case fi.IsDir() && filter.Visible(fi.Name()):
			subDirs = append(subDirs, filepath.Join(dir, fi.Name()))
		case !fi.IsDir() && filter.Visible(fi.Name()) && filter.IsImage(fi.Name()):
			images = append(images, filepath.Join(dir, fi.Name()))
		}
	}
	sort.Strings(images)
	sort.Strings(subDirs)

	out := images
	for _, sub := range subDirs {
		out = append(out, flatten(t, fs, sub, filter)...)
	}
	return out
}

// denyFs fails every access to the listed paths with a permission error.
type denyFs struct {
	afero.Fs
	denied map[string]bool
}

func newDenyFs(fs afero.Fs, paths ...string) *denyFs {
	d := &denyFs{Fs: fs, denied: make(map[string]bool)}
	for _, p := range paths {
		d.denied[p] = true
	}
	return d
}

func (d *denyFs) Open(name string) (afero.File, error) {
	if d.denied[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Open(name)
}

func (d *denyFs) Stat(name string) (os.FileInfo, error) {
	if d.denied[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Stat(name)
}

// gateFs blocks every Open until release is called.
type gateFs struct {
	afero.Fs
	gate chan struct{}
}

func newGateFs(fs afero.Fs) *gateFs {
	return &gateFs{Fs: fs, gate: make(chan struct{})}
}

func (g *gateFs) release() { close(g.gate) }

func (g *gateFs) Open(name string) (afero.File, error) {
	<-g.gate
	return g.Fs.Open(name)
}

// started starts s and waits for the initial scan.
func started(t *testing.T, s Scanner) Scanner {
	t.Helper()
	done := make(chan struct{})
	s.Start(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan did not complete")
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func reloaded(t *testing.T, s Scanner) {
	t.Helper()
	done := make(chan struct{})
	s.Reload(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reload did not complete")
	}
}
