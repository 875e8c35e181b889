package fileseq

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Entry is the part of a filesystem entry the scanners order and filter on.
type Entry struct {
	Path    string
	Name    string
	IsDir   bool
	ModTime time.Time
}

// statEntry builds the Entry for path. A failed stat yields an entry with
// only the name set, which orders as a non-directory at the epoch.
func statEntry(fs afero.Fs, path string) (Entry, error) {
	e := Entry{Path: path, Name: filepath.Base(path)}
	fi, err := fs.Stat(path)
	if err != nil {
		return e, err
	}
	e.IsDir = fi.IsDir()
	e.ModTime = fi.ModTime()
	return e, nil
}

// entryFromInfo converts a directory listing item. Symlinks to files are
// followed; ok is false for dangling links and for links to directories,
// which are not descended into.
func entryFromInfo(fs afero.Fs, dir string, fi os.FileInfo) (e Entry, ok bool) {
	e = Entry{
		Path:    filepath.Join(dir, fi.Name()),
		Name:    fi.Name(),
		IsDir:   fi.IsDir(),
		ModTime: fi.ModTime(),
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return e, true
	}
	target, err := fs.Stat(e.Path)
	if err != nil || target.IsDir() {
		return e, false
	}
	e.ModTime = target.ModTime()
	return e, true
}

func (e Entry) unixTime() int64 {
	if e.ModTime.IsZero() {
		return 0
	}
	return e.ModTime.UnixNano()
}
