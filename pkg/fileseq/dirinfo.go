package fileseq

import (
	"slices"

	"github.com/spf13/afero"
)

// DirInfo is the memoized listing of one directory: its images and its
// visitable sub-directories, each sorted with the comparator in effect when
// the directory was scanned.
type DirInfo struct {
	Path  string
	entry Entry

	images  []Entry
	subDirs []Entry
}

func newDirInfo(path string) *DirInfo {
	return &DirInfo{Path: path}
}

// Images returns the sorted image entries of the directory.
func (d *DirInfo) Images() []Entry { return d.images }

// SubDirs returns the sorted visitable sub-directories of the directory.
func (d *DirInfo) SubDirs() []Entry { return d.subDirs }

// scan reads the directory and replaces both listings. Access errors on the
// directory itself leave both listings empty and are returned for logging;
// errors on individual entries exclude that entry.
func (d *DirInfo) scan(fs afero.Fs, cmp Comparator, filter *Filter) error {
	d.entry, _ = statEntry(fs, d.Path)

	infos, err := afero.ReadDir(fs, d.Path)
	if err != nil {
		d.images, d.subDirs = nil, nil
		return err
	}

	images := make([]Entry, 0, len(infos))
	var subDirs []Entry
	for _, fi := range infos {
		e, ok := entryFromInfo(fs, d.Path, fi)
		if !ok {
			continue
		}
		switch {
		case filter.acceptDir(e):
			subDirs = append(subDirs, e)
		case filter.acceptImage(e):
			images = append(images, e)
		}
	}
	slices.SortStableFunc(images, cmp)
	slices.SortStableFunc(subDirs, cmp)

	d.images, d.subDirs = images, subDirs
	return nil
}

// locate finds e among the images, by path. When absent it returns the
// position e would sort at.
func (d *DirInfo) locate(e Entry, cmp Comparator) (int, bool) {
	for i, img := range d.images {
		if img.Path == e.Path {
			return i, true
		}
	}
	i, _ := slices.BinarySearchFunc(d.images, e, cmp)
	return i, false
}

// locateDir finds the sub-directory at path. When absent it returns the
// position the directory would sort at.
func (d *DirInfo) locateDir(child Entry, cmp Comparator) (int, bool) {
	for i, sub := range d.subDirs {
		if sub.Path == child.Path {
			return i, true
		}
	}
	i, _ := slices.BinarySearchFunc(d.subDirs, child, cmp)
	return i, false
}
