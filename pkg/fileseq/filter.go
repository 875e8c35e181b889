package fileseq

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions are the image extensions navigated when none are configured.
var DefaultExtensions = []string{"jpg", "jpeg", "gif", "png", "bmp"}

// Filter decides which listing entries are navigable images and which
// directories may be descended into.
type Filter struct {
	extensions map[string]struct{}

	// IncludeHidden admits dot-prefixed entries.
	IncludeHidden bool
}

// NewFilter returns a filter accepting the given extensions (case-insensitive,
// with or without the leading dot). With no extensions, DefaultExtensions apply.
func NewFilter(extensions ...string) *Filter {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	f := &Filter{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			f.extensions[ext] = struct{}{}
		}
	}
	return f
}

// IsImage reports whether name carries an accepted extension.
func (f *Filter) IsImage(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	_, ok := f.extensions[ext]
	return ok
}

// Visible reports whether the entry passes the hidden-entry rule.
func (f *Filter) Visible(name string) bool {
	return f.IncludeHidden || !IsHidden(name)
}

// IsHidden reports whether name is a dot file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func (f *Filter) acceptImage(e Entry) bool {
	return !e.IsDir && f.Visible(e.Name) && f.IsImage(e.Name)
}

func (f *Filter) acceptDir(e Entry) bool {
	return e.IsDir && f.Visible(e.Name)
}
