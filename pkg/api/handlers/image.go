package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// ImageHandler serves the raw bytes of the current image.
type ImageHandler struct {
	nav Navigator
	fs  afero.Fs
}

// NewImageHandler creates an image handler reading files from fs.
func NewImageHandler(nav Navigator, fs afero.Fs) *ImageHandler {
	return &ImageHandler{nav: nav, fs: fs}
}

// Current handles GET /api/v1/image. The response carries an ETag derived
// from the path, size and modification time so clients can revalidate.
func (h *ImageHandler) Current(w http.ResponseWriter, r *http.Request) {
	path := h.nav.Current()
	if path == "" {
		ServiceUnavailable(w, "no navigation session open")
		return
	}

	f, err := h.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			NotFound(w, "image no longer exists")
			return
		}
		InternalServerError(w, "failed to open image")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		InternalServerError(w, "failed to stat image")
		return
	}
	if info.IsDir() {
		NotFound(w, "no image to display")
		return
	}

	w.Header().Set("ETag", etag(path, info))
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func etag(path string, info os.FileInfo) string {
	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	return fmt.Sprintf(`"%016x"`, h.Sum64())
}
