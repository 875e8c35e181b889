// Package imageload reads and decodes image files for display. It is the
// producer behind the navigator's prefetch cache.
package imageload

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"time"

	"github.com/marmos91/picseq/internal/bytesize"
	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/internal/telemetry"
	"github.com/marmos91/picseq/pkg/bufpool"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DefaultMaxFileSize bounds the files the loader will decode.
const DefaultMaxFileSize = 256 * bytesize.MiB

var (
	// ErrFileTooLarge is returned for files above the configured limit.
	ErrFileTooLarge = errors.New("image file too large")

	// ErrUnsupportedFormat is returned when no registered decoder
	// recognises the file content.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Image is a decoded picture and what is known about its file.
type Image struct {
	Path    string
	Format  string
	Width   int
	Height  int
	Size    int64
	ModTime time.Time
	Img     image.Image
}

// Valid reports whether the image has a drawable area. Decoders may succeed
// on truncated files and return an empty picture.
func (i *Image) Valid() bool {
	return i != nil && i.Width > 0 && i.Height > 0
}

// Metrics receives decode observations.
type Metrics interface {
	ObserveDecode(format string, size int64, d time.Duration, err error)
}

// Config configures a Loader.
type Config struct {
	// MaxFileSize rejects larger files without reading them. Zero selects
	// DefaultMaxFileSize.
	MaxFileSize bytesize.ByteSize

	Metrics Metrics
}

// Loader decodes images from a filesystem.
type Loader struct {
	fs      afero.Fs
	maxSize int64
	metrics Metrics
}

// New creates a loader reading from fs.
func New(fs afero.Fs, cfg Config) *Loader {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Loader{
		fs:      fs,
		maxSize: cfg.MaxFileSize.Int64(),
		metrics: cfg.Metrics,
	}
}

// Load reads and fully decodes the image at path.
func (l *Loader) Load(ctx context.Context, path string) (img *Image, err error) {
	ctx, span := telemetry.StartDecodeSpan(ctx, path)
	defer span.End()

	start := time.Now()
	format := ""
	var size int64
	defer func() {
		if l.metrics != nil {
			l.metrics.ObserveDecode(format, size, time.Since(start), err)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	f, info, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	size = info.Size()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decoders copy pixels out of the source, so the buffer is reusable
	// once Decode returns.
	buf := bufpool.Get(int(size))
	defer bufpool.Put(buf)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(buf[:n]))
	if err != nil {
		return nil, decodeError(path, err)
	}

	b := decoded.Bounds()
	img = &Image{
		Path:    path,
		Format:  format,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Size:    size,
		ModTime: info.ModTime(),
		Img:     decoded,
	}
	telemetry.SetAttributes(ctx,
		telemetry.ImageFormat(format),
		telemetry.ImageWidth(img.Width),
		telemetry.ImageHeight(img.Height),
		telemetry.ImageSize(size))

	logger.DebugCtx(ctx, "Image decoded",
		logger.Path(path),
		logger.KeyFormat, format,
		logger.KeyWidth, img.Width,
		logger.KeyHeight, img.Height,
		logger.Size(size),
		logger.DurationMs(start))
	return img, nil
}

// Probe reads only the image header.
func (l *Loader) Probe(path string) (*Image, error) {
	f, info, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return nil, decodeError(path, err)
	}
	return &Image{
		Path:    path,
		Format:  format,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (l *Loader) open(path string) (afero.File, os.FileInfo, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w: is a directory", path, ErrUnsupportedFormat)
	}
	if info.Size() > l.maxSize {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w: %s exceeds %s", path, ErrFileTooLarge,
			bytesize.ByteSize(info.Size()), bytesize.ByteSize(l.maxSize))
	}
	return f, info, nil
}

func decodeError(path string, err error) error {
	if errors.Is(err, image.ErrFormat) {
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: truncated image: %w", path, err)
	}
	return fmt.Errorf("decode %s: %w", path, err)
}
