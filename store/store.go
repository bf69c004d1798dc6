// Package store persists finished images. Saving is the one step of the
// workflow that reports success or failure back to the caller, either
// synchronously (Album.Save) or through a channel (SaveAsync).
package store

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/photocamera/watermark"
)

var ErrNoImage = errors.New("store: nothing to save")

// Saver persists an image and returns where it was stored.
type Saver interface {
	Save(ctx context.Context, img image.Image) (string, error)
}

// Result is the outcome of an asynchronous save.
type Result struct {
	Path string
	Err  error
}

// SaveAsync runs s.Save on a goroutine. The returned channel receives
// exactly one Result and is then closed.
func SaveAsync(ctx context.Context, s Saver, img image.Image) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		path, err := s.Save(ctx, img)
		ch <- Result{Path: path, Err: err}
	}()
	return ch
}

type Option func(*Album)

// WithFormat selects the file format, JPEG by default.
func WithFormat(f watermark.Format) Option {
	return func(a *Album) { a.format = f }
}

// WithPrefix sets the file name prefix, "IMG_" by default.
func WithPrefix(p string) Option {
	return func(a *Album) { a.prefix = p }
}

// WithEncodeOptions passes options to the encoder.
func WithEncodeOptions(opts ...watermark.EncodeOption) Option {
	return func(a *Album) { a.encode_opts = append(a.encode_opts, opts...) }
}

// Album is a directory of saved photos. File names are derived from the
// time of saving and never overwrite an existing file.
type Album struct {
	dir         string
	prefix      string
	format      watermark.Format
	encode_opts []watermark.EncodeOption
	now         func() time.Time

	mutex sync.Mutex
}

// NewAlbum creates dir if needed.
func NewAlbum(dir string, opts ...Option) (*Album, error) {
	ans := &Album{dir: dir, prefix: "IMG_", format: watermark.JPEG, now: time.Now}
	for _, o := range opts {
		o(ans)
	}
	if !watermark.CanEncode(ans.format) {
		return nil, fmt.Errorf("store: cannot save as %s: %w", ans.format, watermark.ErrUnsupportedFormat)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: failed to create album directory: %w", err)
	}
	return ans, nil
}

func (a *Album) Dir() string { return a.dir }

func (a *Album) ext() string {
	if a.format == watermark.JPEG {
		return ".jpg"
	}
	return "." + strings.ToLower(a.format.String())
}

// Save encodes img into a temporary file in the album and links it into
// place, so a failed save never leaves a partial photo behind.
func (a *Album) Save(ctx context.Context, img image.Image) (path string, err error) {
	if img == nil {
		return "", ErrNoImage
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(a.dir, ".saving-*")
	if err != nil {
		return "", fmt.Errorf("store: failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = watermark.Encode(tmp, img, a.format, a.encode_opts...); err != nil {
		return "", fmt.Errorf("store: failed to encode %s: %w", a.format, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("store: failed to write file: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if path, err = a.claim(tmp.Name()); err != nil {
		return "", err
	}
	klog.V(1).Infof("store: saved %dx%d image to %s", img.Bounds().Dx(), img.Bounds().Dy(), path)
	return path, nil
}

// claim moves src to the first free name for the current time. Linking
// fails on an existing name, unlike renaming, so a file another process
// saved meanwhile is never replaced.
func (a *Album) claim(src string) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	base := a.prefix + a.now().Format("20060102_150405")
	for i := 0; ; i++ {
		name := base + a.ext()
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, a.ext())
		}
		dest := filepath.Join(a.dir, name)
		err := os.Link(src, dest)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store: failed to move photo into place: %w", err)
		}
		if err = os.Remove(src); err != nil {
			klog.Warningf("store: failed to remove %s: %v", src, err)
		}
		return dest, nil
	}
}
