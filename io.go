package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kettek/apng"
	"k8s.io/klog/v2"

	"github.com/photocamera/watermark/meta"
	"github.com/photocamera/watermark/types"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type fileSystem interface {
	Create(string) (io.WriteCloser, error)
	Open(string) (io.ReadCloser, error)
}

type localFS struct{}

func (localFS) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
func (localFS) Open(name string) (io.ReadCloser, error)    { return os.Open(name) }

var fs fileSystem = localFS{}

type decodeConfig struct {
	autoOrientation bool
	loader          meta.Loader
}

var defaultDecodeConfig = decodeConfig{
	autoOrientation: true,
}

// DecodeOption sets an optional parameter for the Decode and Open functions.
type DecodeOption func(*decodeConfig)

// AutoOrientation returns a DecodeOption that sets the auto-orientation mode.
// If auto-orientation is enabled, the image will be transformed after decoding
// according to the EXIF orientation tag (if present). By default it's enabled.
func AutoOrientation(enabled bool) DecodeOption {
	return func(c *decodeConfig) {
		c.autoOrientation = enabled
	}
}

// MetadataLoader returns a DecodeOption that selects how the metadata
// container is read, for orientation and for Image.Metadata. Defaults to the
// pure Go EXIF loader.
func MetadataLoader(l meta.Loader) DecodeOption {
	return func(c *decodeConfig) {
		c.loader = l
	}
}

// orientation is an EXIF flag that specifies the transformation
// that should be applied to image to display it correctly.
type orientation int

const (
	orientationUnspecified = 0
	orientationNormal      = 1
	orientationFlipH       = 2
	orientationRotate180   = 3
	orientationFlipV       = 4
	orientationTranspose   = 5
	orientationRotate270   = 6
	orientationTransverse  = 7
	orientationRotate90    = 8
)

func read_orientation(md *meta.Data) orientation {
	p, err := md.Properties()
	if err != nil {
		klog.V(1).Infof("watermark: no orientation available: %v", err)
		return orientationUnspecified
	}
	v, ok := p.Get(meta.TIFF, "Orientation")
	if !ok {
		return orientationUnspecified
	}
	var x int
	switch n := v.(type) {
	case int64:
		x = int(n)
	case float64:
		x = int(n)
	case int:
		x = n
	default:
		klog.V(1).Infof("watermark: ignoring orientation of type %T", v)
	}
	if x > 0 && x < 9 {
		return orientation(x)
	}
	return orientationUnspecified
}

// fixOrientation applies a transform to img corresponding to the given orientation flag.
func fixOrientation(img image.Image, md *meta.Data, o orientation) image.Image {
	switch o {
	case orientationNormal:
	case orientationFlipH:
		img = FlipH(img)
	case orientationFlipV:
		img = FlipV(img)
	case orientationRotate90:
		img = Rotate90(img)
		md.PixelWidth, md.PixelHeight = md.PixelHeight, md.PixelWidth
	case orientationRotate180:
		img = Rotate180(img)
	case orientationRotate270:
		img = Rotate270(img)
		md.PixelWidth, md.PixelHeight = md.PixelHeight, md.PixelWidth
	case orientationTranspose:
		img = Transpose(img)
		md.PixelWidth, md.PixelHeight = md.PixelHeight, md.PixelWidth
	case orientationTransverse:
		img = Transverse(img)
		md.PixelWidth, md.PixelHeight = md.PixelHeight, md.PixelWidth
	}
	return img
}

// Image is a decoded photo. Animated inputs are represented by their first
// frame, the one a still image viewer shows.
type Image struct {
	Image  image.Image `json:"-"`
	Format Format
	// Frames is the number of animation frames in the input, 1 for stills.
	Frames int
	// Orientation is the EXIF orientation that was applied, 0 when none was.
	Orientation int
	Metadata    *meta.Data `json:"-"`
}

func (self *Image) populate_from_apng(p *apng.APNG) {
	self.Frames = 0
	for _, f := range p.Frames {
		if self.Image == nil {
			// the first frame is the IDAT image whether or not it is part of
			// the animation
			self.Image = f.Image
		}
		if !f.IsDefault {
			self.Frames++
		}
	}
	self.Frames = max(1, self.Frames)
}

func (self *Image) populate_from_gif(g *gif.GIF) {
	self.Frames = len(g.Image)
	first := g.Image[0]
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() || first.Bounds() == screen {
		self.Image = first
		return
	}
	canvas := image.NewNRGBA(screen)
	draw.Draw(canvas, first.Bounds(), first, first.Bounds().Min, draw.Src)
	self.Image = canvas
}

func decode_all(raw []byte, cfg *decodeConfig) (ans *Image, err error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("watermark: failed to identify image: %w", err)
	}
	ans = &Image{Format: types.FormatFromDecoderName(name), Frames: 1}
	switch ans.Format {
	case PNG:
		p, aerr := apng.DecodeAll(bytes.NewReader(raw))
		if aerr == nil && len(p.Frames) > 0 {
			ans.populate_from_apng(&p)
			break
		}
		if aerr != nil {
			klog.V(1).Infof("watermark: apng decoder failed, decoding as a still: %v", aerr)
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("watermark: failed to decode PNG: %w", err)
		}
		ans.Image = img
	case GIF:
		g, err := gif.DecodeAll(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("watermark: failed to decode GIF: %w", err)
		}
		if len(g.Image) == 0 {
			return nil, fmt.Errorf("watermark: GIF has no frames")
		}
		ans.populate_from_gif(g)
	default:
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("watermark: failed to decode %s: %w", ans.Format, err)
		}
		ans.Image = img
	}
	md := meta.NewData(raw, cfg.loader)
	md.Format = ans.Format
	md.PixelWidth = uint32(ans.Image.Bounds().Dx())
	md.PixelHeight = uint32(ans.Image.Bounds().Dy())
	ans.Metadata = md
	if cfg.autoOrientation {
		if o := read_orientation(md); o != orientationUnspecified {
			ans.Image = fixOrientation(ans.Image, md, o)
			ans.Orientation = int(o)
		}
	}
	return ans, nil
}

// DecodeBytes decodes raw, keeping raw as the source of the attached
// metadata.
func DecodeBytes(raw []byte, opts ...DecodeOption) (*Image, error) {
	cfg := defaultDecodeConfig
	for _, option := range opts {
		option(&cfg)
	}
	return decode_all(raw, &cfg)
}

// DecodeAll reads an image and its metadata from r.
func DecodeAll(r io.Reader, opts ...DecodeOption) (*Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(raw, opts...)
}

// Decode reads an image from r.
func Decode(r io.Reader, opts ...DecodeOption) (image.Image, error) {
	ans, err := DecodeAll(r, opts...)
	if err != nil {
		return nil, err
	}
	return ans.Image, nil
}

// Open loads an image from file.
//
// Examples:
//
//	// Load an image from file.
//	img, err := watermark.Open("test.jpg")
func Open(filename string, opts ...DecodeOption) (image.Image, error) {
	file, err := fs.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file, opts...)
}

func OpenAll(filename string, opts ...DecodeOption) (*Image, error) {
	file, err := fs.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeAll(file, opts...)
}

type Format = types.Format

const (
	UNKNOWN = types.UNKNOWN
	JPEG    = types.JPEG
	PNG     = types.PNG
	GIF     = types.GIF
	TIFF    = types.TIFF
	WEBP    = types.WEBP
	BMP     = types.BMP
)

// ErrUnsupportedFormat means the given image format is not supported.
var ErrUnsupportedFormat = errors.New("watermark: unsupported image format")

// FormatFromExtension parses image format from filename extension:
// "jpg" (or "jpeg"), "png", "gif", "tif" (or "tiff") and "bmp" are supported.
func FormatFromExtension(ext string) (Format, error) {
	if f, ok := types.FormatExts[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return f, nil
	}
	return -1, ErrUnsupportedFormat
}

// FormatFromFilename parses image format from filename:
// "jpg" (or "jpeg"), "png", "gif", "tif" (or "tiff") and "bmp" are supported.
func FormatFromFilename(filename string) (Format, error) {
	ext := filepath.Ext(filename)
	return FormatFromExtension(ext)
}

type encodeConfig struct {
	jpegQuality         int
	pngCompressionLevel png.CompressionLevel
}

// EncodeOption tunes how a watermarked photo is written.
type EncodeOption func(*encodeConfig)

// JPEGQuality ranges from 1 to 100, 95 by default.
func JPEGQuality(quality int) EncodeOption {
	return func(c *encodeConfig) { c.jpegQuality = quality }
}

// PNGCompressionLevel defaults to png.DefaultCompression.
func PNGCompressionLevel(level png.CompressionLevel) EncodeOption {
	return func(c *encodeConfig) { c.pngCompressionLevel = level }
}

// Palette formats are left out: quantizing a photo with a band of text
// drawn on it ruins one or the other.
var encoders = map[Format]func(io.Writer, image.Image, *encodeConfig) error{
	JPEG: func(w io.Writer, img image.Image, c *encodeConfig) error {
		// the canvas of an opaque photo is flagged NRGBA but has no alpha to
		// premultiply, jpeg takes the fast RGBA path for it
		if n, ok := img.(*image.NRGBA); ok && n.Opaque() {
			img = &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: c.jpegQuality})
	},
	PNG: func(w io.Writer, img image.Image, c *encodeConfig) error {
		e := png.Encoder{CompressionLevel: c.pngCompressionLevel}
		return e.Encode(w, img)
	},
	TIFF: func(w io.Writer, img image.Image, c *encodeConfig) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	},
	BMP: func(w io.Writer, img image.Image, c *encodeConfig) error {
		return bmp.Encode(w, img)
	},
}

// CanEncode reports whether Encode can write format f.
func CanEncode(f Format) bool {
	_, ok := encoders[f]
	return ok
}

// Encode writes img to w as JPEG, PNG, TIFF or BMP. Any other format fails
// with ErrUnsupportedFormat.
func Encode(w io.Writer, img image.Image, format Format, opts ...EncodeOption) error {
	enc, ok := encoders[format]
	if !ok {
		return fmt.Errorf("watermark: cannot write %s: %w", format, ErrUnsupportedFormat)
	}
	cfg := encodeConfig{jpegQuality: 95, pngCompressionLevel: png.DefaultCompression}
	for _, o := range opts {
		o(&cfg)
	}
	return enc(w, img, &cfg)
}

// Save writes img to filename in the format its extension names.
func Save(img image.Image, filename string, opts ...EncodeOption) (err error) {
	f, err := FormatFromFilename(filename)
	if err != nil {
		return err
	}
	if !CanEncode(f) {
		return fmt.Errorf("watermark: cannot write %s: %w", filename, ErrUnsupportedFormat)
	}
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	err = Encode(file, img, f, opts...)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
