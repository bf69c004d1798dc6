package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/kovidgoyal/go-parallel"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var _ = fmt.Print

// DefaultMaxPixels bounds the canvas a RasterSurface agrees to allocate.
const DefaultMaxPixels = 1 << 28

var ErrNoCanvas = errors.New("render: no canvas has been acquired")

// RasterSurface is an in-memory Surface. The canvas pixel type follows the
// colour model of the image being watermarked, so 8-bit, 16-bit and grey
// inputs keep their depth.
type RasterSurface struct {
	// MaxPixels is the largest width*height Begin accepts, 0 means
	// DefaultMaxPixels.
	MaxPixels int

	canvas draw.Image
	faces  face_cache
}

// NewRasterSurface returns a surface drawing text with fonts, or with
// DefaultFonts when fonts is nil.
func NewRasterSurface(fonts *Fonts) *RasterSurface {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	return &RasterSurface{faces: face_cache{fonts: fonts}}
}

func new_canvas(r image.Rectangle, m color.Model) draw.Image {
	switch m {
	case color.GrayModel:
		return image.NewGray(r)
	case color.Gray16Model:
		return image.NewGray16(r)
	case color.RGBA64Model, color.NRGBA64Model:
		return image.NewNRGBA64(r)
	case color.NRGBAModel:
		return image.NewNRGBA(r)
	}
	return image.NewRGBA(r)
}

func (self *RasterSurface) Begin(width, height int, model color.Model) error {
	limit := self.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: invalid canvas size %dx%d", width, height)
	}
	if width > limit/height {
		return fmt.Errorf("render: a %dx%d canvas exceeds the limit of %d pixels", width, height, limit)
	}
	self.canvas = new_canvas(image.Rect(0, 0, width, height), model)
	return nil
}

// rows runs f over horizontal strips of r in parallel.
func rows(r image.Rectangle, f func(strip image.Rectangle)) error {
	return parallel.Run_in_parallel_over_range(0, func(start, limit int) {
		f(image.Rect(r.Min.X, start, r.Max.X, limit))
	}, r.Min.Y, r.Max.Y)
}

func (self *RasterSurface) DrawImage(img image.Image, at image.Point) error {
	if self.canvas == nil {
		return ErrNoCanvas
	}
	b := img.Bounds()
	dr := b.Sub(b.Min).Add(at).Intersect(self.canvas.Bounds())
	if dr.Empty() {
		return nil
	}
	delta := b.Min.Sub(at)
	return rows(dr, func(strip image.Rectangle) {
		draw.Draw(self.canvas, strip, img, strip.Min.Add(delta), draw.Src)
	})
}

func (self *RasterSurface) FillRect(r image.Rectangle, c color.Color) error {
	if self.canvas == nil {
		return ErrNoCanvas
	}
	r = r.Intersect(self.canvas.Bounds())
	if r.Empty() {
		return nil
	}
	src := image.NewUniform(c)
	return rows(r, func(strip image.Rectangle) {
		draw.Draw(self.canvas, strip, src, image.Point{}, draw.Src)
	})
}

func to_float(v fixed.Int26_6) float64 { return float64(v) / 64 }

func to_fixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

// MeasureText returns the advance width of text and the line height of the
// face. An empty string measures as a zero width line, so it still takes
// vertical space.
func (self *RasterSurface) MeasureText(text string, style TextStyle) Size {
	face, err := self.faces.get(style.Size, style.Bold)
	if err != nil {
		return Size{}
	}
	return Size{Width: to_float(font.MeasureString(face, text)), Height: to_float(face.Metrics().Height)}
}

// DrawText draws text with its top at r.Y, clipped to the canvas.
func (self *RasterSurface) DrawText(text string, r Rect, style TextStyle) error {
	if self.canvas == nil {
		return ErrNoCanvas
	}
	if text == "" {
		return nil
	}
	face, err := self.faces.get(style.Size, style.Bold)
	if err != nil {
		return err
	}
	c := style.Color
	if c == nil {
		c = color.Black
	}
	d := font.Drawer{
		Dst:  self.canvas,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: to_fixed(r.X), Y: to_fixed(r.Y) + face.Metrics().Ascent},
	}
	d.DrawString(text)
	return nil
}

func (self *RasterSurface) Image() image.Image {
	if self.canvas == nil {
		return nil
	}
	return self.canvas
}

// End releases the faces, the canvas is handed over to the caller of Image.
func (self *RasterSurface) End() {
	self.faces.close()
	self.canvas = nil
}
