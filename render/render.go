// Package render composites a band of camera metadata below a photo.
//
// The output is a new image of width W and height H plus the band height.
// The band is white, with the camera model drawn on the left and the focal
// length, aperture, exposure time and ISO grouped on the right, all in black
// bold text.
package render

import (
	"image"
	"image/color"
	"sync"

	"k8s.io/klog/v2"

	"github.com/photocamera/watermark/camera"
)

var (
	BandColor color.Color = color.White
	TextColor color.Color = color.Black
)

type Option func(*Renderer)

// WithSurface makes the renderer compose onto s instead of a fresh
// RasterSurface per call. A Surface is used by one render at a time, so such
// a renderer must not be shared between goroutines.
func WithSurface(s Surface) Option {
	return func(r *Renderer) {
		if s != nil {
			r.new_surface = func() Surface { return s }
		}
	}
}

// WithFonts selects the fonts of the default RasterSurface.
func WithFonts(f *Fonts) Option {
	return func(r *Renderer) {
		if f != nil {
			r.fonts = f
		}
	}
}

type Renderer struct {
	fonts       *Fonts
	new_surface func() Surface
}

func NewRenderer(opts ...Option) *Renderer {
	ans := &Renderer{}
	for _, o := range opts {
		o(ans)
	}
	if ans.new_surface == nil {
		ans.new_surface = func() Surface { return NewRasterSurface(ans.fonts) }
	}
	return ans
}

var defaultRenderer struct {
	once sync.Once
	r    *Renderer
}

// Render watermarks img using the default Renderer.
func Render(img image.Image, info camera.Info, alreadyWatermarked bool) (image.Image, bool) {
	defaultRenderer.once.Do(func() {
		defaultRenderer.r = NewRenderer()
	})
	return defaultRenderer.r.Render(img, info, alreadyWatermarked)
}

// Render returns a new image with the metadata band below img and true. When
// alreadyWatermarked is set it returns img itself and true. When no canvas
// could be acquired or drawing failed it returns img itself and false. img
// is never modified.
func (self *Renderer) Render(img image.Image, info camera.Info, alreadyWatermarked bool) (image.Image, bool) {
	if alreadyWatermarked {
		return img, true
	}
	if img == nil {
		return nil, false
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	s := self.new_surface()
	if err := s.Begin(width, height+BandHeight(width), img.ColorModel()); err != nil {
		klog.Warningf("render: could not acquire a drawing surface: %v", err)
		return img, false
	}
	defer s.End()

	style := TextStyle{Size: FontSize(width), Bold: true, Color: TextColor}
	labels := info.Labels()
	l := ComputeLayout(width, height, labels, func(text string) Size { return s.MeasureText(text, style) })
	fail := func(err error) (image.Image, bool) {
		klog.Errorf("render: drawing a %dx%d canvas failed: %v", l.Canvas.Dx(), l.Canvas.Dy(), err)
		return img, false
	}
	if err := s.DrawImage(img, image.Point{}); err != nil {
		return fail(err)
	}
	if err := s.FillRect(l.Band, BandColor); err != nil {
		return fail(err)
	}
	if err := s.DrawText(labels.Model, l.Left, style); err != nil {
		return fail(err)
	}
	for i, text := range labels.Segments() {
		if err := s.DrawText(text, l.Segments[i], style); err != nil {
			return fail(err)
		}
	}
	ans := s.Image()
	if ans == nil {
		return img, false
	}
	klog.V(2).Infof("render: watermarked %dx%d image with %s", width, height, info)
	return ans, true
}

// Photo holds the image a user is working on together with its watermark
// guard, so a photo is watermarked at most once.
type Photo struct {
	mutex       sync.Mutex
	img         image.Image
	watermarked bool
}

func NewPhoto(img image.Image) *Photo { return &Photo{img: img} }

func (p *Photo) Image() image.Image {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.img
}

func (p *Photo) Watermarked() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.watermarked
}

// Watermark renders info onto the held image with r, or the default
// Renderer when r is nil. On success the held image is replaced and the
// guard set, further calls return the held image unchanged.
func (p *Photo) Watermark(r *Renderer, info camera.Info) (image.Image, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	var ans image.Image
	var ok bool
	if r == nil {
		ans, ok = Render(p.img, info, p.watermarked)
	} else {
		ans, ok = r.Render(p.img, info, p.watermarked)
	}
	if ok {
		p.img, p.watermarked = ans, true
	}
	return ans, ok
}
