package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photocamera/watermark/camera"
)

var _ = fmt.Print

type text_call struct {
	Text  string
	Rect  Rect
	Style TextStyle
}

// fake_surface measures every character as 10 pixels wide and every line as
// 30 pixels high and records what is drawn.
type fake_surface struct {
	begin_err, draw_err error
	begun, ended        int
	width, height       int
	fills               []image.Rectangle
	texts               []text_call
	canvas              *image.RGBA
}

func (f *fake_surface) Begin(width, height int, model color.Model) error {
	if f.begin_err != nil {
		return f.begin_err
	}
	f.begun++
	f.width, f.height = width, height
	f.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

func (f *fake_surface) DrawImage(img image.Image, at image.Point) error { return f.draw_err }

func (f *fake_surface) FillRect(r image.Rectangle, c color.Color) error {
	f.fills = append(f.fills, r)
	return nil
}

func (f *fake_surface) MeasureText(text string, style TextStyle) Size {
	return Size{Width: float64(10 * len(text)), Height: 30}
}

func (f *fake_surface) DrawText(text string, r Rect, style TextStyle) error {
	f.texts = append(f.texts, text_call{text, r, style})
	return nil
}

func (f *fake_surface) Image() image.Image { return f.canvas }
func (f *fake_surface) End()               { f.ended++ }

func fp(v float64) *float64 { return &v }

func TestBandGeometry(t *testing.T) {
	for _, tc := range []struct {
		width, band int
		font        float64
	}{
		{3000, 300, 80},
		{2001, 300, 80},
		{2000, 200, 40},
		{1000, 200, 40},
	} {
		assert.Equal(t, tc.band, BandHeight(tc.width), "width %d", tc.width)
		assert.Equal(t, tc.font, FontSize(tc.width), "width %d", tc.width)
	}
}

func TestRenderLayout(t *testing.T) {
	f := &fake_surface{}
	r := NewRenderer(WithSurface(f))
	info := camera.Info{Model: "M", FocalLength: fp(26), ExposureTime: fp(0.5)}
	src := image.NewRGBA(image.Rect(0, 0, 3000, 2000))
	out, ok := r.Render(src, info, false)
	require.True(t, ok)
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, 3000, 2300), out.Bounds())
	assert.Equal(t, 1, f.begun)
	assert.Equal(t, 1, f.ended)
	assert.Equal(t, []image.Rectangle{image.Rect(0, 2000, 3000, 2300)}, f.fills)

	// every line is 30 high, so the band of 300 centers it at 2000+135
	style := TextStyle{Size: 80, Bold: true, Color: TextColor}
	expected := []text_call{
		{"M", Rect{X: 100, Y: 2135, Width: 2980, Height: 30}, style},
		// segment widths 60, 0, 40, 0 sum to 100, so the group starts at
		// 3000-100-250 and every segment, empty or not, is followed by a gap
		{"26.0mm", Rect{X: 2650, Y: 2135, Width: 60, Height: 30}, style},
		{"", Rect{X: 2760, Y: 2135, Width: 0, Height: 30}, style},
		{"1/2s", Rect{X: 2810, Y: 2135, Width: 40, Height: 30}, style},
		{"", Rect{X: 2900, Y: 2135, Width: 0, Height: 30}, style},
	}
	if diff := cmp.Diff(expected, f.texts); diff != "" {
		t.Fatalf("unexpected text placement (-want +got):\n%s", diff)
	}
}

func TestComputeLayoutUsesLeftHeight(t *testing.T) {
	measure := func(s string) Size {
		if s == "Tall" {
			return Size{Width: 40, Height: 100}
		}
		return Size{Width: float64(10 * len(s)), Height: 20}
	}
	l := ComputeLayout(1000, 500, camera.Labels{Model: "Tall", ISO: "ISO100"}, measure)
	assert.Equal(t, 200, l.BandHeight)
	assert.Equal(t, float64(40), l.FontSize)
	assert.Equal(t, 550.0, l.Left.Y)
	require.Len(t, l.Segments, 4)
	for _, s := range l.Segments {
		assert.Equal(t, 550.0, s.Y)
		assert.Equal(t, 20.0, s.Height)
	}
	// ISO100 is the only non empty segment: 1000-60-250, then three gaps
	assert.Equal(t, 690.0, l.Segments[0].X)
	assert.Equal(t, 840.0, l.Segments[3].X)
	assert.Equal(t, 60.0, l.Segments[3].Width)
}

func TestRenderGuard(t *testing.T) {
	f := &fake_surface{}
	r := NewRenderer(WithSurface(f))
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for range 2 {
		out, ok := r.Render(src, camera.Info{Model: "X"}, true)
		assert.True(t, ok)
		assert.True(t, out == image.Image(src))
	}
	assert.Equal(t, 0, f.begun)

	p := NewPhoto(src)
	first, ok := p.Watermark(r, camera.Info{Model: "X"})
	require.True(t, ok)
	assert.True(t, p.Watermarked())
	assert.Equal(t, 210, first.Bounds().Dy())
	second, ok := p.Watermark(r, camera.Info{Model: "Y"})
	require.True(t, ok)
	assert.True(t, first == second)
	assert.True(t, p.Image() == first)
	assert.Equal(t, 1, f.begun)
}

func TestRenderFailures(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))

	f := &fake_surface{begin_err: errors.New("no context")}
	out, ok := NewRenderer(WithSurface(f)).Render(src, camera.Info{}, false)
	assert.False(t, ok)
	assert.True(t, out == image.Image(src))
	assert.Equal(t, 0, f.ended)

	f = &fake_surface{draw_err: errors.New("lost context")}
	out, ok = NewRenderer(WithSurface(f)).Render(src, camera.Info{}, false)
	assert.False(t, ok)
	assert.True(t, out == image.Image(src))
	assert.Equal(t, 1, f.ended)

	p := NewPhoto(src)
	_, ok = p.Watermark(NewRenderer(WithSurface(&fake_surface{begin_err: errors.New("x")})), camera.Info{})
	assert.False(t, ok)
	assert.False(t, p.Watermarked())

	tiny := NewRasterSurface(nil)
	tiny.MaxPixels = 100
	out, ok = NewRenderer(WithSurface(tiny)).Render(src, camera.Info{}, false)
	assert.False(t, ok)
	assert.True(t, out == image.Image(src))

	out, ok = Render(image.NewRGBA(image.Rect(0, 0, 0, 10)), camera.Info{}, false)
	assert.False(t, ok)
	assert.Equal(t, 0, out.Bounds().Dx())
}

func TestRasterRender(t *testing.T) {
	t.Run("empty info", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 64, 48))
		for i := range src.Pix {
			src.Pix[i] = 0x80
		}
		out, ok := Render(src, camera.Info{}, false)
		require.True(t, ok)
		canvas, ok := out.(*image.NRGBA)
		require.True(t, ok, "canvas is %T", out)
		require.Equal(t, image.Rect(0, 0, 64, 248), canvas.Bounds())
		for y := range 48 {
			for x := range 64 {
				require.Equal(t, src.NRGBAAt(x, y), canvas.NRGBAAt(x, y))
			}
		}
		white := color.NRGBA{0xff, 0xff, 0xff, 0xff}
		for y := 48; y < 248; y++ {
			for x := range 64 {
				require.Equal(t, white, canvas.NRGBAAt(x, y))
			}
		}
		// the source is untouched
		assert.Equal(t, uint8(0x80), src.Pix[0])
	})

	t.Run("model text", func(t *testing.T) {
		src := image.NewGray(image.Rect(10, 10, 410, 110))
		out, ok := Render(src, camera.Info{Model: "Test"}, false)
		require.True(t, ok)
		canvas, ok := out.(*image.Gray)
		require.True(t, ok, "canvas is %T", out)
		require.Equal(t, image.Rect(0, 0, 400, 300), canvas.Bounds())
		dark := 0
		for y := 100; y < 300; y++ {
			for x := range 400 {
				if canvas.GrayAt(x, y).Y < 0x80 {
					dark++
					require.GreaterOrEqual(t, x, LeftTextX)
				}
			}
		}
		assert.Greater(t, dark, 0)
		assert.Equal(t, color.Gray{}, canvas.GrayAt(0, 0))
	})

	t.Run("measure", func(t *testing.T) {
		s := NewRasterSurface(nil)
		defer s.End()
		style := TextStyle{Size: 40, Bold: true}
		short, long := s.MeasureText("f/1.8", style), s.MeasureText("f/1.8 f/1.8", style)
		assert.Greater(t, short.Width, 0.0)
		assert.Greater(t, long.Width, short.Width)
		empty := s.MeasureText("", style)
		assert.Equal(t, 0.0, empty.Width)
		assert.Equal(t, short.Height, empty.Height)
		assert.ErrorIs(t, s.DrawText("x", Rect{}, style), ErrNoCanvas)
	})
}
