package render

import (
	"image"
	"image/color"
)

// Size is a measured text extent in pixels.
type Size struct {
	Width, Height float64
}

// Rect is a text box in pixels. Text is drawn on a single line starting at
// the top left corner and is not wrapped.
type Rect struct {
	X, Y, Width, Height float64
}

// TextStyle selects the face and colour used for a string.
type TextStyle struct {
	// Size is the font size in pixels.
	Size  float64
	Bold  bool
	Color color.Color
}

// Surface is a drawing context a Renderer composes onto. A Surface is used
// by one render at a time: Begin acquires a canvas, End releases it and is
// always called once Begin succeeded, even when drawing fails midway.
type Surface interface {
	// Begin acquires a width x height canvas whose pixels can represent
	// colours of model.
	Begin(width, height int, model color.Model) error
	// DrawImage copies img unscaled with its top left corner at at.
	DrawImage(img image.Image, at image.Point) error
	FillRect(r image.Rectangle, c color.Color) error
	MeasureText(text string, style TextStyle) Size
	DrawText(text string, r Rect, style TextStyle) error
	// Image returns the composed canvas. It stays valid after End.
	Image() image.Image
	End()
}
