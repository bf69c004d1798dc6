package render

import (
	"image"

	"github.com/photocamera/watermark/camera"
)

const (
	// Widths strictly above this get the large band and font.
	LargeWidth = 2000

	LargeBandHeight = 300
	SmallBandHeight = 200

	LargeFontSize = 80
	SmallFontSize = 40

	LeftTextX = 100
	// the left text box is this much narrower than the image
	LeftTextInset = 20
	// distance kept between the end of the right group's measured text and
	// the right edge of the image
	RightMargin = 250
	SegmentGap  = 50
)

// BandHeight returns the height of the band appended below an image of the
// given width.
func BandHeight(width int) int {
	if width > LargeWidth {
		return LargeBandHeight
	}
	return SmallBandHeight
}

// FontSize returns the label font size for an image of the given width.
func FontSize(width int) float64 {
	if width > LargeWidth {
		return LargeFontSize
	}
	return SmallFontSize
}

// Layout is the geometry of one watermarked image.
type Layout struct {
	Width, Height int
	BandHeight    int
	FontSize      float64
	// Canvas is the full output, the source occupies its top Height rows.
	Canvas image.Rectangle
	Band   image.Rectangle
	Left   Rect
	// Segments holds one box per camera.Labels.Segments entry, in order.
	Segments []Rect
}

// ComputeLayout places the labels for a width x height image. measure must
// return the rendered extent of a string in the label font.
//
// The right hand group is laid out from its summed text width alone, so the
// gaps between segments push it past the right margin. Every segment uses the
// left text's height for vertical centering, so the whole band shares one
// baseline.
func ComputeLayout(width, height int, labels camera.Labels, measure func(string) Size) Layout {
	band := BandHeight(width)
	l := Layout{
		Width:      width,
		Height:     height,
		BandHeight: band,
		FontSize:   FontSize(width),
		Canvas:     image.Rect(0, 0, width, height+band),
		Band:       image.Rect(0, height, width, height+band),
	}
	left := measure(labels.Model)
	y := float64(height) + (float64(band)-left.Height)/2
	l.Left = Rect{X: LeftTextX, Y: y, Width: float64(width - LeftTextInset), Height: left.Height}

	segments := labels.Segments()
	sizes := make([]Size, len(segments))
	total := 0.0
	for i, s := range segments {
		sizes[i] = measure(s)
		total += sizes[i].Width
	}
	x := float64(width) - total - RightMargin
	l.Segments = make([]Rect, len(segments))
	for i, sz := range sizes {
		l.Segments[i] = Rect{X: x, Y: y, Width: sz.Width, Height: sz.Height}
		x += sz.Width + SegmentGap
	}
	return l
}
