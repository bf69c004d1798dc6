package watermark

import (
	"image"
	"image/draw"

	"github.com/kovidgoyal/go-parallel"
)

// as_nrgba returns img as an *image.NRGBA anchored at the origin, sharing
// pixels when img already is one.
func as_nrgba(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	ans := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(ans, ans.Bounds(), img, b.Min, draw.Src)
	return ans
}

// remap builds a new image whose pixel (x, y) is the source pixel at
// src_of(x, y). When swap is set the output has the source's width and
// height exchanged.
func remap(img image.Image, swap bool, src_of func(x, y, w, h int) (int, int)) *image.NRGBA {
	src := as_nrgba(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dw, dh := w, h
	if swap {
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	if err := parallel.Run_in_parallel_over_range(0, func(start, limit int) {
		for y := start; y < limit; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+dw*4]
			for x := range dw {
				sx, sy := src_of(x, y, w, h)
				i := sy*src.Stride + sx*4
				copy(row[x*4:x*4+4:x*4+4], src.Pix[i:i+4:i+4])
			}
		}
	}, 0, dh); err != nil {
		panic(err)
	}
	return dst
}

// FlipH flips the image horizontally (from left to right).
func FlipH(img image.Image) *image.NRGBA {
	return remap(img, false, func(x, y, w, h int) (int, int) { return w - 1 - x, y })
}

// FlipV flips the image vertically (from top to bottom).
func FlipV(img image.Image) *image.NRGBA {
	return remap(img, false, func(x, y, w, h int) (int, int) { return x, h - 1 - y })
}

// Rotate90 rotates the image 90 degrees counter-clockwise.
func Rotate90(img image.Image) *image.NRGBA {
	return remap(img, true, func(x, y, w, h int) (int, int) { return w - 1 - y, x })
}

// Rotate180 rotates the image 180 degrees.
func Rotate180(img image.Image) *image.NRGBA {
	return remap(img, false, func(x, y, w, h int) (int, int) { return w - 1 - x, h - 1 - y })
}

// Rotate270 rotates the image 270 degrees counter-clockwise.
func Rotate270(img image.Image) *image.NRGBA {
	return remap(img, true, func(x, y, w, h int) (int, int) { return y, h - 1 - x })
}

// Transpose flips the image horizontally and rotates 90 degrees
// counter-clockwise.
func Transpose(img image.Image) *image.NRGBA {
	return remap(img, true, func(x, y, w, h int) (int, int) { return y, x })
}

// Transverse flips the image vertically and rotates 90 degrees
// counter-clockwise.
func Transverse(img image.Image) *image.NRGBA {
	return remap(img, true, func(x, y, w, h int) (int, int) { return w - 1 - y, h - 1 - x })
}
