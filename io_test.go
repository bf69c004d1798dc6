package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photocamera/watermark/internal/exiftest"
	"github.com/photocamera/watermark/meta"
)

var _ = fmt.Print

func oriented_jpeg(w, h int, o uint16) []byte {
	c := &exiftest.Container{IFD0: []exiftest.Tag{
		exiftest.ASCII(exiftest.TagModel, "iPhone 15 Pro"),
		exiftest.Short(exiftest.TagOrientation, o),
	}}
	return exiftest.JPEG(exiftest.Image(w, h), c)
}

func TestDecodeOrientation(t *testing.T) {
	for _, tc := range []struct {
		orientation uint16
		w, h        int
	}{
		{1, 8, 6},
		{2, 8, 6},
		{3, 8, 6},
		{4, 8, 6},
		{5, 6, 8},
		{6, 6, 8},
		{7, 6, 8},
		{8, 6, 8},
	} {
		t.Run(fmt.Sprintf("orientation %d", tc.orientation), func(t *testing.T) {
			img, err := DecodeBytes(oriented_jpeg(8, 6, tc.orientation))
			require.NoError(t, err)
			assert.Equal(t, JPEG, img.Format)
			assert.Equal(t, int(tc.orientation), img.Orientation)
			assert.Equal(t, tc.w, img.Image.Bounds().Dx())
			assert.Equal(t, tc.h, img.Image.Bounds().Dy())
			assert.Equal(t, uint32(tc.w), img.Metadata.PixelWidth)
			assert.Equal(t, uint32(tc.h), img.Metadata.PixelHeight)
		})
	}

	img, err := DecodeBytes(oriented_jpeg(8, 6, 6), AutoOrientation(false))
	require.NoError(t, err)
	assert.Equal(t, 0, img.Orientation)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Image.Bounds())

	// out of range values are ignored
	img, err = DecodeBytes(oriented_jpeg(8, 6, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, img.Orientation)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Image.Bounds())
}

func TestDecodeKeepsMetadata(t *testing.T) {
	raw := exiftest.JPEG(exiftest.Image(4, 4), exiftest.Camera("Pixel 8"))
	img, err := DecodeAll(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, img.Metadata.Raw())
	assert.Equal(t, JPEG, img.Metadata.Format)
	p, err := img.Metadata.Properties()
	require.NoError(t, err)
	model, _ := p.Get(meta.TIFF, "Model")
	assert.Equal(t, "Pixel 8", model)
}

func TestDecodeCorruptMetadata(t *testing.T) {
	for name, raw := range exiftest.Corrupt() {
		t.Run(name, func(t *testing.T) {
			var img *Image
			var err error
			require.NotPanics(t, func() { img, err = DecodeBytes(raw) })
			require.NoError(t, err)
			assert.Equal(t, JPEG, img.Format)
			assert.Equal(t, 0, img.Orientation)
			assert.Equal(t, image.Rect(0, 0, 4, 4), img.Image.Bounds())
		})
	}
}

func TestDecodeFormats(t *testing.T) {
	src := numbered(5, 3)
	for _, f := range []Format{PNG, TIFF, BMP, JPEG} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, f))
			img, err := DecodeBytes(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, f, img.Format)
			assert.Equal(t, 1, img.Frames)
			assert.Equal(t, image.Rect(0, 0, 5, 3), img.Image.Bounds())
			assert.Equal(t, 0, img.Orientation)
		})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	img, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	for y := range 3 {
		for x := range 5 {
			r, g, _, _ := img.Image.At(x, y).RGBA()
			require.Equal(t, [2]uint32{uint32(x) * 0x101, uint32(y) * 0x101}, [2]uint32{r, g})
		}
	}

	_, err = DecodeBytes([]byte("certainly not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Decode(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, Encode(&buf, src, WEBP), ErrUnsupportedFormat)
}

func TestDecodeAnimatedGIF(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	first := image.NewPaletted(image.Rect(2, 2, 4, 4), pal)
	second := image.NewPaletted(image.Rect(0, 0, 6, 6), pal)
	g := &gif.GIF{
		Image:  []*image.Paletted{first, second},
		Delay:  []int{10, 10},
		Config: image.Config{Width: 6, Height: 6, ColorModel: pal},
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	img, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, GIF, img.Format)
	assert.Equal(t, 2, img.Frames)
	assert.Equal(t, image.Rect(0, 0, 6, 6), img.Image.Bounds())
}

type orientation_loader int

func (o orientation_loader) Load(raw []byte) (meta.Properties, error) {
	p := meta.Properties{}
	p.Set(meta.TIFF, "Orientation", float64(o))
	return p, nil
}

func TestMetadataLoader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, numbered(3, 2)))
	img, err := DecodeBytes(buf.Bytes(), MetadataLoader(orientation_loader(3)))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Orientation)
	assert.Equal(t, coords(Rotate180(numbered(3, 2))), coords(as_nrgba(img.Image)))

	// PNG carries no EXIF for the default loader
	img, err = DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 0, img.Orientation)
}

func TestFormatFromFilename(t *testing.T) {
	for name, expected := range map[string]Format{
		"a.jpg": JPEG, "a.JPEG": JPEG, "b.png": PNG, "c.gif": GIF,
		"d.tif": TIFF, "e.tiff": TIFF, "f.bmp": BMP, "g.webp": WEBP,
	} {
		f, err := FormatFromFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, expected, f, name)
	}
	_, err := FormatFromFilename("a.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = FormatFromFilename("noext")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEncodeRefusesPaletteFormats(t *testing.T) {
	src := numbered(2, 2)
	for _, f := range []Format{GIF, WEBP, UNKNOWN} {
		assert.False(t, CanEncode(f), f.String())
		assert.ErrorIs(t, Encode(&bytes.Buffer{}, src, f), ErrUnsupportedFormat)
	}
	path := filepath.Join(t.TempDir(), "out.gif")
	assert.ErrorIs(t, Save(src, path), ErrUnsupportedFormat)
	assert.NoFileExists(t, path)
}

func TestSaveOpen(t *testing.T) {
	dir := t.TempDir()
	src := numbered(7, 4)
	for _, name := range []string{"out.png", "out.jpg", "out.bmp"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(src, path, JPEGQuality(80), PNGCompressionLevel(png.BestSpeed)))
		img, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 7, 4), img.Bounds())
		all, err := OpenAll(path)
		require.NoError(t, err)
		assert.Equal(t, 1, all.Frames)
	}
	assert.ErrorIs(t, Save(src, filepath.Join(dir, "out.txt")), ErrUnsupportedFormat)
	_, err := Open(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "1.2.0", Version.String())
}
