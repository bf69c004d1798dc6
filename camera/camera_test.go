package camera

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photocamera/watermark/internal/exiftest"
	"github.com/photocamera/watermark/meta"
)

var _ = fmt.Print

func ptr(v float64) *float64 { return &v }

func TestFormatAsFraction(t *testing.T) {
	for _, tc := range []struct {
		in       float64
		expected string
	}{
		{0.5, "1/2s"},
		{0.25, "1/4s"},
		{1.0 / 250, "1/250s"},
		{0.004, "1/250s"},
		{0.3, "3/10s"},
		{1.0 / 3, "1/3s"},
		{1, "1/1s"},
		{2.5, "5/2s"},
		{0, ""},
		{-0.5, ""},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	} {
		assert.Equal(t, tc.expected, FormatAsFraction(tc.in), "x = %v", tc.in)
	}
}

func TestFraction(t *testing.T) {
	n, d, ok := Fraction(0.004, 10)
	assert.False(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, 11, d)

	n, d, ok = Fraction(0.004, 249)
	require.True(t, ok)
	assert.Equal(t, [2]int{1, 250}, [2]int{n, d})
}

func TestLabels(t *testing.T) {
	i := Info{Model: "iPhone 12", FocalLength: ptr(26), FNumber: ptr(1.8), ExposureTime: ptr(0.01), ISO: 32}
	expected := Labels{Model: "iPhone 12", FocalLength: "26.0mm", FNumber: "f/1.8", ExposureTime: "1/100s", ISO: "ISO32"}
	if diff := cmp.Diff(expected, i.Labels()); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"26.0mm", "f/1.8", "1/100s", "ISO32"}, i.Labels().Segments())

	l := Info{FNumber: ptr(2)}.Labels()
	assert.Equal(t, Labels{FNumber: "f/2.0"}, l)
	assert.Equal(t, []string{"", "f/2.0", "", ""}, l.Segments())
	assert.Equal(t, Labels{}, Info{}.Labels())

	assert.True(t, Info{}.IsEmpty())
	assert.False(t, Info{ISO: 100}.IsEmpty())
	assert.Equal(t, "", FormatISO(0))
	assert.Equal(t, "ISO100", FormatISO(100))
	assert.Equal(t, "4.25", FormatNumber(4.25))
}

func TestFormatNumber(t *testing.T) {
	for v, expected := range map[float64]string{
		26: "26.0", 1.8: "1.8", 4.25: "4.25", 0.00001: "0.00001", 1 << 53: "9007199254740992.0",
	} {
		assert.Equal(t, expected, FormatNumber(v))
	}
}

func TestExtract(t *testing.T) {
	raw := exiftest.JPEG(exiftest.Image(16, 9), exiftest.Camera("iPhone 15 Pro"))
	i := Extract(raw)
	expected := Labels{Model: "iPhone 15 Pro", FocalLength: "4.25mm", FNumber: "f/1.8", ExposureTime: "1/250s", ISO: "ISO64"}
	if diff := cmp.Diff(expected, i.Labels()); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}

	t.Run("no container", func(t *testing.T) {
		assert.True(t, Extract(exiftest.JPEG(exiftest.Image(4, 4), nil)).IsEmpty())
		assert.True(t, Extract(nil).IsEmpty())
		assert.True(t, Extract([]byte("garbage")).IsEmpty())
	})

	t.Run("corrupt container", func(t *testing.T) {
		for name, raw := range exiftest.Corrupt() {
			var i Info
			require.NotPanics(t, func() { i = Extract(raw) }, name)
			if name == "short maker note" {
				assert.Equal(t, Info{Model: "X100V"}, i, name)
			} else {
				assert.True(t, i.IsEmpty(), name)
			}
		}
	})

	t.Run("partial container", func(t *testing.T) {
		c := &exiftest.Container{
			IFD0: []exiftest.Tag{exiftest.ASCII(exiftest.TagModel, "X100V")},
			Exif: []exiftest.Tag{exiftest.Rational(exiftest.TagFNumber, 2, 1)},
		}
		i := Extract(exiftest.JPEG(exiftest.Image(4, 4), c))
		assert.Equal(t, "X100V", i.Model)
		require.NotNil(t, i.FNumber)
		assert.Equal(t, 2.0, *i.FNumber)
		assert.Nil(t, i.FocalLength)
		assert.Nil(t, i.ExposureTime)
		assert.Equal(t, 0, i.ISO)
	})

	t.Run("custom loader", func(t *testing.T) {
		e := NewExtractor(WithLoader(meta.LoaderFunc(func([]byte) (meta.Properties, error) {
			p := meta.Properties{}
			p.Set(meta.TIFF, "Model", "Custom")
			return p, nil
		})))
		assert.Equal(t, "Custom", e.Extract(nil).Model)

		failing := NewExtractor(WithLoader(meta.LoaderFunc(func([]byte) (meta.Properties, error) {
			return nil, errors.New("boom")
		})))
		assert.True(t, failing.Extract(raw).IsEmpty())
	})

	t.Run("attached metadata", func(t *testing.T) {
		md := meta.NewData(raw, nil)
		assert.Equal(t, "iPhone 15 Pro", FromData(md).Model)
		assert.True(t, FromData(nil).IsEmpty())
	})
}

func TestFromPropertiesIgnoresMalformedFields(t *testing.T) {
	p := meta.Properties{}
	p.Set(meta.TIFF, "Model", int64(7))
	p.Set(meta.Exif, "FNumber", "2.8")
	p.Set(meta.Exif, "FocalLength", int64(50))
	p.Set(meta.Exif, "ExposureTime", []any{0.5})
	p.Set(meta.Exif, "ISOSpeedRatings", int64(200))
	i := FromProperties(p)
	assert.Equal(t, "", i.Model)
	assert.Nil(t, i.FNumber)
	assert.Nil(t, i.ExposureTime)
	require.NotNil(t, i.FocalLength)
	assert.Equal(t, 50.0, *i.FocalLength)
	assert.Equal(t, 0, i.ISO)

	for _, iso := range []any{[]any{}, []any{1.5}, []any{"100"}, []any{math.NaN()}} {
		p.Set(meta.Exif, "ISOSpeedRatings", iso)
		assert.Equal(t, 0, FromProperties(p).ISO, "ISO %v", iso)
	}
	p.Set(meta.Exif, "ISOSpeedRatings", []any{float64(400), float64(800)})
	assert.Equal(t, 400, FromProperties(p).ISO)
	p.Set(meta.Exif, "ISOSpeedRatings", []int64{100})
	assert.Equal(t, 100, FromProperties(p).ISO)

	assert.True(t, FromProperties(nil).IsEmpty())
}
