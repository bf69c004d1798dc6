// Package exiftest builds small EXIF containers for tests. Everything is
// written big endian, the way most cameras do it.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"slices"
)

// TIFF field types
const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
)

// Well known tag ids.
const (
	TagModel           = 0x0110
	TagMake            = 0x010f
	TagOrientation     = 0x0112
	TagExposureTime    = 0x829a
	TagFNumber         = 0x829d
	TagISOSpeedRatings = 0x8827
	TagFocalLength     = 0x920a
	TagMakerNote       = 0x927c
	TagGPSLatitudeRef  = 0x0001
	TagGPSLatitude     = 0x0002
	TagGPSLongitudeRef = 0x0003
	TagGPSLongitude    = 0x0004

	tagExifIFD = 0x8769
	tagGPSIFD  = 0x8825
)

// Tag is a single IFD entry.
type Tag struct {
	ID    uint16
	Type  uint16
	Count uint32
	Data  []byte
}

func ASCII(id uint16, s string) Tag {
	return Tag{ID: id, Type: typeASCII, Count: uint32(len(s) + 1), Data: append([]byte(s), 0)}
}

func Short(id uint16, vals ...uint16) Tag {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(b[2*i:], v)
	}
	return Tag{ID: id, Type: typeShort, Count: uint32(len(vals)), Data: b}
}

func Long(id uint16, v uint32) Tag {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return Tag{ID: id, Type: typeLong, Count: 1, Data: b}
}

// Rational takes numerator, denominator pairs.
func Rational(id uint16, pairs ...uint32) Tag {
	b := make([]byte, 4*len(pairs))
	for i, v := range pairs {
		binary.BigEndian.PutUint32(b[4*i:], v)
	}
	return Tag{ID: id, Type: typeRational, Count: uint32(len(pairs) / 2), Data: b}
}

// Undefined is an opaque blob, such as a maker note.
func Undefined(id uint16, data []byte) Tag {
	return Tag{ID: id, Type: typeUndefined, Count: uint32(len(data)), Data: data}
}

// Dangling claims count rationals stored at offset, whether or not anything
// is there.
func Dangling(id uint16, count, offset uint32) Tag {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, offset)
	return Tag{ID: id, Type: typeRational, Count: count, Data: b}
}

// Container describes the three directories an image can carry. Empty
// directories are left out.
type Container struct {
	IFD0 []Tag
	Exif []Tag
	GPS  []Tag
}

func ifd_size(tags []Tag) int {
	n := 2 + 12*len(tags) + 4
	for _, t := range tags {
		if len(t.Data) > 4 {
			n += len(t.Data) + len(t.Data)%2
		}
	}
	return n
}

func write_ifd(buf *bytes.Buffer, base int, tags []Tag) {
	tags = slices.Clone(tags)
	slices.SortFunc(tags, func(a, b Tag) int { return int(a.ID) - int(b.ID) })
	var u16 [2]byte
	var u32 [4]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(tags)))
	buf.Write(u16[:])
	data_off := base + 2 + 12*len(tags) + 4
	var data bytes.Buffer
	for _, t := range tags {
		binary.BigEndian.PutUint16(u16[:], t.ID)
		buf.Write(u16[:])
		binary.BigEndian.PutUint16(u16[:], t.Type)
		buf.Write(u16[:])
		binary.BigEndian.PutUint32(u32[:], t.Count)
		buf.Write(u32[:])
		if len(t.Data) <= 4 {
			var inline [4]byte
			copy(inline[:], t.Data)
			buf.Write(inline[:])
			continue
		}
		binary.BigEndian.PutUint32(u32[:], uint32(data_off+data.Len()))
		buf.Write(u32[:])
		data.Write(t.Data)
		if len(t.Data)%2 == 1 {
			data.WriteByte(0)
		}
	}
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write(data.Bytes())
}

// TIFF serializes c as a bare TIFF stream.
func (c Container) TIFF() []byte {
	ifd0 := slices.Clone(c.IFD0)
	if len(c.Exif) > 0 {
		ifd0 = append(ifd0, Long(tagExifIFD, 0))
	}
	if len(c.GPS) > 0 {
		ifd0 = append(ifd0, Long(tagGPSIFD, 0))
	}
	off0 := 8
	off_exif := off0 + ifd_size(ifd0)
	off_gps := off_exif + ifd_size(c.Exif)
	for i, t := range ifd0 {
		switch t.ID {
		case tagExifIFD:
			ifd0[i] = Long(tagExifIFD, uint32(off_exif))
		case tagGPSIFD:
			ifd0[i] = Long(tagGPSIFD, uint32(off_gps))
		}
	}
	var buf bytes.Buffer
	buf.WriteString("MM\x00\x2a")
	buf.Write([]byte{0, 0, 0, byte(off0)})
	write_ifd(&buf, off0, ifd0)
	if len(c.Exif) > 0 {
		write_ifd(&buf, off_exif, c.Exif)
	}
	if len(c.GPS) > 0 {
		write_ifd(&buf, off_gps, c.GPS)
	}
	return buf.Bytes()
}

// Image returns a w x h image with a horizontal gradient so that
// orientation changes are observable.
func Image(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / max(1, w-1)), G: uint8(y * 255 / max(1, h-1)), B: 0x40, A: 0xff})
		}
	}
	return img
}

// JPEG encodes img and, when c is not nil, inserts c as an APP1 Exif segment
// directly after the start of image marker.
func JPEG(img image.Image, c *Container) []byte {
	if c == nil {
		return JPEGWithTIFF(img, nil)
	}
	return JPEGWithTIFF(img, c.TIFF())
}

// JPEGWithTIFF is JPEG with the TIFF stream given as bytes, so that broken
// streams can be embedded. A nil stream adds no segment.
func JPEGWithTIFF(img image.Image, stream []byte) []byte {
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}
	if stream == nil {
		return enc.Bytes()
	}
	payload := append([]byte("Exif\x00\x00"), stream...)
	var out bytes.Buffer
	out.Write(enc.Bytes()[:2])
	out.Write([]byte{0xff, 0xe1})
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(payload)+2))
	out.Write(u16[:])
	out.Write(payload)
	out.Write(enc.Bytes()[2:])
	return out.Bytes()
}

// Camera is a typical phone capture: 4.25mm, f/1.8, 1/250s, ISO 64, taken
// at 37.5N 122.25W.
func Camera(model string) *Container {
	return &Container{
		IFD0: []Tag{ASCII(TagMake, "Apple"), ASCII(TagModel, model)},
		Exif: []Tag{
			Rational(TagExposureTime, 1, 250),
			Rational(TagFNumber, 9, 5),
			Short(TagISOSpeedRatings, 64),
			Rational(TagFocalLength, 17, 4),
		},
		GPS: []Tag{
			ASCII(TagGPSLatitudeRef, "N"),
			Rational(TagGPSLatitude, 37, 1, 30, 1, 0, 1),
			ASCII(TagGPSLongitudeRef, "W"),
			Rational(TagGPSLongitude, 122, 1, 15, 1, 0, 1),
		},
	}
}

// Corrupt are recognisable containers a decoder must survive. The
// directories are valid up to the point of breakage, so a model can be read
// from "short maker note" but not from the others.
func Corrupt() map[string][]byte {
	model := ASCII(TagModel, "X100V")
	short_note := Container{IFD0: []Tag{model}, Exif: []Tag{Undefined(TagMakerNote, []byte("abc"))}}
	dangling := Container{IFD0: []Tag{model}, Exif: []Tag{Dangling(TagFocalLength, 2, 0xffffff00)}}
	huge := Container{IFD0: []Tag{model}, Exif: []Tag{Dangling(TagFocalLength, 0x1fffffff, 8)}}
	two := Container{IFD0: []Tag{ASCII(TagMake, "Fujifilm"), model}}
	img := Image(4, 4)
	return map[string][]byte{
		"short maker note": JPEGWithTIFF(img, short_note.TIFF()),
		"offset past end":  JPEGWithTIFF(img, dangling.TIFF()),
		"huge count":       JPEGWithTIFF(img, huge.TIFF()),
		// cut in the middle of the second IFD0 entry
		"truncated IFD": JPEGWithTIFF(img, two.TIFF()[:8+2+12+6]),
	}
}
