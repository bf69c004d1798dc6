package types

import (
	"fmt"
)

var _ = fmt.Print

// Format is an image file format.
type Format int

// Image file formats.
const (
	UNKNOWN Format = iota
	JPEG
	PNG
	GIF
	TIFF
	WEBP
	BMP
)

var FormatExts = map[string]Format{
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"apng": PNG,
	"gif":  GIF,
	"tif":  TIFF,
	"tiff": TIFF,
	"webp": WEBP,
	"bmp":  BMP,
}

var formatNames = map[Format]string{
	JPEG: "JPEG",
	PNG:  "PNG",
	GIF:  "GIF",
	TIFF: "TIFF",
	WEBP: "WEBP",
	BMP:  "BMP",
}

func (f Format) String() string {
	return formatNames[f]
}

// FormatFromDecoderName maps the format names registered with the image
// package ("jpeg", "png", ...) to a Format.
func FormatFromDecoderName(x string) Format {
	switch x {
	case "jpeg":
		return JPEG
	case "png", "apng":
		return PNG
	case "gif":
		return GIF
	case "tiff":
		return TIFF
	case "webp":
		return WEBP
	case "bmp":
		return BMP
	}
	return UNKNOWN
}

// MarshalText makes formats readable in JSON dumps.
func (f Format) MarshalText() ([]byte, error) {
	if f == UNKNOWN {
		return []byte("UNKNOWN"), nil
	}
	return []byte(f.String()), nil
}
