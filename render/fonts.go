package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Fonts is a parsed bold/regular pair. It is read-only and shared between
// surfaces, faces are created per surface since a face is not safe for
// concurrent use.
type Fonts struct {
	bold, regular *opentype.Font
}

// NewFonts parses TrueType or OpenType font data.
func NewFonts(bold, regular []byte) (*Fonts, error) {
	b, err := opentype.Parse(bold)
	if err != nil {
		return nil, fmt.Errorf("render: failed to parse bold font: %w", err)
	}
	r, err := opentype.Parse(regular)
	if err != nil {
		return nil, fmt.Errorf("render: failed to parse regular font: %w", err)
	}
	return &Fonts{bold: b, regular: r}, nil
}

// DefaultFonts is Go Bold and Go Regular.
var DefaultFonts = sync.OnceValue(func() *Fonts {
	f, err := NewFonts(gobold.TTF, goregular.TTF)
	if err != nil {
		panic(err)
	}
	return f
})

func (f *Fonts) new_face(size float64, bold bool) (font.Face, error) {
	src := f.regular
	if bold {
		src = f.bold
	}
	// 72 DPI makes the point size equal to the pixel size
	return opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
}

type face_key struct {
	size float64
	bold bool
}

// face_cache holds the faces of one surface.
type face_cache struct {
	fonts *Fonts
	mutex sync.Mutex
	faces map[face_key]font.Face
}

func (c *face_cache) get(size float64, bold bool) (font.Face, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	k := face_key{size, bold}
	if ans, ok := c.faces[k]; ok {
		return ans, nil
	}
	ans, err := c.fonts.new_face(size, bold)
	if err != nil {
		return nil, err
	}
	if c.faces == nil {
		c.faces = make(map[face_key]font.Face)
	}
	c.faces[k] = ans
	return ans, nil
}

func (c *face_cache) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, f := range c.faces {
		f.Close()
	}
	c.faces = nil
}
