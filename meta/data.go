// Package meta decodes the metadata container embedded in an image into a
// sectioned property dictionary, keyed the same way platform image property
// APIs key them: a device section ({TIFF}), a capture parameters section
// ({Exif}) and a location section ({GPS}).
package meta

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/photocamera/watermark/types"
)

var _ = fmt.Println

// Section names a group of related properties.
type Section string

const (
	TIFF Section = "{TIFF}"
	Exif Section = "{Exif}"
	GPS  Section = "{GPS}"
)

// ErrNoMetadata is returned by loaders when the input carries no metadata
// container at all.
var ErrNoMetadata = errors.New("meta: no metadata container found")

// Properties maps a section to its key/value dictionary. Values are one of
// string, int64, float64, []byte or []any (for multi-valued tags).
type Properties map[Section]map[string]any

// Get returns the raw value stored under key in section s.
func (p Properties) Get(s Section, key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	d, ok := p[s]
	if !ok {
		return nil, false
	}
	v, ok := d[key]
	return v, ok
}

// Set stores v under key in section s, creating the section if needed.
func (p Properties) Set(s Section, key string, v any) {
	d, ok := p[s]
	if !ok {
		d = make(map[string]any)
		p[s] = d
	}
	d[key] = v
}

// Len returns the total number of properties across all sections.
func (p Properties) Len() (n int) {
	for _, d := range p {
		n += len(d)
	}
	return
}

// Loader decodes raw image bytes into Properties.
type Loader interface {
	Load(raw []byte) (Properties, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(raw []byte) (Properties, error)

func (f LoaderFunc) Load(raw []byte) (Properties, error) { return f(raw) }

// device level tags live in IFD0, everything else that is not GPS belongs to
// the capture parameters section
var tiffFields = map[string]bool{
	"Make": true, "Model": true, "Orientation": true, "Software": true,
	"DateTime": true, "Artist": true, "Copyright": true, "HostComputer": true,
	"ImageDescription": true, "XResolution": true, "YResolution": true,
	"ResolutionUnit": true, "WhitePoint": true, "PrimaryChromaticities": true,
	"YCbCrCoefficients": true, "YCbCrPositioning": true, "YCbCrSubSampling": true,
	"ReferenceBlackWhite": true, "TransferFunction": true, "Compression": true,
	"PhotometricInterpretation": true, "ImageWidth": true, "ImageLength": true,
	"BitsPerSample": true, "SamplesPerPixel": true, "PlanarConfiguration": true,
}

// tags that are always presented as lists, even when they hold one value
var listFields = map[string]bool{
	"ISOSpeedRatings":   true,
	"ISO":               true,
	"SubjectArea":       true,
	"LensSpecification": true,
}

// SectionFor maps a tag name to the section it belongs to and the key used
// inside that section. ok is false for structural tags (sub-IFD pointers,
// thumbnail locators) which carry no user-visible metadata.
func SectionFor(name string) (s Section, key string, ok bool) {
	switch {
	case name == "" || strings.HasSuffix(name, "IFDPointer") || strings.HasPrefix(name, "Thumb"):
		return "", "", false
	case strings.HasPrefix(name, "GPS"):
		return GPS, strings.TrimPrefix(name, "GPS"), true
	case tiffFields[name]:
		return TIFF, name, true
	}
	return Exif, name, true
}

// IsListField reports whether the tag is always exposed as a list.
func IsListField(name string) bool { return listFields[name] }

// Data holds the raw bytes of an image together with lazily decoded
// Properties. It is safe for concurrent use.
type Data struct {
	Format      types.Format
	PixelWidth  uint32
	PixelHeight uint32
	raw         []byte
	loader      Loader
	props       Properties
	propsErr    error
	loaded      bool
	mutex       sync.Mutex
}

// NewData returns Data for raw that will be decoded with loader on first
// use. A nil loader means the default EXIF loader.
func NewData(raw []byte, loader Loader) *Data {
	if loader == nil {
		loader = Default
	}
	return &Data{raw: raw, loader: loader}
}

// Properties returns the decoded properties.
//
// An error is returned if the container could not be parsed. If no metadata
// was found, ErrNoMetadata is returned.
func (md *Data) Properties() (Properties, error) {
	md.mutex.Lock()
	defer md.mutex.Unlock()

	if !md.loaded {
		md.loaded = true
		if len(md.raw) == 0 {
			md.propsErr = ErrNoMetadata
		} else {
			md.props, md.propsErr = md.loader.Load(md.raw)
		}
	}
	return md.props, md.propsErr
}

// SetProperties replaces the decoded properties, discarding any load error.
func (md *Data) SetProperties(p Properties) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.props = p
	md.propsErr = nil
	md.loaded = true
}

// Raw returns the bytes the metadata is decoded from.
func (md *Data) Raw() []byte {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	return md.raw
}
