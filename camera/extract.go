package camera

import (
	"math"
	"sync"

	"k8s.io/klog/v2"

	"github.com/photocamera/watermark/meta"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithLoader selects the metadata loader, the pure Go EXIF loader is used
// by default.
func WithLoader(l meta.Loader) Option {
	return func(e *Extractor) {
		if l != nil {
			e.loader = l
		}
	}
}

// Extractor builds Info values from raw image bytes. It holds no per-call
// state and is safe for concurrent use.
type Extractor struct {
	loader meta.Loader
}

// NewExtractor returns an Extractor configured with opts.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{loader: meta.Default}
	for _, o := range opts {
		o(e)
	}
	return e
}

var defaultExtractor struct {
	once sync.Once
	e    *Extractor
}

// Extract reads camera metadata from raw using the default Extractor.
func Extract(raw []byte) Info {
	defaultExtractor.once.Do(func() {
		defaultExtractor.e = NewExtractor()
	})
	return defaultExtractor.e.Extract(raw)
}

// Extract never fails: an unreadable or missing container yields the zero
// Info and a missing or malformed field leaves only that field empty.
func (e *Extractor) Extract(raw []byte) Info {
	p, err := e.loader.Load(raw)
	if err != nil {
		klog.V(1).Infof("camera: no usable metadata: %v", err)
		return Info{}
	}
	return FromProperties(p)
}

// FromData extracts from already attached metadata, sharing its decoded
// properties with other readers.
func FromData(md *meta.Data) Info {
	if md == nil {
		return Info{}
	}
	p, err := md.Properties()
	if err != nil {
		klog.V(1).Infof("camera: no usable metadata: %v", err)
		return Info{}
	}
	return FromProperties(p)
}

// FromProperties reads each field independently from p.
func FromProperties(p meta.Properties) (ans Info) {
	if dt, ok := p.Get(meta.TIFF, "DateTime"); ok {
		klog.V(2).Infof("camera: taken at %v", dt)
	}
	if v, ok := p.Get(meta.TIFF, "Model"); ok {
		if s, ok := v.(string); ok {
			ans.Model = s
		} else {
			klog.V(1).Infof("camera: Model is %T, not a string", v)
		}
	}
	ans.FocalLength = optional_number(p, "FocalLength")
	ans.FNumber = optional_number(p, "FNumber")
	ans.ExposureTime = optional_number(p, "ExposureTime")
	if v, ok := p.Get(meta.Exif, "ISOSpeedRatings"); ok {
		if first, ok := first_element(v); ok {
			ans.ISO, _ = integer(first)
		} else {
			klog.V(1).Infof("camera: ISOSpeedRatings is %T, not a list", v)
		}
	}
	if lat, ok := p.Get(meta.GPS, "Latitude"); ok {
		klog.V(2).Infof("camera: latitude %v", lat)
	}
	return ans
}

func optional_number(p meta.Properties, key string) *float64 {
	v, ok := p.Get(meta.Exif, key)
	if !ok {
		return nil
	}
	f, ok := number(v)
	if !ok {
		klog.V(1).Infof("camera: %s is %T, not a number", key, v)
		return nil
	}
	return &f
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// integer accepts only numbers without a fractional part.
func integer(v any) (int, bool) {
	f, ok := number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func first_element(v any) (any, bool) {
	switch l := v.(type) {
	case []any:
		if len(l) > 0 {
			return l[0], true
		}
		return nil, true
	case []int64:
		if len(l) > 0 {
			return l[0], true
		}
		return nil, true
	case []float64:
		if len(l) > 0 {
			return l[0], true
		}
		return nil, true
	}
	return nil, false
}
