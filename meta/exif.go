package meta

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"k8s.io/klog/v2"
)

// Default is the pure Go EXIF loader. It understands JPEG APP1 segments and
// bare TIFF streams.
var Default Loader = LoaderFunc(LoadExif)

// LoadExif decodes the EXIF container in raw into Properties. A corrupt
// container is an error, never a panic.
func LoadExif(raw []byte) (p Properties, err error) {
	if len(raw) == 0 {
		return nil, ErrNoMetadata
	}
	defer func() {
		if r := recover(); r != nil {
			klog.V(1).Infof("meta: exif decoder panicked: %v", r)
			p, err = nil, fmt.Errorf("meta: decode exif: %v", r)
		}
	}()
	if t := tiff_stream(raw); t != nil {
		if err = check_bounds(t); err != nil {
			return nil, err
		}
	}
	x, err := exif.Decode(bytes.NewReader(raw))
	if x == nil {
		if err == nil {
			err = ErrNoMetadata
		}
		return nil, fmt.Errorf("meta: decode exif: %w", err)
	}
	if err != nil {
		if exif.IsCriticalError(err) {
			return nil, fmt.Errorf("meta: decode exif: %w", err)
		}
		klog.V(1).Infof("meta: ignoring non-critical exif error: %v", err)
	}
	p = Properties{}
	if err := x.Walk(walker{p}); err != nil {
		return nil, fmt.Errorf("meta: walk exif: %w", err)
	}
	return p, nil
}

type walker struct {
	props Properties
}

func (w walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	section, key, ok := SectionFor(string(name))
	if !ok || tag == nil {
		return nil
	}
	if section == GPS && (key == "Latitude" || key == "Longitude") {
		if deg, ok := degrees(tag); ok {
			w.props.Set(section, key, deg)
		}
		return nil
	}
	v, ok := tag_value(tag, IsListField(string(name)))
	if !ok {
		klog.V(2).Infof("meta: skipping unreadable tag %s (%v)", name, tag.Format())
		return nil
	}
	w.props.Set(section, key, v)
	return nil
}

func tag_value(tag *tiff.Tag, as_list bool) (any, bool) {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		return s, err == nil
	case tiff.UndefVal, tiff.OtherVal:
		return slices.Clone(tag.Val), true
	}
	vals := make([]any, 0, int(tag.Count))
	for i := range int(tag.Count) {
		v, err := scalar(tag, i)
		if err != nil {
			return nil, false
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil, false
	}
	if len(vals) == 1 && !as_list {
		return vals[0], true
	}
	return vals, true
}

func scalar(tag *tiff.Tag, i int) (any, error) {
	switch tag.Format() {
	case tiff.IntVal:
		return tag.Int64(i)
	case tiff.FloatVal:
		return tag.Float(i)
	case tiff.RatVal:
		num, den, err := tag.Rat2(i)
		if err != nil {
			return nil, err
		}
		if den == 0 {
			return nil, fmt.Errorf("zero denominator")
		}
		return float64(num) / float64(den), nil
	}
	return nil, fmt.Errorf("unsupported tag format %v", tag.Format())
}

// degrees converts a degrees/minutes/seconds triple into decimal degrees.
// The hemisphere is kept separately under the matching *Ref key.
func degrees(tag *tiff.Tag) (float64, bool) {
	if tag.Format() != tiff.RatVal || tag.Count < 1 {
		return 0, false
	}
	var ans float64
	for i, div := range []float64{1, 60, 3600} {
		if i >= int(tag.Count) {
			break
		}
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		ans += float64(num) / float64(den) / div
	}
	return ans, true
}
