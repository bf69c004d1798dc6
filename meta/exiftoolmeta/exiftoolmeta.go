// Package exiftoolmeta loads image properties by running the exiftool binary.
// It reads containers the pure Go loader does not understand (HEIC, most RAW
// formats) at the cost of an external process.
package exiftoolmeta

import (
	"fmt"
	"os"
	"sync"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"

	"github.com/photocamera/watermark/meta"
)

var _ = fmt.Print

// exiftool reports ISO as a single number rather than the raw rating list
var renames = map[string]string{
	"ISO": "ISOSpeedRatings",
}

// Loader runs a single long lived exiftool process. The zero value is not
// usable, create one with New.
type Loader struct {
	et    *exiftool.Exiftool
	mutex sync.Mutex
}

// New starts exiftool. Numeric values are requested unconverted so that
// exposure times arrive as seconds and focal lengths as plain numbers.
func New(opts ...func(*exiftool.Exiftool) error) (*Loader, error) {
	opts = append([]func(*exiftool.Exiftool) error{exiftool.NoPrintConversion()}, opts...)
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("exiftoolmeta: start exiftool: %w", err)
	}
	return &Loader{et: et}, nil
}

// Close stops the exiftool process.
func (l *Loader) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.et == nil {
		return nil
	}
	err := l.et.Close()
	l.et = nil
	return err
}

// Load implements meta.Loader. exiftool only reads files so raw is spooled to
// a temporary file first.
func (l *Loader) Load(raw []byte) (meta.Properties, error) {
	if len(raw) == 0 {
		return nil, meta.ErrNoMetadata
	}
	f, err := os.CreateTemp("", "exiftoolmeta-*")
	if err != nil {
		return nil, fmt.Errorf("exiftoolmeta: create temp: %w", err)
	}
	defer os.Remove(f.Name())
	_, err = f.Write(raw)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("exiftoolmeta: write temp: %w", err)
	}
	return l.LoadFile(f.Name())
}

// LoadFile extracts the properties of the file at path.
func (l *Loader) LoadFile(path string) (meta.Properties, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.et == nil {
		return nil, fmt.Errorf("exiftoolmeta: loader is closed")
	}
	fis := l.et.ExtractMetadata(path)
	if len(fis) == 0 {
		return nil, meta.ErrNoMetadata
	}
	fi := fis[0]
	if fi.Err != nil {
		return nil, fmt.Errorf("exiftoolmeta: extract %q: %w", path, fi.Err)
	}
	p := FromFields(fi.Fields)
	if p.Len() == 0 {
		return nil, meta.ErrNoMetadata
	}
	return p, nil
}

// FromFields sorts a flat exiftool field map into sections. Fields exiftool
// computes about the file itself (names, sizes, permissions) are dropped.
func FromFields(fields map[string]any) meta.Properties {
	p := meta.Properties{}
	for k, v := range fields {
		if file_level[k] {
			continue
		}
		name := k
		if r, ok := renames[k]; ok {
			name = r
		}
		section, key, ok := meta.SectionFor(name)
		if !ok {
			continue
		}
		if section == meta.GPS && (key == "Latitude" || key == "Longitude") {
			// with -n exiftool signs the coordinate, the platform keeps the
			// magnitude and the hemisphere apart
			if f, ok := v.(float64); ok && f < 0 {
				v = -f
			}
		}
		if meta.IsListField(name) {
			if _, is_list := v.([]any); !is_list {
				v = []any{v}
			}
		}
		klog.V(2).Infof("exiftoolmeta: %s/%s=%v", section, key, v)
		p.Set(section, key, v)
	}
	return p
}

var file_level = map[string]bool{
	"SourceFile": true, "FileName": true, "Directory": true, "FileSize": true,
	"FileModifyDate": true, "FileAccessDate": true, "FileInodeChangeDate": true,
	"FilePermissions": true, "FileType": true, "FileTypeExtension": true,
	"MIMEType": true, "ExifToolVersion": true, "ExifByteOrder": true,
}
