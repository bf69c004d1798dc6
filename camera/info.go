// Package camera turns the metadata embedded in a photo into the five pieces
// of text shown on a watermark band: camera model, focal length, aperture,
// exposure time and ISO.
package camera

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Info is the camera metadata of one photo. Treat it as read-only: the
// pointer fields are shared by copies.
type Info struct {
	// Model is empty when unknown, never a placeholder.
	Model string
	// FocalLength in millimetres, nil when absent.
	FocalLength *float64
	// FNumber is the aperture f-number, nil when absent.
	FNumber *float64
	// ExposureTime in seconds, nil when absent.
	ExposureTime *float64
	// ISO is 0 when absent.
	ISO int
}

// IsEmpty reports whether no field at all was found.
func (i Info) IsEmpty() bool {
	return i.Model == "" && i.FocalLength == nil && i.FNumber == nil && i.ExposureTime == nil && i.ISO == 0
}

func (i Info) String() string {
	l := i.Labels()
	return fmt.Sprintf("Info{%q %q %q %q %q}", l.Model, l.FocalLength, l.FNumber, l.ExposureTime, l.ISO)
}

// Labels are the display strings of an Info. Absent fields are empty
// strings.
type Labels struct {
	Model        string
	FocalLength  string
	FNumber      string
	ExposureTime string
	ISO          string
}

// Segments returns the right hand group of the band in drawing order.
func (l Labels) Segments() []string {
	return []string{l.FocalLength, l.FNumber, l.ExposureTime, l.ISO}
}

// Labels formats every field for display.
func (i Info) Labels() Labels {
	ans := Labels{Model: i.Model, ISO: FormatISO(i.ISO)}
	if i.FocalLength != nil {
		ans.FocalLength = FormatNumber(*i.FocalLength) + "mm"
	}
	if i.FNumber != nil {
		ans.FNumber = "f/" + FormatNumber(*i.FNumber)
	}
	if i.ExposureTime != nil {
		ans.ExposureTime = FormatAsFraction(*i.ExposureTime)
	}
	return ans
}

// FormatISO returns "ISO<v>", or the empty string for 0.
func FormatISO(v int) string {
	if v == 0 {
		return ""
	}
	return "ISO" + strconv.Itoa(v)
}

// FormatNumber prints v as the shortest decimal that round-trips and always
// keeps a fractional part, so 26 prints as "26.0" and 1.8 as "1.8". It never
// switches to exponent form: 0.00001 prints as "0.00001", not "1e-05".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
