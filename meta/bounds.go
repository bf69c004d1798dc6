package meta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrCorrupt means a container was found but its directories point outside
// of it.
var ErrCorrupt = errors.New("meta: corrupt metadata container")

// sizes of the TIFF field types, indexed by type
var field_sizes = [...]uint64{1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8}

// tags whose value is the offset of another directory
var sub_directories = map[uint16]bool{0x8769: true, 0x8825: true, 0xa005: true}

const max_directories = 64

func is_tiff_header(b []byte) bool {
	return len(b) >= 8 && (bytes.HasPrefix(b, []byte("II*\x00")) || bytes.HasPrefix(b, []byte("MM\x00*")))
}

// tiff_stream returns the TIFF stream of a bare TIFF file or of the first
// Exif segment in raw, nil when there is none.
func tiff_stream(raw []byte) []byte {
	if is_tiff_header(raw) {
		return raw
	}
	if i := bytes.Index(raw, []byte("Exif\x00\x00")); i > -1 && is_tiff_header(raw[i+6:]) {
		return raw[i+6:]
	}
	return nil
}

// check_bounds walks the directories of the TIFF stream b and fails when an
// entry claims values beyond its end. The EXIF decoder allocates whatever
// size an entry claims before reading it, so this has to run first.
func check_bounds(b []byte) error {
	var order binary.ByteOrder = binary.BigEndian
	if b[0] == 'I' {
		order = binary.LittleEndian
	}
	size := uint64(len(b))
	seen := make(map[uint32]bool)
	pending := []uint32{order.Uint32(b[4:])}
	for len(pending) > 0 && len(seen) < max_directories {
		off := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if off == 0 || seen[off] {
			continue
		}
		seen[off] = true
		start := uint64(off)
		if start+2 > size {
			return fmt.Errorf("%w: directory at %d is past the end", ErrCorrupt, off)
		}
		n := uint64(order.Uint16(b[start:]))
		end := start + 2 + 12*n
		if end > size {
			return fmt.Errorf("%w: directory at %d is truncated", ErrCorrupt, off)
		}
		for i := range n {
			e := b[start+2+12*i:]
			id, typ, count := order.Uint16(e), order.Uint16(e[2:]), uint64(order.Uint32(e[4:]))
			if int(typ) >= len(field_sizes) || field_sizes[typ] == 0 {
				continue
			}
			if l := count * field_sizes[typ]; l > 4 && uint64(order.Uint32(e[8:]))+l > size {
				return fmt.Errorf("%w: tag 0x%04x claims %d bytes past the end", ErrCorrupt, id, l)
			}
			if sub_directories[id] {
				pending = append(pending, order.Uint32(e[8:]))
			}
		}
		if end+4 <= size {
			pending = append(pending, order.Uint32(b[end:]))
		}
	}
	return nil
}
