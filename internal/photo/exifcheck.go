package photo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// goexif sizes its tag buffers from the declared entry count before checking
// it against the input, so every IFD it will decode is bounds-checked here
// first.

const maxIFDs = 64

var exifHeader = []byte("Exif\x00\x00")

// TIFF field type sizes in bytes, indexed by type code.
var tiffTypeSize = [...]uint64{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// Tags whose value is the offset of another IFD decoded by goexif.
var subIFDTags = map[uint16]bool{
	0x8769: true, // Exif
	0x8825: true, // GPS
	0xA005: true, // Interoperability
}

var errMalformedTIFF = errors.New("malformed tiff")

// tiffBlock returns the TIFF structure carried by data: data itself for a
// TIFF file, or the payload of the first Exif APP1 segment of a JPEG.
func tiffBlock(data []byte) ([]byte, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return data, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return jpegExifBlock(data)
	default:
		return nil, false
	}
}

func jpegExifBlock(data []byte) ([]byte, bool) {
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return nil, false
		}
		marker := data[i+1]
		switch {
		case marker == 0xFF:
			i++
			continue
		case marker == 0xD9, marker == 0xDA:
			return nil, false
		case marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
			i += 2
			continue
		}
		length := int(binary.BigEndian.Uint16(data[i+2:]))
		if length < 2 || i+2+length > len(data) {
			return nil, false
		}
		segment := data[i+4 : i+2+length]
		if marker == 0xE1 && bytes.HasPrefix(segment, exifHeader) {
			return segment[len(exifHeader):], true
		}
		i += 2 + length
	}
	return nil, false
}

// checkTIFF walks the IFD chain and every Exif, GPS and Interoperability
// sub-IFD, rejecting directories or values that point outside the block and
// IFD cycles.
func checkTIFF(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("%w: short header", errMalformedTIFF)
	}
	var order binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return fmt.Errorf("%w: byte order", errMalformedTIFF)
	}
	if order.Uint16(b[2:]) != 42 {
		return fmt.Errorf("%w: magic", errMalformedTIFF)
	}

	w := &ifdWalker{b: b, order: order, visited: make(map[uint64]bool)}
	for next := uint64(order.Uint32(b[4:])); next != 0; {
		var err error
		if next, err = w.dir(next); err != nil {
			return err
		}
	}
	for len(w.pending) > 0 {
		offset := w.pending[0]
		w.pending = w.pending[1:]
		if _, err := w.dir(offset); err != nil {
			return err
		}
	}
	return nil
}

type ifdWalker struct {
	b       []byte
	order   binary.ByteOrder
	visited map[uint64]bool
	pending []uint64
}

// dir validates the directory at offset, queues its sub-IFDs and returns the
// offset of the next directory in the chain.
func (w *ifdWalker) dir(offset uint64) (uint64, error) {
	size := uint64(len(w.b))
	if offset < 8 || offset+2 > size {
		return 0, fmt.Errorf("%w: ifd offset %d out of range", errMalformedTIFF, offset)
	}
	if w.visited[offset] {
		return 0, fmt.Errorf("%w: ifd cycle at %d", errMalformedTIFF, offset)
	}
	if len(w.visited) >= maxIFDs {
		return 0, fmt.Errorf("%w: too many ifds", errMalformedTIFF)
	}
	w.visited[offset] = true

	entries := uint64(w.order.Uint16(w.b[offset:]))
	end := offset + 2 + entries*12
	if end+4 > size {
		return 0, fmt.Errorf("%w: ifd at %d truncated", errMalformedTIFF, offset)
	}
	for e := offset + 2; e < end; e += 12 {
		tag := w.order.Uint16(w.b[e:])
		typ := w.order.Uint16(w.b[e+2:])
		count := uint64(w.order.Uint32(w.b[e+4:]))
		if int(typ) >= len(tiffTypeSize) || tiffTypeSize[typ] == 0 {
			return 0, fmt.Errorf("%w: tag %#x has unknown type %d", errMalformedTIFF, tag, typ)
		}
		valueLen := count * tiffTypeSize[typ]
		if valueLen > size {
			return 0, fmt.Errorf("%w: tag %#x declares %d bytes", errMalformedTIFF, tag, valueLen)
		}
		valueAt := e + 8
		if valueLen > 4 {
			valueAt = uint64(w.order.Uint32(w.b[e+8:]))
			if valueAt+valueLen > size {
				return 0, fmt.Errorf("%w: tag %#x value out of range", errMalformedTIFF, tag)
			}
		}
		if subIFDTags[tag] && count > 0 {
			if ptr, ok := w.firstInt(typ, valueAt); ok {
				w.pending = append(w.pending, ptr)
			}
		}
	}
	return uint64(w.order.Uint32(w.b[end:])), nil
}

func (w *ifdWalker) firstInt(typ uint16, at uint64) (uint64, bool) {
	switch typ {
	case 1, 6:
		return uint64(w.b[at]), true
	case 3, 8:
		return uint64(w.order.Uint16(w.b[at:])), true
	case 4, 9:
		return uint64(w.order.Uint32(w.b[at:])), true
	default:
		return 0, false
	}
}
