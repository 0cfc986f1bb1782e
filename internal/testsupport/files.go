package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const exifLayout = "2006:01:02 15:04:05"

// ExifTIFF builds a minimal little-endian TIFF whose Exif sub-IFD carries a
// single DateTimeOriginal tag set to capturedAt (wall clock, no zone).
func ExifTIFF(t testing.TB, capturedAt time.Time) []byte {
	t.Helper()
	value := capturedAt.Format(exifLayout)

	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write tiff: %v", err)
		}
	}

	buf.WriteString("II")
	write(uint16(42))
	write(uint32(8))

	// IFD0 at offset 8 holds one entry: the Exif IFD pointer.
	const exifIFDOffset = 8 + 2 + 12 + 4
	write(uint16(1))
	write(uint16(0x8769))
	write(uint16(4))
	write(uint32(1))
	write(uint32(exifIFDOffset))
	write(uint32(0))

	// Exif IFD with DateTimeOriginal stored as ASCII after the directory.
	const valueOffset = exifIFDOffset + 2 + 12 + 4
	write(uint16(1))
	write(uint16(0x9003))
	write(uint16(2))
	write(uint32(len(value) + 1))
	write(uint32(valueOffset))
	write(uint32(0))

	buf.WriteString(value)
	buf.WriteByte(0)
	return buf.Bytes()
}

// ExifJPEG wraps ExifTIFF in an APP1 segment between SOI and EOI markers.
// The result carries no image data but decodes as EXIF.
func ExifJPEG(t testing.TB, capturedAt time.Time) []byte {
	t.Helper()
	tiff := ExifTIFF(t, capturedAt)
	payload := append([]byte("Exif\x00\x00"), tiff...)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2)); err != nil {
		t.Fatalf("write segment length: %v", err)
	}
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// WriteJPEG writes an EXIF-stamped JPEG fixture into dir and returns its path.
func WriteJPEG(t testing.TB, dir, name string, capturedAt time.Time) string {
	t.Helper()
	return WriteFile(t, filepath.Join(dir, name), ExifJPEG(t, capturedAt))
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
