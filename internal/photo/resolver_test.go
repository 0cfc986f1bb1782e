package photo

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"lotsort/internal/testsupport"
)

func TestExifResolverUsesDateTimeOriginal(t *testing.T) {
	data := testsupport.ExifTIFF(t, time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC))
	resolver := NewExifResolver(nil, WithLocation(time.UTC))

	res := resolver.Resolve(context.Background(), Source{
		Name:    "ring.tif",
		Data:    data,
		ModTime: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	want := time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC)
	if !res.CapturedAt.Equal(want) {
		t.Fatalf("unexpected capture time: got %s want %s", res.CapturedAt, want)
	}
	if res.Source != SourceExifOriginal {
		t.Fatalf("unexpected source: %q", res.Source)
	}
}

func TestExifResolverReadsJPEGAppSegment(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	data := testsupport.ExifJPEG(t, time.Date(2023, 11, 20, 8, 0, 0, 0, time.UTC))
	resolver := NewExifResolver(nil, WithLocation(loc))

	res := resolver.Resolve(context.Background(), Source{Name: "brooch.jpg", Data: data})
	want := time.Date(2023, 11, 20, 8, 0, 0, 0, loc)
	if !res.CapturedAt.Equal(want) || res.Source != SourceExifOriginal {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestExifResolverFallsBackToModTime(t *testing.T) {
	mod := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	resolver := NewExifResolver(nil)

	res := resolver.Resolve(context.Background(), Source{
		Name:    "no-exif.png",
		Data:    []byte("\x89PNG\r\n\x1a\nnot really a png"),
		ModTime: mod,
	})
	if !res.CapturedAt.Equal(mod) {
		t.Fatalf("expected mod time fallback, got %s", res.CapturedAt)
	}
	if res.Source != SourceModTime || !res.Source.IsFallback() {
		t.Fatalf("unexpected source: %q", res.Source)
	}
}

func TestExifResolverFallsBackToClockWithoutModTime(t *testing.T) {
	now := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	resolver := NewExifResolver(nil, WithClock(func() time.Time { return now }))

	res := resolver.Resolve(context.Background(), Source{Name: "empty.jpg"})
	if !res.CapturedAt.Equal(now) || res.Source != SourceIngested {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestParseExifTime(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"2023:12:31 23:59:59", true},
		{"2023:12:31 23:59:59\x00", true},
		{"0000:00:00 00:00:00", false},
		{"", false},
		{"yesterday", false},
	}
	for _, tc := range tests {
		_, ok := parseExifTime(tc.value, time.UTC)
		if ok != tc.ok {
			t.Fatalf("parseExifTime(%q) ok=%v want %v", tc.value, ok, tc.ok)
		}
	}
}

// Byte offsets inside testsupport.ExifTIFF: IFD0 at 8 with its single entry
// (Exif pointer) at 10, next-IFD link at 22, Exif IFD at 26 with its entry at 28.
const (
	ifd0EntryType  = 12
	ifd0EntryCount = 14
	ifd0EntryValue = 18
	ifd0Next       = 22
	exifEntryCount = 32
)

func patched(data []byte, at int, value uint32) []byte {
	out := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(out[at:], value)
	return out
}

func TestExifResolverFallsBackOnOversizedTagCount(t *testing.T) {
	capturedAt := time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC)
	mod := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tiff := testsupport.ExifTIFF(t, capturedAt)
	corruptTIFF := append([]byte(nil), tiff...)
	corruptTIFF[17] = 0x80

	jpeg := testsupport.ExifJPEG(t, capturedAt)
	tiffStart := bytes.Index(jpeg, []byte("Exif\x00\x00")) + 6
	corruptJPEG := append([]byte(nil), jpeg...)
	corruptJPEG[tiffStart+17] = 0x80

	resolver := NewExifResolver(nil, WithLocation(time.UTC))
	for name, data := range map[string][]byte{"tiff": corruptTIFF, "jpeg": corruptJPEG} {
		res := resolver.Resolve(context.Background(), Source{Name: name, Data: data, ModTime: mod})
		if res.Source != SourceModTime || !res.CapturedAt.Equal(mod) {
			t.Fatalf("%s: expected mod time fallback, got %+v", name, res)
		}
	}
}

func TestCheckTIFF(t *testing.T) {
	valid := testsupport.ExifTIFF(t, time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC))
	tests := []struct {
		name string
		data []byte
		ok   bool
	}{
		{"valid", valid, true},
		{"ifd0 count overflows", patched(valid, ifd0EntryCount, 0x80000001), false},
		{"exif ifd count overflows", patched(valid, exifEntryCount, 0x80000014), false},
		{"exif pointer out of range", patched(valid, ifd0EntryValue, 0xFFFF), false},
		{"exif pointer loops to ifd0", patched(valid, ifd0EntryValue, 8), false},
		{"ifd chain cycle", patched(valid, ifd0Next, 8), false},
		{"unknown type", patched(valid, ifd0EntryType, 0x63), false},
		{"truncated", valid[:20], false},
		{"not tiff", []byte("GIF89a.."), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := checkTIFF(tc.data)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, errMalformedTIFF) {
				t.Fatalf("expected malformed tiff error, got %v", err)
			}
		})
	}
}

func TestTIFFBlock(t *testing.T) {
	tiff := testsupport.ExifTIFF(t, time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC))
	block, ok := tiffBlock(testsupport.ExifJPEG(t, time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC)))
	if !ok || !bytes.Equal(block, tiff) {
		t.Fatalf("expected jpeg app1 payload to equal the tiff fixture, ok=%v", ok)
	}
	if block, ok := tiffBlock(tiff); !ok || len(block) != len(tiff) {
		t.Fatal("expected tiff input to be returned as is")
	}
	if _, ok := tiffBlock([]byte("\x89PNG\r\n\x1a\n")); ok {
		t.Fatal("png should carry no tiff block")
	}
	if _, ok := tiffBlock([]byte{0xFF, 0xD8, 0xFF, 0xE1, 0xFF, 0xFF}); ok {
		t.Fatal("segment length past end of data should be rejected")
	}
}
