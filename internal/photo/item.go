package photo

import (
	"time"

	"github.com/google/uuid"
)

// TimestampSource records where an item's capture instant came from.
type TimestampSource string

const (
	// SourceExifOriginal is the EXIF DateTimeOriginal tag.
	SourceExifOriginal TimestampSource = "exif_original"
	// SourceExifDigitized is the EXIF DateTimeDigitized (CreateDate) tag.
	SourceExifDigitized TimestampSource = "exif_digitized"
	// SourceModTime is the file modification time fallback.
	SourceModTime TimestampSource = "mod_time"
	// SourceIngested is the ingestion wall clock, used when no modification time is known.
	SourceIngested TimestampSource = "ingested"
)

// IsFallback reports whether the instant did not come from embedded metadata.
func (s TimestampSource) IsFallback() bool {
	return s == SourceModTime || s == SourceIngested
}

// Image is the opaque payload of an item.
type Image struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Size returns the payload length in bytes.
func (img Image) Size() int {
	return len(img.Data)
}

// Item is one uploaded photo with its resolved capture instant.
// Items are created once at ingestion and never mutated.
type Item struct {
	ID         string          `json:"id"`
	Image      Image           `json:"image"`
	CapturedAt time.Time       `json:"captured_at"`
	Source     TimestampSource `json:"timestamp_source"`
}

// NewItem assigns a fresh identifier to a resolved image.
func NewItem(img Image, res Resolution) Item {
	return Item{
		ID:         uuid.NewString(),
		Image:      img,
		CapturedAt: res.CapturedAt,
		Source:     res.Source,
	}
}

// Images returns the payloads of items in order.
func Images(items []Item) []Image {
	out := make([]Image, len(items))
	for i, item := range items {
		out[i] = item.Image
	}
	return out
}
