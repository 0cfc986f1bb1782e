package photo

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"lotsort/internal/logging"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Source is a raw upload awaiting timestamp resolution.
type Source struct {
	Name        string
	ContentType string
	Data        []byte
	ModTime     time.Time
}

// Resolution is the best-known capture instant for a Source.
type Resolution struct {
	CapturedAt time.Time
	Source     TimestampSource
}

// Resolver returns a capture instant for a raw image. It never fails.
type Resolver interface {
	Resolve(ctx context.Context, src Source) Resolution
}

// ExifResolver reads EXIF capture tags and falls back to the file modification time.
type ExifResolver struct {
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

// ResolverOption customizes the EXIF resolver.
type ResolverOption func(*ExifResolver)

// WithLocation sets the zone used to interpret EXIF local times (defaults to time.Local).
func WithLocation(loc *time.Location) ResolverOption {
	return func(r *ExifResolver) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithClock overrides the ingestion clock used as the last-resort fallback.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *ExifResolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewExifResolver constructs a resolver.
func NewExifResolver(logger *slog.Logger, opts ...ResolverOption) *ExifResolver {
	r := &ExifResolver{
		logger:   logging.NewComponentLogger(logger, "resolver"),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements Resolver. Missing or unparseable metadata is absorbed here
// and only shows up as a fallback Source on the result.
func (r *ExifResolver) Resolve(ctx context.Context, src Source) Resolution {
	logger := logging.WithContext(ctx, r.logger)
	if at, source, ok := r.fromExif(logger, src); ok {
		return Resolution{CapturedAt: at, Source: source}
	}
	res := Resolution{CapturedAt: src.ModTime, Source: SourceModTime}
	if src.ModTime.IsZero() {
		res = Resolution{CapturedAt: r.now(), Source: SourceIngested}
	}
	logger.Debug("capture time fallback",
		logging.String("file", src.Name),
		logging.String("timestamp_source", string(res.Source)),
		logging.Time("captured_at", res.CapturedAt),
	)
	return res
}

func (r *ExifResolver) fromExif(logger *slog.Logger, src Source) (time.Time, TimestampSource, bool) {
	block, ok := tiffBlock(src.Data)
	if !ok {
		return time.Time{}, "", false
	}
	if err := checkTIFF(block); err != nil {
		logger.Debug("ignoring malformed exif", logging.String("file", src.Name), logging.Error(err))
		return time.Time{}, "", false
	}
	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil || x == nil {
		return time.Time{}, "", false
	}
	candidates := []struct {
		field  exif.FieldName
		source TimestampSource
	}{
		{exif.DateTimeOriginal, SourceExifOriginal},
		{exif.DateTimeDigitized, SourceExifDigitized},
	}
	for _, candidate := range candidates {
		tag, err := x.Get(candidate.field)
		if err != nil || tag == nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			continue
		}
		if at, ok := parseExifTime(value, r.location); ok {
			return at, candidate.source, true
		}
	}
	return time.Time{}, "", false
}

func parseExifTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimRight(strings.TrimSpace(value), "\x00")
	if value == "" || strings.HasPrefix(value, "0000") {
		return time.Time{}, false
	}
	at, err := time.ParseInLocation(exifTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}
