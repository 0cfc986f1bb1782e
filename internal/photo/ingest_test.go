package photo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lotsort/internal/photo"
)

type stubResolver struct {
	base     time.Time
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *stubResolver) Resolve(_ context.Context, src photo.Source) photo.Resolution {
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if current <= peak || s.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	offset := time.Duration(len(src.Data)) * time.Minute
	return photo.Resolution{CapturedAt: s.base.Add(offset), Source: photo.SourceModTime}
}

func TestIngestPreservesOrderAndAssignsIDs(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	resolver := &stubResolver{base: base}
	ingester := photo.NewIngester(resolver, 2, nil)

	sources := []photo.Source{
		{Name: "a.jpg", Data: []byte("aaa")},
		{Name: "b.jpg", Data: []byte("b")},
		{Name: "c.jpg", Data: []byte("cc")},
		{Name: "d.jpg", Data: []byte("dddd")},
	}
	items, err := ingester.Ingest(context.Background(), sources)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if len(items) != len(sources) {
		t.Fatalf("expected %d items, got %d", len(sources), len(items))
	}
	seen := map[string]bool{}
	for i, item := range items {
		if item.Image.Name != sources[i].Name {
			t.Fatalf("item %d: expected %s, got %s", i, sources[i].Name, item.Image.Name)
		}
		if item.ID == "" || seen[item.ID] {
			t.Fatalf("item %d: missing or duplicate id %q", i, item.ID)
		}
		seen[item.ID] = true
		want := base.Add(time.Duration(len(sources[i].Data)) * time.Minute)
		if !item.CapturedAt.Equal(want) {
			t.Fatalf("item %d: captured_at %s want %s", i, item.CapturedAt, want)
		}
		if item.Image.ContentType != "image/jpeg" {
			t.Fatalf("item %d: unexpected content type %q", i, item.Image.ContentType)
		}
	}
	if peak := resolver.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent resolutions, saw %d", peak)
	}
}

func TestIngestCanceledReturnsNoItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ingester := photo.NewIngester(&stubResolver{}, 1, nil)

	items, err := ingester.Ingest(ctx, []photo.Source{{Name: "a.jpg"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if items != nil {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestLoadDirFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	sources, err := photo.LoadDir(dir, []string{".jpg", ".png"})
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "a.png" || sources[1].Name != "b.JPG" {
		t.Fatalf("unexpected order: %s, %s", sources[0].Name, sources[1].Name)
	}
	if sources[0].ModTime.IsZero() {
		t.Fatal("expected modification time to be populated")
	}
}
