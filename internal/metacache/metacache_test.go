package metacache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/metacache"
)

func openStore(t *testing.T, maxAge time.Duration) *metacache.Store {
	t.Helper()
	store, err := metacache.Open(filepath.Join(t.TempDir(), "meta.db"), maxAge)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openStore(t, time.Hour)
	ctx := context.Background()

	entry := metacache.Entry{
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:      "Example Video",
		Uploader:   "Example Channel",
		UploadedAt: 1700000000,
	}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, entry.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.Title != entry.Title || got.Uploader != entry.Uploader || got.UploadedAt != entry.UploadedAt {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.FetchedAt.IsZero() {
		t.Error("expected FetchedAt to be set")
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	store := openStore(t, time.Hour)

	got, err := store.Get(context.Background(), "https://example.com/unknown")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss, got %+v", got)
	}
}

func TestStaleEntryTreatedAsMiss(t *testing.T) {
	store := openStore(t, time.Minute)
	ctx := context.Background()

	entry := metacache.Entry{
		URL:       "https://www.youtube.com/watch?v=abcdefghijk",
		Title:     "Old Video",
		FetchedAt: time.Now().Add(-2 * time.Minute),
	}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, entry.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected stale entry to read as miss, got %+v", got)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store := openStore(t, time.Hour)
	ctx := context.Background()

	url := "https://www.twitch.tv/videos/123456789"
	if err := store.Put(ctx, metacache.Entry{URL: url, Title: "First"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, metacache.Entry{URL: url, Title: "Second"}); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, err := store.Get(ctx, url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Title != "Second" {
		t.Errorf("expected replaced title, got %+v", got)
	}
}

func TestPruneRemovesStale(t *testing.T) {
	store := openStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, metacache.Entry{URL: "https://a.example/1", Title: "fresh"}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	if err := store.Put(ctx, metacache.Entry{
		URL:       "https://a.example/2",
		Title:     "stale",
		FetchedAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Put stale: %v", err)
	}

	removed, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned entry, got %d", removed)
	}

	fresh, err := store.Get(ctx, "https://a.example/1")
	if err != nil {
		t.Fatalf("Get fresh: %v", err)
	}
	if fresh == nil {
		t.Error("expected fresh entry to survive prune")
	}
}
