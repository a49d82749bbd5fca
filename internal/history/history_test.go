package history_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/history"
)

func openStore(t *testing.T, lines ...string) *history.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.txt")
	if len(lines) > 0 {
		content := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestOpenMissingFile(t *testing.T) {
	store := openStore(t)
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", store.Len())
	}
}

func TestAppendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Append("dQw4w9WgXcQ", "base"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append("twitch_123", "small"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("expected 2 records after reopen, got %d", reopened.Len())
	}
	if !reopened.Covered("dQw4w9WgXcQ", "base", false) {
		t.Fatal("expected appended record to cover same model")
	}
}

func TestCoveredStrictMode(t *testing.T) {
	store := openStore(t, "vid1 base")

	// Same block, weaker or equal models are covered.
	if !store.Covered("vid1", "tiny", false) {
		t.Fatal("base should cover tiny in strict mode")
	}
	if !store.Covered("vid1", "base", false) {
		t.Fatal("base should cover itself")
	}
	// Stronger model is not covered.
	if store.Covered("vid1", "small", false) {
		t.Fatal("base must not cover small")
	}
	// Different English-only block never participates in strict mode.
	if store.Covered("vid1", "tiny.en", false) {
		t.Fatal("strict mode must not compare across blocks")
	}
	if store.Covered("vid2", "tiny", false) {
		t.Fatal("unknown item must not be covered")
	}
}

func TestCoveredCrossTierMode(t *testing.T) {
	store := openStore(t, "vid1 base")

	// base normalizes to 1, tiny.en to 0: covered.
	if !store.Covered("vid1", "tiny.en", true) {
		t.Fatal("cross-tier should let base cover tiny.en")
	}
	// medium.en normalizes to 3 (> 1): not covered.
	if store.Covered("vid1", "medium.en", true) {
		t.Fatal("base must not cover medium.en cross-tier")
	}

	enStore := openStore(t, "vid1 medium.en")
	// large-v3 normalizes to 6 (> 3): re-process.
	if enStore.Covered("vid1", "large-v3", true) {
		t.Fatal("medium.en must not cover large-v3")
	}
	// small normalizes to 2 (<= 3): covered.
	if !enStore.Covered("vid1", "small", true) {
		t.Fatal("medium.en should cover small cross-tier")
	}
}

func TestCoveredIgnoresUnknownModels(t *testing.T) {
	store := openStore(t, "vid1 experimental-99", "vid1 base")
	if !store.Covered("vid1", "tiny", false) {
		t.Fatal("valid record should still apply")
	}
	if store.Covered("vid1", "bogus", false) {
		t.Fatal("unknown current model is never covered")
	}
}

func TestAppendValidation(t *testing.T) {
	store := openStore(t)
	if err := store.Append("", "base"); err == nil {
		t.Fatal("expected error for empty item ID")
	}
	if err := store.Append("vid1", " "); err == nil {
		t.Fatal("expected error for empty model")
	}
}
