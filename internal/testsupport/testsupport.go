// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test
// and the directories created.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(base, "output")
	cfg.ConfigDir = filepath.Join(base, "config")
	cfg.WorkDir = filepath.Join(base, "work")

	for _, dir := range []string{cfg.OutputDir, cfg.ConfigDir, cfg.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("create test dir %s: %v", dir, err)
		}
	}
	return &cfg
}

// WriteFile creates a file with the given content, making parent directories
// as needed.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SampleSRT returns a small valid subtitle document with the given number of
// sequential one-second cues.
func SampleSRT(cues int) string {
	var b strings.Builder
	for i := 1; i <= cues; i++ {
		fmt.Fprintf(&b, "%d\n%s --> %s\nline %d\n\n", i, clock(i-1), clock(i), i)
	}
	return b.String()
}

func clock(totalSec int) string {
	return fmt.Sprintf("%02d:%02d:%02d,000", totalSec/3600, totalSec%3600/60, totalSec%60)
}
