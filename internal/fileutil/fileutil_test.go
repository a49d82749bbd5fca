package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/fileutil"
)

func TestCopyFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.sh")
	dst := filepath.Join(dir, "dst.sh")
	if err := os.WriteFile(src, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := fileutil.CopyFileMode(src, dst, 0o755); err != nil {
		t.Fatalf("CopyFileMode: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %o, want 0755", info.Mode().Perm())
	}
}

func TestMoveFileCreatesDestinationDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "artifact.srt")
	dst := filepath.Join(dir, "Channel Name", "artifact.srt")
	if err := os.WriteFile(src, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := fileutil.MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("destination missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after move")
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := fileutil.FileSize(path); got != 42 {
		t.Errorf("FileSize = %d", got)
	}
	if got := fileutil.FileSize(filepath.Join(dir, "absent")); got != 0 {
		t.Errorf("missing file size = %d, want 0", got)
	}
}
