package artifacts_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/artifacts"
)

func TestWriteCompanions(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "20240101_Example Video.base.srt")
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	if err := artifacts.WriteCompanions(srt, url); err != nil {
		t.Fatalf("WriteCompanions: %v", err)
	}

	base := strings.TrimSuffix(srt, ".srt")

	htm, err := os.ReadFile(base + ".htm")
	if err != nil {
		t.Fatalf("read htm: %v", err)
	}
	if !strings.Contains(string(htm), `content="0; URL='`+url+`'"`) {
		t.Errorf("redirect missing URL:\n%s", htm)
	}

	sh, err := os.ReadFile(base + ".sh")
	if err != nil {
		t.Fatalf("read sh: %v", err)
	}
	shText := string(sh)
	if !strings.HasPrefix(shText, "#!/bin/sh\n") {
		t.Errorf("launcher missing shebang:\n%s", shText)
	}
	if !strings.Contains(shText, "mpv") || !strings.Contains(shText, url) || !strings.Contains(shText, srt) {
		t.Errorf("launcher missing mpv invocation:\n%s", shText)
	}
	info, err := os.Stat(base + ".sh")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("launcher mode = %o, want 0755", info.Mode().Perm())
	}

	bat, err := os.ReadFile(base + ".bat")
	if err != nil {
		t.Fatalf("read bat: %v", err)
	}
	if !strings.Contains(string(bat), url) {
		t.Errorf("batch launcher missing URL:\n%s", bat)
	}
}

func TestWindowsPath(t *testing.T) {
	got := artifacts.WindowsPath("/home/alice/Documents/scribe/Channel/clip.base.srt")
	want := `C:\Users\alice\Documents\scribe\Channel\clip.base.srt`
	if got != want {
		t.Errorf("WindowsPath = %q, want %q", got, want)
	}

	if got := artifacts.WindowsPath("/tmp/clip.srt"); got != `\tmp\clip.srt` {
		t.Errorf("non-home path translation = %q", got)
	}
}
