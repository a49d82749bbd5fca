package ytdlp_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/services"
	"scribe/internal/services/ytdlp"
)

const probeDump = `{
  "title": "Example Video",
  "uploader": "Example Channel",
  "timestamp": 1700000000,
  "language": "en",
  "is_live": false,
  "subtitles": {"en": [{}], "de": [{}]},
  "automatic_captions": {"en": [{}], "fr": [{}]}
}`

func TestProbeParsesMetadata(t *testing.T) {
	client := ytdlp.NewClient("yt-dlp", ytdlp.WithCommandRunner(
		func(ctx context.Context, name string, args ...string) ([]byte, error) {
			joined := strings.Join(args, " ")
			if !strings.Contains(joined, "--dump-single-json") || !strings.Contains(joined, "--skip-download") {
				t.Errorf("unexpected probe args: %v", args)
			}
			return []byte("WARNING: something\n" + probeDump), nil
		}))

	meta, err := client.Probe(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if meta.Title != "Example Video" || meta.Uploader != "Example Channel" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d", meta.Timestamp)
	}
	if len(meta.Subtitles) != 4 {
		t.Errorf("expected 4 tracks, got %+v", meta.Subtitles)
	}
}

func TestProbeClassifiesRateLimit(t *testing.T) {
	client := ytdlp.NewClient("yt-dlp", ytdlp.WithCommandRunner(
		func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, fmt.Errorf("yt-dlp: exit status 1: HTTP Error 429: Too Many Requests")
		}))

	_, err := client.Probe(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrRateLimited) {
		t.Errorf("expected rate-limit classification, got %v", err)
	}
}

func TestHumanSubtitlePrefersOrder(t *testing.T) {
	meta := &ytdlp.Metadata{Subtitles: []ytdlp.SubtitleTrack{
		{Language: "en", Automatic: true},
		{Language: "de"},
		{Language: "en-GB"},
	}}

	track, ok := meta.HumanSubtitle([]string{"en", "de"})
	if !ok {
		t.Fatal("expected a human track")
	}
	if track.Language != "en-GB" {
		t.Errorf("expected en-GB via prefix match, got %s", track.Language)
	}

	if _, ok := meta.HumanSubtitle([]string{"ja"}); ok {
		t.Error("no human track should match ja")
	}
}

func TestPlaylistEntriesFlatExtraction(t *testing.T) {
	client := ytdlp.NewClient("yt-dlp", ytdlp.WithLineRunner(
		func(ctx context.Context, name string, args []string, onLine func(string)) error {
			joined := strings.Join(args, " ")
			if !strings.Contains(joined, "--flat-playlist") {
				t.Errorf("expected flat extraction, args: %v", args)
			}
			onLine("https://www.youtube.com/watch?v=aaaaaaaaaaa")
			onLine("not a url")
			onLine("https://www.youtube.com/watch?v=bbbbbbbbbbb")
			return nil
		}))

	entries, err := client.PlaylistEntries(context.Background(), "https://www.youtube.com/@example")
	if err != nil {
		t.Fatalf("PlaylistEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %v", entries)
	}
}

func TestDownloadAudioReportsDeciles(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "20240101_Example.base")

	client := ytdlp.NewClient("yt-dlp", ytdlp.WithLineRunner(
		func(ctx context.Context, name string, args []string, onLine func(string)) error {
			onLine("[download]   4.0% of 10.00MiB")
			onLine("[download]  15.2% of 10.00MiB")
			onLine("[download]  18.9% of 10.00MiB")
			onLine("[download]  52.0% of 10.00MiB")
			onLine("[download] 100.0% of 10.00MiB")
			return os.WriteFile(template+".m4a", []byte("audio"), 0o644)
		}))

	var milestones []int
	path, err := client.DownloadAudio(context.Background(),
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ", template,
		func(percent int) { milestones = append(milestones, percent) })
	if err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	if path != template+".m4a" {
		t.Errorf("path = %s", path)
	}
	want := []int{10, 50, 100}
	if len(milestones) != len(want) {
		t.Fatalf("milestones = %v, want %v", milestones, want)
	}
	for i := range want {
		if milestones[i] != want[i] {
			t.Errorf("milestones = %v, want %v", milestones, want)
			break
		}
	}
}

func TestDownloadAudioMissingOutput(t *testing.T) {
	template := filepath.Join(t.TempDir(), "missing")
	client := ytdlp.NewClient("yt-dlp", ytdlp.WithLineRunner(
		func(ctx context.Context, name string, args []string, onLine func(string)) error {
			return nil
		}))

	_, err := client.DownloadAudio(context.Background(), "https://example.com/v", template, nil)
	if !errors.Is(err, services.ErrPartialOutput) {
		t.Errorf("expected partial-output error, got %v", err)
	}
}

func TestLocateAudio(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "clip.base")
	if err := os.WriteFile(template+".ogg", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, ok := ytdlp.LocateAudio(template)
	if !ok || path != template+".ogg" {
		t.Errorf("LocateAudio = %q, %v", path, ok)
	}

	if _, ok := ytdlp.LocateAudio(filepath.Join(dir, "absent")); ok {
		t.Error("expected no match for absent template")
	}
}

func TestDownloadSubtitles(t *testing.T) {
	dir := t.TempDir()
	client := ytdlp.NewClient("yt-dlp", ytdlp.WithCommandRunner(
		func(ctx context.Context, name string, args ...string) ([]byte, error) {
			joined := strings.Join(args, " ")
			if !strings.Contains(joined, "--sub-langs en") || !strings.Contains(joined, "--convert-subs srt") {
				t.Errorf("unexpected subtitle args: %v", args)
			}
			return nil, os.WriteFile(filepath.Join(dir, "subtitle.en.srt"), []byte("1\n"), 0o644)
		}))

	path, err := client.DownloadSubtitles(context.Background(), "https://example.com/v", "en", dir)
	if err != nil {
		t.Fatalf("DownloadSubtitles: %v", err)
	}
	if filepath.Base(path) != "subtitle.en.srt" {
		t.Errorf("path = %s", path)
	}
}
