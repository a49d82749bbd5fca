package transcribe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/services/whisper"
	"scribe/internal/services/ytdlp"
	"scribe/internal/transcribe"
)

type fakeCapture struct {
	done    chan struct{}
	stopped bool
}

func (f *fakeCapture) Done() <-chan struct{}    { return f.done }
func (f *fakeCapture) Err() error               { return nil }
func (f *fakeCapture) Stop(grace time.Duration) { f.stopped = true }

type fakeLiveStarter struct {
	payload []byte
	capture *fakeCapture
}

func (f *fakeLiveStarter) StartLive(ctx context.Context, url, outPath string) (ytdlp.LiveCapture, error) {
	if err := os.WriteFile(outPath, f.payload, 0o644); err != nil {
		return nil, err
	}
	return f.capture, nil
}

func TestGrewBeyond(t *testing.T) {
	cases := []struct {
		prev, cur int64
		want      bool
	}{
		{0, 1, true},
		{100, 109, false},
		{100, 111, true},
		{1000, 1000, false},
	}
	for _, tc := range cases {
		if got := transcribe.GrewBeyond(tc.prev, tc.cur); got != tc.want {
			t.Errorf("GrewBeyond(%d, %d) = %v, want %v", tc.prev, tc.cur, got, tc.want)
		}
	}
}

func TestLiveRunSinglePass(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()
	finalSRT := filepath.Join(outDir, "20240101_Stream.base.srt")

	capture := &fakeCapture{done: make(chan struct{})}
	close(capture.done)
	starter := &fakeLiveStarter{payload: make([]byte, 1024), capture: capture}

	engine := &scriptedEngine{runs: map[string]engineRun{
		"base/cpu": {stdout: segmentLine(0, 2, "live stream line")},
	}}
	eng := whisper.NewEngine("whisper-stream")
	eng.WithProcessStarter(engine.starter)
	driver := transcribe.NewDriver(eng, &fakeTrimmer{}, t.TempDir(), false, nil)

	live := transcribe.NewLive(starter, driver, transcribe.LiveOptions{
		MinPrefixBytes: 512,
		PrefixTimeout:  time.Second,
		PollInterval:   10 * time.Millisecond,
		StopGrace:      time.Millisecond,
	}, nil)

	err := live.Run(context.Background(), "https://www.twitch.tv/streamer", transcribe.Request{
		Model: "base", Device: "cpu", Compute: "int8",
	}, workDir, finalSRT)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(finalSRT); err != nil {
		t.Errorf("final subtitle missing: %v", err)
	}
	if !capture.stopped {
		t.Error("capture should be stopped on return")
	}
	if _, err := os.Stat(filepath.Join(workDir, "live-capture.m4a")); !os.IsNotExist(err) {
		t.Error("capture file should be cleaned from work dir")
	}
}
