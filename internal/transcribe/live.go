package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services/ytdlp"
	"scribe/internal/subtitles"
)

// LiveStarter launches the downloader child process for a live stream.
type LiveStarter interface {
	StartLive(ctx context.Context, url, outPath string) (ytdlp.LiveCapture, error)
}

// LiveOptions tune the live pipeline. Zero values take the defaults used in
// production.
type LiveOptions struct {
	// MinPrefixBytes is the captured-audio size that triggers the first
	// transcription pass.
	MinPrefixBytes int64
	// PrefixTimeout bounds the wait for the initial prefix.
	PrefixTimeout time.Duration
	// PollInterval is the sleep between growth checks.
	PollInterval time.Duration
	// StopGrace is how long the downloader gets to exit after a terminate
	// signal.
	StopGrace time.Duration
}

func (o *LiveOptions) applyDefaults() {
	if o.MinPrefixBytes <= 0 {
		o.MinPrefixBytes = 500 * 1024
	}
	if o.PrefixTimeout <= 0 {
		o.PrefixTimeout = 60 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 5 * time.Second
	}
}

// Live transcribes a live stream by repeatedly re-running the driver over a
// growing capture file. Each pass starts from scratch; re-runs only happen
// when the file grew enough to matter, trading repeated work for simple
// correctness.
type Live struct {
	starter LiveStarter
	driver  *Driver
	log     *slog.Logger
	opts    LiveOptions
}

// NewLive assembles a live pipeline.
func NewLive(starter LiveStarter, driver *Driver, opts LiveOptions, log *slog.Logger) *Live {
	if log == nil {
		log = logging.NewNop()
	}
	opts.applyDefaults()
	return &Live{starter: starter, driver: driver, log: log, opts: opts}
}

// Run captures url into workDir, transcribes it in passes, and moves the
// final subtitle to finalSRTPath when the stream ends.
func (l *Live) Run(ctx context.Context, url string, req Request, workDir, finalSRTPath string) error {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("ensure live work directory: %w", err)
	}
	captureFile := filepath.Join(workDir, "live-capture.m4a")
	workTarget := filepath.Join(workDir, filepath.Base(finalSRTPath))

	capture, err := l.starter.StartLive(ctx, url, captureFile)
	if err != nil {
		return err
	}
	defer capture.Stop(l.opts.StopGrace)

	if err := l.waitForPrefix(ctx, captureFile, capture); err != nil {
		return err
	}

	var lastPassSize int64
	for {
		size := fileutil.FileSize(captureFile)
		if size > 0 && (lastPassSize == 0 || GrewBeyond(lastPassSize, size)) {
			if err := l.runPass(ctx, req, captureFile, workTarget); err != nil {
				return err
			}
			lastPassSize = size
		}

		select {
		case <-capture.Done():
			if finalSize := fileutil.FileSize(captureFile); GrewBeyond(lastPassSize, finalSize) {
				if err := l.runPass(ctx, req, captureFile, workTarget); err != nil {
					return err
				}
			}
			return l.publish(workTarget, finalSRTPath, workDir)
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.PollInterval):
		}
	}
}

// waitForPrefix blocks until the capture file reaches the initial prefix
// size, the prefix timeout passes, or the capture ends early.
func (l *Live) waitForPrefix(ctx context.Context, captureFile string, capture ytdlp.LiveCapture) error {
	deadline := time.Now().Add(l.opts.PrefixTimeout)
	for {
		if fileutil.FileSize(captureFile) >= l.opts.MinPrefixBytes {
			return nil
		}
		if time.Now().After(deadline) {
			return nil
		}
		select {
		case <-capture.Done():
			if fileutil.FileSize(captureFile) == 0 {
				return fmt.Errorf("live capture ended without producing audio: %w", capture.Err())
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// runPass transcribes the current capture contents from scratch.
func (l *Live) runPass(ctx context.Context, req Request, captureFile, workTarget string) error {
	_ = os.Remove(workTarget)
	_ = os.Remove(subtitles.PartialPath(workTarget))

	passReq := req
	passReq.AudioPath = captureFile
	passReq.TargetSRTPath = workTarget
	passReq.ResumeAllowed = false

	result, err := l.driver.Run(ctx, passReq)
	if err != nil {
		return err
	}
	l.log.Info("live pass complete",
		logging.Int("segments", result.Segments),
		logging.String("model", result.Model))
	return nil
}

// publish moves the pass output into place and clears the working directory.
func (l *Live) publish(workTarget, finalSRTPath, workDir string) error {
	if fileutil.FileSize(workTarget) == 0 {
		return fmt.Errorf("live transcription produced no subtitle output")
	}
	if err := fileutil.MoveFile(workTarget, finalSRTPath); err != nil {
		return fmt.Errorf("publish live subtitle: %w", err)
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "live-capture") || strings.HasSuffix(entry.Name(), UnfinishedTail) {
			_ = os.Remove(filepath.Join(workDir, entry.Name()))
		}
	}
	return nil
}

// UnfinishedTail mirrors the partial-subtitle suffix for cleanup matching.
const UnfinishedTail = subtitles.UnfinishedSuffix

// GrewBeyond reports whether cur exceeds prev by more than ten percent.
func GrewBeyond(prev, cur int64) bool {
	if prev <= 0 {
		return cur > 0
	}
	return float64(cur) > float64(prev)*1.10
}
