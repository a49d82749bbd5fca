// Package acquire obtains the audio file for a task, reusing an existing
// download when possible and retrying rate-limited downloads with
// exponential backoff.
package acquire

import (
	"context"
	"log/slog"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/ytdlp"
)

const (
	maxAttempts    = 3
	backoffBase    = 30 * time.Second
	backoffCeiling = 3600 * time.Second
)

// Downloader is the audio-fetch surface the acquirer needs.
type Downloader interface {
	DownloadAudio(ctx context.Context, url, outputTemplate string, progress func(percent int)) (string, error)
}

// Request describes one acquisition.
type Request struct {
	// URL is the remote source; empty for local tasks.
	URL string
	// LocalPath is set for local tasks and returned untouched.
	LocalPath string
	// OutputTemplate is the expected audio path without extension,
	// typically {dir}/{timestamp}_{sanitizedTitle}.{modelName}.
	OutputTemplate string
	// Force skips reuse of an existing download.
	Force bool
}

// Acquirer fetches task audio.
type Acquirer struct {
	downloader Downloader
	log        *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

// New returns an Acquirer over the given downloader.
func New(downloader Downloader, log *slog.Logger) *Acquirer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Acquirer{downloader: downloader, log: log, sleep: sleepCtx}
}

// WithSleep sets a custom backoff sleeper (for testing).
func (a *Acquirer) WithSleep(sleep func(context.Context, time.Duration) error) {
	a.sleep = sleep
}

// Acquire returns the path of the task's audio file. Local tasks pass
// through unchanged. Remote tasks reuse a prior download unless forced, and
// otherwise download with up to three attempts; rate-limit and availability
// errors back off before retrying while everything else surfaces
// immediately.
func (a *Acquirer) Acquire(ctx context.Context, req Request) (string, error) {
	if req.LocalPath != "" {
		return req.LocalPath, nil
	}

	if !req.Force {
		if path, ok := ytdlp.LocateAudio(req.OutputTemplate); ok {
			a.log.Info("reusing existing audio", logging.String("path", path))
			return path, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		path, err := a.downloader.DownloadAudio(ctx, req.URL, req.OutputTemplate, a.progressLogger(req.URL))
		if err == nil {
			return path, nil
		}
		lastErr = err
		if !services.IsRetryable(err) {
			return "", err
		}
		if attempt == maxAttempts-1 {
			break
		}
		delay := Backoff(attempt)
		a.log.Warn("download failed, backing off",
			logging.String("url", req.URL),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := a.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (a *Acquirer) progressLogger(url string) func(int) {
	return func(percent int) {
		a.log.Info("download progress", logging.String("url", url), logging.Int("percent", percent))
	}
}

// Backoff returns the retry delay after the given zero-based failed attempt:
// a minute after the first, doubling per attempt, capped at an hour.
func Backoff(attempt int) time.Duration {
	delay := backoffBase << uint(attempt+1)
	if delay > backoffCeiling {
		return backoffCeiling
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
