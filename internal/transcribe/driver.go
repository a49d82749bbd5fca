// Package transcribe drives the external speech-to-text engine over one
// audio file, streaming filtered segments into a partial subtitle file and
// promoting it on success. It owns resume, GPU fallback, and model
// downgrade.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scribe/internal/logging"
	"scribe/internal/models"
	"scribe/internal/services"
	"scribe/internal/services/whisper"
	"scribe/internal/subtitles"
)

// segmentQueueCap bounds the writer queue between the engine reader and the
// subtitle writer.
const segmentQueueCap = 100

// resumeThreshold is the minimum parsed end time that makes a partial file
// worth resuming; anything smaller is discarded.
const resumeThreshold = 0.1

// progressEvery controls how often the writer logs progress, in segments.
const progressEvery = 10

// Engine is the transcription surface the driver needs.
type Engine interface {
	Transcribe(ctx context.Context, req whisper.Request) (*whisper.Stream, error)
}

// Trimmer produces a copy of an audio file starting at an offset.
type Trimmer interface {
	TrimFrom(ctx context.Context, src string, startSeconds float64, dst string) error
}

// Request describes one transcription task.
type Request struct {
	AudioPath     string
	Model         string
	TargetSRTPath string
	Language      string
	Device        string
	Compute       string
	ResumeAllowed bool
	// ForceDevice disables the GPU to CPU fallback.
	ForceDevice bool
}

// Result reports a completed run.
type Result struct {
	// Model is the model that actually produced the output, which may be
	// smaller than requested after downgrades.
	Model    string
	Compute  string
	Segments int
	Resumed  bool
}

// Driver runs transcriptions.
type Driver struct {
	engine        Engine
	trimmer       Trimmer
	log           *slog.Logger
	workDir       string
	autoDowngrade bool
}

// NewDriver assembles a Driver. workDir holds trimmed audio copies during
// resumed runs.
func NewDriver(engine Engine, trimmer Trimmer, workDir string, autoDowngrade bool, log *slog.Logger) *Driver {
	if log == nil {
		log = logging.NewNop()
	}
	return &Driver{
		engine:        engine,
		trimmer:       trimmer,
		log:           log,
		workDir:       workDir,
		autoDowngrade: autoDowngrade,
	}
}

// Run transcribes req.AudioPath into req.TargetSRTPath. On a GPU failure it
// retries on CPU unless the device was forced, then walks down the model
// registry when downgrades are enabled. Each retry re-detects resume state
// so segments already written are never redone.
func (d *Driver) Run(ctx context.Context, req Request) (Result, error) {
	model := req.Model
	device := req.Device
	compute := req.Compute

	var lastErr error
	for {
		result, err := d.runOnce(ctx, req, model, device, compute)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, err
		}
		lastErr = err

		if services.IsGPUFailure(err) && device != "cpu" && !req.ForceDevice {
			d.log.Warn("engine failed on gpu, retrying on cpu",
				logging.String("model", model), logging.Error(err))
			device = "cpu"
			compute = string(models.ComputeInt8)
			continue
		}
		if d.autoDowngrade {
			smaller, ok := models.NextSmaller(model)
			if ok {
				d.log.Warn("engine failed, downgrading model",
					logging.String("from", model), logging.String("to", smaller), logging.Error(err))
				model = smaller
				continue
			}
		}
		return Result{}, lastErr
	}
}

func (d *Driver) runOnce(ctx context.Context, req Request, model, device, compute string) (Result, error) {
	partial := subtitles.PartialPath(req.TargetSRTPath)
	resume, err := subtitles.ResumePoint(partial)
	if err != nil {
		return Result{}, err
	}

	offset := 0.0
	nextIndex := 1
	resumed := false
	audio := req.AudioPath

	if req.ResumeAllowed && resume.LastEnd > resumeThreshold {
		trimmed, trimErr := d.trimForResume(ctx, req.AudioPath, resume.LastEnd)
		if trimErr != nil {
			return Result{}, trimErr
		}
		defer os.Remove(trimmed)
		audio = trimmed
		offset = resume.LastEnd
		nextIndex = resume.LastIndex + 1
		resumed = true
		d.log.Info("resuming partial transcription",
			logging.String("target", req.TargetSRTPath),
			logging.Int("next_index", nextIndex),
			logging.Float64("offset_seconds", offset))
	} else if resume.LastIndex > 0 || fileExists(partial) {
		// Too little progress to resume; start the partial file over.
		if err := os.Remove(partial); err != nil && !os.IsNotExist(err) {
			return Result{}, fmt.Errorf("discard stale partial: %w", err)
		}
	}

	stream, err := d.engine.Transcribe(ctx, whisper.Request{
		AudioPath: audio,
		Model:     model,
		Language:  req.Language,
		Device:    device,
		Compute:   compute,
	})
	if err != nil {
		return Result{}, err
	}

	writer, err := subtitles.NewWriter(req.TargetSRTPath, nextIndex)
	if err != nil {
		return Result{}, err
	}

	queue := make(chan subtitles.Segment, segmentQueueCap)
	go func() {
		defer close(queue)
		for seg := range stream.Segments {
			if reason := subtitles.DropReason(seg); reason != "" {
				d.log.Debug("dropped segment",
					logging.String("reason", reason), logging.String("text", seg.Text))
				continue
			}
			seg.Start += offset
			seg.End += offset
			select {
			case queue <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	written := 0
	var writeErr error
	for seg := range queue {
		if writeErr != nil {
			continue
		}
		if writeErr = writer.Append(seg.Start, seg.End, seg.Text); writeErr != nil {
			continue
		}
		written++
		if written%progressEvery == 0 {
			d.log.Info("transcription progress",
				logging.Int("segments", written),
				logging.String("position", subtitles.FormatTimestamp(seg.End)))
		}
	}

	engineErr := stream.Wait()
	if writeErr != nil {
		_ = writer.Abandon()
		return Result{}, writeErr
	}
	if engineErr != nil {
		_ = writer.Abandon()
		return Result{}, engineErr
	}
	if ctx.Err() != nil {
		_ = writer.Abandon()
		return Result{}, ctx.Err()
	}

	if err := writer.Finalize(); err != nil {
		return Result{}, services.Wrap(services.ErrPartialOutput, "transcribe", "finalize", "", err)
	}
	return Result{Model: model, Compute: compute, Segments: writer.Written(), Resumed: resumed}, nil
}

func (d *Driver) trimForResume(ctx context.Context, audio string, start float64) (string, error) {
	if err := os.MkdirAll(d.workDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure work directory: %w", err)
	}
	trimmed := filepath.Join(d.workDir, "resume-"+filepath.Base(audio))
	if err := d.trimmer.TrimFrom(ctx, audio, start, trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
