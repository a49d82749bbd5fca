// Package whisper adapts the external speech-to-text engine. The engine runs
// out of process and emits one JSON object per recognized segment on stdout;
// the adapter turns that into a lazy segment stream.
package whisper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"scribe/internal/services"
	"scribe/internal/subtitles"
)

// DefaultBinary is the engine executable resolved on PATH.
const DefaultBinary = "whisper-stream"

// Request describes one transcription run.
type Request struct {
	AudioPath string
	Model     string
	Language  string
	Device    string
	Compute   string
}

// Stream is a running transcription. Segments closes when the engine stops
// emitting; Wait must then be called to collect the exit status.
type Stream struct {
	Segments <-chan subtitles.Segment
	wait     func() error
}

// Wait blocks until the engine exits and returns its final status. GPU-side
// failures are surfaced with the engine's stderr text so callers can decide
// on a CPU fallback.
func (s *Stream) Wait() error {
	return s.wait()
}

// ProcessStarter launches the engine and exposes its stdout plus a wait
// function. Injected by tests.
type ProcessStarter func(ctx context.Context, name string, args []string) (io.ReadCloser, func() error, error)

// Engine launches transcription runs.
type Engine struct {
	binary string
	start  ProcessStarter
}

// NewEngine returns an Engine for the given binary, falling back to the
// default when empty.
func NewEngine(binary string) *Engine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Engine{binary: binary, start: execStart}
}

// WithProcessStarter sets a custom process starter (for testing).
func (e *Engine) WithProcessStarter(start ProcessStarter) {
	e.start = start
}

// segmentLine mirrors the engine's per-segment JSON output.
type segmentLine struct {
	Start        float64  `json:"start"`
	End          float64  `json:"end"`
	Text         string   `json:"text"`
	NoSpeechProb *float64 `json:"no_speech_prob"`
	AvgLogProb   *float64 `json:"avg_logprob"`
}

// Transcribe starts the engine and returns a lazy stream of segments. The
// decoding parameters are a fixed contract with the engine.
func (e *Engine) Transcribe(ctx context.Context, req Request) (*Stream, error) {
	args := BuildArgs(req)
	stdout, wait, err := e.start(ctx, e.binary, args)
	if err != nil {
		return nil, services.Wrap(services.ErrDecodeFailure, "whisper", "transcribe", "start engine", err)
	}

	segments := make(chan subtitles.Segment)
	go func() {
		defer close(segments)
		defer stdout.Close()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "{") {
				continue
			}
			var parsed segmentLine
			if json.Unmarshal([]byte(line), &parsed) != nil {
				continue
			}
			seg := subtitles.Segment{
				Start: parsed.Start,
				End:   parsed.End,
				Text:  parsed.Text,
			}
			if parsed.NoSpeechProb != nil && parsed.AvgLogProb != nil {
				seg.NoSpeechProb = *parsed.NoSpeechProb
				seg.AvgLogProb = *parsed.AvgLogProb
				seg.HasScores = true
			}
			select {
			case segments <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Stream{Segments: segments, wait: wait}, nil
}

// BuildArgs assembles the engine command line for a request.
func BuildArgs(req Request) []string {
	args := []string{
		"--model", req.Model,
		"--device", req.Device,
		"--compute-type", req.Compute,
		"--output-format", "jsonl",
		"--vad-filter",
		"--vad-threshold", "0.6",
		"--min-silence-duration-ms", "800",
		"--speech-pad-ms", "400",
		"--repetition-penalty", "1.2",
		"--no-repeat-ngram-size", "3",
		"--temperature", "0",
		"--no-speech-threshold", "0.6",
		"--suppress-non-speech",
	}
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}
	return append(args, req.AudioPath)
}

func execStart(ctx context.Context, name string, args []string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: stdout pipe: %w", name, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("%s: start: %w", name, err)
	}
	wait := func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}
	return stdout, wait, nil
}
