// Package ffmpeg wraps the transcoder collaborator. Its single duty here is
// producing trimmed audio copies for resumed transcriptions.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"scribe/internal/services"
)

// DefaultBinary is the transcoder executable resolved on PATH.
const DefaultBinary = "ffmpeg"

// CommandRunner executes the transcoder and returns combined output.
// Injected by tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Trimmer cuts audio files from a start offset.
type Trimmer struct {
	binary string
	run    CommandRunner
}

// NewTrimmer returns a Trimmer for the given binary, falling back to the
// default when empty.
func NewTrimmer(binary string) *Trimmer {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Trimmer{binary: binary, run: execRun}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Trimmer) WithCommandRunner(run CommandRunner) {
	t.run = run
}

// TrimFrom writes a copy of src starting at startSeconds to dst. The stream
// is copied without re-encoding.
func (t *Trimmer) TrimFrom(ctx context.Context, src string, startSeconds float64, dst string) error {
	args := TrimArgs(src, startSeconds, dst)
	if _, err := t.run(ctx, t.binary, args...); err != nil {
		return services.Wrap(services.ErrDecodeFailure, "ffmpeg", "trim", "trim audio for resume", err)
	}
	return nil
}

// TrimArgs builds the transcoder arguments for a stream-copy trim.
func TrimArgs(src string, startSeconds float64, dst string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", startSeconds),
		"-i", src,
		"-c", "copy",
		dst,
	}
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
