package subtitles

import (
	"fmt"
	"os"
	"strings"
)

// UnfinishedSuffix marks a subtitle file still being written.
const UnfinishedSuffix = ".unfinished.srt"

// minFinalSize is the smallest byte count a subtitle file may have and still
// be promoted to a final artifact.
const minFinalSize = 8

// Writer appends cues to a partial subtitle file and promotes it to the final
// path on success. Consecutive cues with identical trimmed text are fused
// into a single cue spanning both, so each append may hold one cue back
// until the next arrives.
type Writer struct {
	file      *os.File
	partial   string
	final     string
	nextIndex int
	pending   *Cue
	written   int
}

// NewWriter opens the partial file for finalPath in append mode. nextIndex is
// the index the first appended cue receives; pass resume.LastIndex+1 when
// continuing a partial file, or 1 for a fresh run.
func NewWriter(finalPath string, nextIndex int) (*Writer, error) {
	if nextIndex < 1 {
		nextIndex = 1
	}
	partial := PartialPath(finalPath)
	file, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open partial subtitle: %w", err)
	}
	return &Writer{
		file:      file,
		partial:   partial,
		final:     finalPath,
		nextIndex: nextIndex,
	}, nil
}

// PartialPath returns the in-progress path for a final subtitle path.
func PartialPath(finalPath string) string {
	return strings.TrimSuffix(finalPath, ".srt") + UnfinishedSuffix
}

// Append adds a cue. If its trimmed text matches the held-back cue, the two
// fuse and the fused cue keeps waiting; otherwise the held-back cue is
// flushed to disk.
func (w *Writer) Append(start, end float64, text string) error {
	text = strings.TrimSpace(text)
	if w.pending != nil && w.pending.Text == text {
		w.pending.End = end
		return nil
	}
	if err := w.flushPending(); err != nil {
		return err
	}
	w.pending = &Cue{Index: w.nextIndex, Start: start, End: end, Text: text}
	return nil
}

// Written returns the count of cues durably written so far, not counting the
// held-back cue.
func (w *Writer) Written() int {
	return w.written
}

// NextIndex returns the index the next flushed cue will receive.
func (w *Writer) NextIndex() int {
	return w.nextIndex
}

func (w *Writer) flushPending() error {
	if w.pending == nil {
		return nil
	}
	if _, err := w.file.WriteString(w.pending.Render()); err != nil {
		return fmt.Errorf("write subtitle cue: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync subtitle file: %w", err)
	}
	w.nextIndex++
	w.written++
	w.pending = nil
	return nil
}

// Finalize flushes the held-back cue, closes the partial file, and renames it
// over the final path. An empty or near-empty result is refused so a failed
// run never clobbers an earlier good artifact.
func (w *Writer) Finalize() error {
	if err := w.flushPending(); err != nil {
		_ = w.file.Close()
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close partial subtitle: %w", err)
	}
	info, err := os.Stat(w.partial)
	if err != nil {
		return fmt.Errorf("stat partial subtitle: %w", err)
	}
	if info.Size() < minFinalSize {
		return fmt.Errorf("partial subtitle %s too small to finalize", w.partial)
	}
	if err := os.Rename(w.partial, w.final); err != nil {
		return fmt.Errorf("finalize subtitle: %w", err)
	}
	return nil
}

// Abandon flushes and closes the partial file without promoting it, leaving
// it on disk for a later resume.
func (w *Writer) Abandon() error {
	flushErr := w.flushPending()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close partial subtitle: %w", closeErr)
	}
	return nil
}
