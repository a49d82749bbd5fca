package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"scribe/internal/services"
)

// AudioExtensions lists the container extensions the downloader may produce
// for audio-only downloads.
var AudioExtensions = []string{"m4a", "mp3", "webm", "ogg"}

var progressPattern = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)

// DownloadAudio fetches the best audio track into outputTemplate (a path
// without extension; the downloader appends the container extension).
// progress, when non-nil, receives decile milestones 10,20,...,100.
func (c *Client) DownloadAudio(ctx context.Context, url, outputTemplate string, progress func(percent int)) (string, error) {
	args := append(c.commonArgs(),
		"-f", "bestaudio/best",
		"--no-part",
		"--newline",
		"-o", outputTemplate+".%(ext)s",
		url,
	)

	lastDecile := 0
	err := c.runLines(ctx, c.binary, args, func(line string) {
		if progress == nil {
			return
		}
		match := progressPattern.FindStringSubmatch(line)
		if match == nil {
			return
		}
		percent, parseErr := strconv.ParseFloat(match[1], 64)
		if parseErr != nil {
			return
		}
		decile := int(percent) / 10 * 10
		if decile > lastDecile {
			lastDecile = decile
			progress(decile)
		}
	})
	if err != nil {
		return "", classify("download_audio", err)
	}

	path, ok := LocateAudio(outputTemplate)
	if !ok {
		return "", services.Wrap(services.ErrPartialOutput, "ytdlp", "download_audio",
			fmt.Sprintf("no audio file found for %s", filepath.Base(outputTemplate)), nil)
	}
	return path, nil
}

// LocateAudio finds a previously downloaded audio file by template path plus
// the known extension set.
func LocateAudio(outputTemplate string) (string, bool) {
	for _, ext := range AudioExtensions {
		candidate := outputTemplate + "." + ext
		if info, err := os.Stat(candidate); err == nil && info.Size() > 0 {
			return candidate, true
		}
	}
	return "", false
}

// DownloadSubtitles fetches the subtitle track for languageCode into
// targetDir, converted to SRT, and returns its path.
func (c *Client) DownloadSubtitles(ctx context.Context, url, languageCode, targetDir string) (string, error) {
	template := filepath.Join(targetDir, "subtitle.%(ext)s")
	args := append(c.commonArgs(),
		"--write-subs",
		"--sub-langs", languageCode,
		"--convert-subs", "srt",
		"--skip-download",
		"-o", template,
		url,
	)
	if _, err := c.run(ctx, c.binary, args...); err != nil {
		return "", classify("download_subtitles", err)
	}

	matches, err := filepath.Glob(filepath.Join(targetDir, "subtitle.*.srt"))
	if err != nil || len(matches) == 0 {
		return "", services.Wrap(services.ErrPartialOutput, "ytdlp", "download_subtitles",
			fmt.Sprintf("no subtitle produced for language %s", languageCode), err)
	}
	return matches[0], nil
}

// IsExtensionKnown reports whether path carries one of the audio container
// extensions the acquirer recognizes.
func IsExtensionKnown(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, known := range AudioExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
