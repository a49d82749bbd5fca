package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scribe/internal/services"
)

// SubtitleTrack is one available subtitle track on a remote item.
type SubtitleTrack struct {
	Language  string
	Automatic bool
}

// Metadata is the probe result for a single remote item.
type Metadata struct {
	Title     string
	Uploader  string
	Timestamp int64
	Language  string
	IsLive    bool
	Subtitles []SubtitleTrack
}

// probePayload mirrors the downloader's JSON dump fields we consume.
type probePayload struct {
	Title     string                       `json:"title"`
	Uploader  string                       `json:"uploader"`
	Channel   string                       `json:"channel"`
	Timestamp int64                        `json:"timestamp"`
	Language  string                       `json:"language"`
	IsLive    bool                         `json:"is_live"`
	Subtitles map[string][]json.RawMessage `json:"subtitles"`
	AutoCaps  map[string][]json.RawMessage `json:"automatic_captions"`
}

// Probe fetches title, uploader, timestamp, and the subtitle listing for a
// URL. Format enumeration is skipped to keep the call fast.
func (c *Client) Probe(ctx context.Context, url string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	args := append(c.commonArgs(),
		"--dump-single-json",
		"--skip-download",
		"--no-check-formats",
		url,
	)
	output, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, classify("probe", err)
	}

	var payload probePayload
	if err := json.Unmarshal(jsonTail(output), &payload); err != nil {
		return nil, services.Wrap(services.ErrDecodeFailure, "ytdlp", "probe", "parse metadata dump", err)
	}

	meta := &Metadata{
		Title:     payload.Title,
		Uploader:  payload.Uploader,
		Timestamp: payload.Timestamp,
		Language:  payload.Language,
		IsLive:    payload.IsLive,
	}
	if meta.Uploader == "" {
		meta.Uploader = payload.Channel
	}
	for lang := range payload.Subtitles {
		meta.Subtitles = append(meta.Subtitles, SubtitleTrack{Language: lang})
	}
	for lang := range payload.AutoCaps {
		meta.Subtitles = append(meta.Subtitles, SubtitleTrack{Language: lang, Automatic: true})
	}
	return meta, nil
}

// HumanSubtitle returns the first non-automatic track matching any of the
// preferred language codes, in preference order.
func (m *Metadata) HumanSubtitle(preferred []string) (SubtitleTrack, bool) {
	for _, lang := range preferred {
		if lang == "" {
			continue
		}
		for _, track := range m.Subtitles {
			if track.Automatic {
				continue
			}
			if track.Language == lang || strings.HasPrefix(track.Language, lang+"-") {
				return track, true
			}
		}
	}
	return SubtitleTrack{}, false
}

// PlaylistEntries enumerates entry URLs of a channel or playlist page using
// flat extraction, so no per-video fetch happens here.
func (c *Client) PlaylistEntries(ctx context.Context, url string) ([]string, error) {
	args := []string{
		"--flat-playlist",
		"--print", "%(url)s",
		"--socket-timeout", fmt.Sprintf("%d", int(c.socketTimeout.Seconds())),
	}
	if c.cookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", c.cookiesBrowser)
	}
	args = append(args, url)

	var entries []string
	err := c.runLines(ctx, c.binary, args, func(line string) {
		if strings.HasPrefix(line, "http") || strings.HasPrefix(line, "ytsearch") {
			entries = append(entries, line)
		}
	})
	if err != nil {
		return nil, classify("playlist_entries", err)
	}
	return entries, nil
}

// jsonTail returns the trailing JSON object in mixed output. The downloader
// occasionally prints warnings before the dump.
func jsonTail(output []byte) []byte {
	text := string(output)
	if idx := strings.Index(text, "{"); idx > 0 {
		return []byte(text[idx:])
	}
	return output
}
