// Package ident canonicalizes remote video references and derives the stable
// per-item identifiers used by the history store and task deduplication.
package ident

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"scribe/internal/textutil"
)

// Kind classifies a normalized reference.
type Kind string

const (
	KindYouTube Kind = "youtube"
	KindTwitch  Kind = "twitch"
	KindLocal   Kind = "local"
	KindOther   Kind = "other"
)

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	twitchVODPattern = regexp.MustCompile(`twitch\.tv/videos/(\d+)`)
)

// Ref is a canonicalized reference paired with its stable item identifier.
type Ref struct {
	Kind      Kind
	Canonical string
	ItemID    string
}

// Normalize canonicalizes a source reference and derives its item ID.
// YouTube URLs collapse to the watch?v= form with tracking and time fragments
// stripped; Twitch VOD URLs collapse to twitch.tv/videos/{n}. Local paths and
// unrecognized strings pass through with a stable fallback ID. Normalize is
// pure: Normalize(Normalize(x).Canonical) == Normalize(x).
func Normalize(source string) Ref {
	source = strings.TrimSpace(source)

	if id, ok := YouTubeID(source); ok {
		return Ref{
			Kind:      KindYouTube,
			Canonical: "https://www.youtube.com/watch?v=" + id,
			ItemID:    id,
		}
	}
	if vod, ok := TwitchVODID(source); ok {
		return Ref{
			Kind:      KindTwitch,
			Canonical: "https://www.twitch.tv/videos/" + vod,
			ItemID:    "twitch_" + vod,
		}
	}
	if !strings.Contains(source, "://") {
		return Ref{
			Kind:      KindLocal,
			Canonical: source,
			ItemID:    "file_" + filepath.Base(source),
		}
	}
	return Ref{
		Kind:      KindOther,
		Canonical: source,
		ItemID:    fmt.Sprintf("hash_%d", textutil.StableHash(source)),
	}
}

// YouTubeID extracts the 11-character video ID from any of the common YouTube
// URL forms: watch?v=, youtu.be/{id}, and /embed/{id}.
func YouTubeID(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); youtubeIDPattern.MatchString(id) {
			return id, true
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/embed/"); ok {
			id := strings.SplitN(rest, "/", 2)[0]
			if youtubeIDPattern.MatchString(id) {
				return id, true
			}
		}
	case "youtu.be":
		id := strings.Trim(parsed.Path, "/")
		if youtubeIDPattern.MatchString(id) {
			return id, true
		}
	}
	return "", false
}

// TwitchVODID extracts the numeric VOD identifier from a twitch.tv/videos URL.
func TwitchVODID(raw string) (string, bool) {
	match := twitchVODPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// channelIndicators are the textual markers that identify a channel or
// playlist URL, which resolves to many tasks instead of one.
var channelIndicators = []string{
	"@",
	"/channel/",
	"/c/",
	"/user/",
	"youtube.com/playlist?list=",
}

// IsChannelOrPlaylist reports whether the URL names a channel or playlist
// rather than a single video.
func IsChannelOrPlaylist(raw string) bool {
	if _, ok := YouTubeID(raw); ok {
		return false
	}
	if IsTwitchChannelVideos(raw) {
		return true
	}
	for _, indicator := range channelIndicators {
		if strings.Contains(raw, indicator) {
			return true
		}
	}
	return false
}

// IsTwitchChannelVideos reports whether the URL is a Twitch channel VOD page
// (twitch.tv/{channel}/videos).
func IsTwitchChannelVideos(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if host != "twitch.tv" {
		return false
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	return len(parts) == 2 && parts[0] != "videos" && parts[1] == "videos"
}
