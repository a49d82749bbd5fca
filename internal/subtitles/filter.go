package subtitles

import (
	"strings"
)

// Segment is one engine-emitted span of speech before SRT encoding.
type Segment struct {
	Start        float64
	End          float64
	Text         string
	NoSpeechProb float64
	AvgLogProb   float64
	HasScores    bool
}

const (
	minSegmentDuration = 0.4
	entityMinDuration  = 0.6
	maxNoSpeechProb    = 0.5
	minAvgLogProb      = -1.2
)

// Known hallucinated filler strings emitted by speech models on silence or
// music, normalized to lowercase.
var hallucinatedFillers = map[string]bool{
	"thank you":              true,
	"thank you for watching": true,
	"thanks for watching":    true,
	"please subscribe":       true,
	"like and subscribe":     true,
	"bye":                    true,
	"bye bye":                true,
	"see you next time":      true,
	"...":                    true,
	"…":                      true,
	"[":                      true,
	"]":                      true,
	"(":                      true,
	")":                      true,
}

// Proper names the engine inserts across languages during silence.
var hallucinatedEntities = map[string]bool{
	"mbc":            true,
	"amara.org":      true,
	"www.amara.org":  true,
	"subtitles by":   true,
	"transcribed by": true,
}

// DropReason reports why a segment must be discarded, or "" to keep it.
func DropReason(seg Segment) string {
	text := strings.TrimSpace(seg.Text)
	duration := seg.End - seg.Start

	if duration < minSegmentDuration {
		return "too_short"
	}
	if len([]rune(text)) <= 1 {
		return "empty_text"
	}

	normalized := strings.ToLower(strings.Trim(text, ".!?,"))
	if hallucinatedFillers[strings.ToLower(text)] || hallucinatedFillers[normalized] {
		return "hallucinated_filler"
	}
	if allRunesIdentical(text) {
		return "repeated_char"
	}
	if tokenRepeat(text) {
		return "token_repeat"
	}
	if seg.HasScores {
		if seg.NoSpeechProb > maxNoSpeechProb {
			return "no_speech"
		}
		if seg.AvgLogProb < minAvgLogProb {
			return "low_confidence"
		}
	}
	if duration < entityMinDuration && isHallucinatedEntity(normalized) {
		return "hallucinated_entity"
	}
	return ""
}

// allRunesIdentical reports whether text longer than 2 runes consists of one
// repeated rune.
func allRunesIdentical(text string) bool {
	runes := []rune(text)
	if len(runes) <= 2 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// tokenRepeat catches short stuttered output: the leading two runes showing
// up more than len/2 times in text longer than 2 runes.
func tokenRepeat(text string) bool {
	runes := []rune(text)
	if len(runes) <= 2 {
		return false
	}
	token := string(runes[:2])
	count := strings.Count(text, token)
	return count > len(runes)/2
}

func isHallucinatedEntity(normalized string) bool {
	if hallucinatedEntities[normalized] {
		return true
	}
	for entity := range hallucinatedEntities {
		if strings.Contains(normalized, entity) {
			return true
		}
	}
	return false
}

// FilterSegments applies DropReason to a slice and fuses consecutive
// survivors with identical trimmed text into one span. The streamed path in
// the transcription driver does the same work incrementally through Writer.
func FilterSegments(segments []Segment) []Segment {
	var kept []Segment
	for _, seg := range segments {
		if DropReason(seg) != "" {
			continue
		}
		seg.Text = strings.TrimSpace(seg.Text)
		if n := len(kept); n > 0 && kept[n-1].Text == seg.Text {
			kept[n-1].End = seg.End
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}
