// Package subtitles implements SRT cue encoding, partial-file resume, and
// post-transcription segment filtering.
package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// Cue is one SRT block: index, time range in seconds, and text.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns the cue length in seconds.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// FormatTimestamp renders seconds as the SRT HH:MM:SS,mmm form.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	millis -= h * 3600000
	m := millis / 60000
	millis -= m * 60000
	s := millis / 1000
	millis -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}

// ParseTimestamp converts an SRT timestamp to seconds. Period separators are
// accepted in place of the standard comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Render returns the cue as a complete SRT block including the trailing
// blank-line separator.
func (c Cue) Render() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(c.Index))
	b.WriteString("\n")
	b.WriteString(FormatTimestamp(c.Start))
	b.WriteString(" --> ")
	b.WriteString(FormatTimestamp(c.End))
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(c.Text))
	b.WriteString("\n\n")
	return b.String()
}
