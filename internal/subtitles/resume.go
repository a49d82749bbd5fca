package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Resume describes the last valid block of a partial subtitle file.
type Resume struct {
	LastIndex int
	LastEnd   float64
}

// ResumePoint parses a partial SRT file and returns the index and end time of
// the last complete block. A missing or empty file yields a zero Resume with
// no error; a final truncated block is ignored.
func ResumePoint(path string) (Resume, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Resume{}, nil
	}
	if err != nil {
		return Resume{}, fmt.Errorf("read partial subtitle: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")

	var resume Resume
	for _, block := range blocks {
		index, end, ok := parseBlock(block)
		if !ok {
			continue
		}
		if index > resume.LastIndex {
			resume.LastIndex = index
			resume.LastEnd = end
		}
	}
	return resume, nil
}

// parseBlock extracts the index and end timestamp from one SRT block.
func parseBlock(block string) (int, float64, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 3 {
		return 0, 0, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || index < 1 {
		return 0, 0, false
	}
	parts := strings.Split(lines[1], "-->")
	if len(parts) != 2 {
		return 0, 0, false
	}
	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if strings.TrimSpace(strings.Join(lines[2:], "\n")) == "" {
		return 0, 0, false
	}
	return index, end, true
}
