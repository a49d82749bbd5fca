package textutil_test

import (
	"testing"

	"scribe/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "My Video Title", "My Video Title"},
		{"slashes", "AC/DC: Live", "AC-DC- Live"},
		{"stripped", "what? \"really\" <now>", "what really now"},
		{"collapsed whitespace", "  padded \t title\n", "padded title"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tc.input); got != tc.expected {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestChannelDirName(t *testing.T) {
	if got := textutil.ChannelDirName("some channel"); got != "Some Channel" {
		t.Fatalf("ChannelDirName = %q", got)
	}
	if got := textutil.ChannelDirName("???"); got != "unknown" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestStableHashDeterministic(t *testing.T) {
	a := textutil.StableHash("https://example.com/episode-1")
	b := textutil.StableHash("https://example.com/episode-1")
	if a != b {
		t.Fatalf("hash not stable: %d vs %d", a, b)
	}
	if a == textutil.StableHash("https://example.com/episode-2") {
		t.Fatal("distinct inputs should hash differently")
	}
}
