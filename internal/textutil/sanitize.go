package textutil

import (
	"hash/fnv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\n", " ",
	"\t", " ",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Runs of whitespace collapse to a single space and
// the result is trimmed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	sanitized := strings.TrimSpace(fileNameReplacer.Replace(name))
	return strings.Join(strings.Fields(sanitized), " ")
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// ChannelDirName converts an uploader or channel name into a directory name.
// Unsafe characters are stripped and the first letter of each word is
// uppercased so channel directories sort predictably. Returns "unknown"
// when the name sanitizes to nothing.
func ChannelDirName(name string) string {
	sanitized := SanitizeFileName(name)
	if sanitized == "" {
		return "unknown"
	}
	return titleCaser.String(sanitized)
}

// StableHash returns a deterministic 32-bit hash of the input. Used to derive
// item identifiers for sources that carry no recognizable ID of their own.
func StableHash(value string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return h.Sum32()
}
