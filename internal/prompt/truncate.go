package prompt

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to every shortened file body.
const TruncationMarker = "\n...[truncated]"

// Truncate shortens content to at most limit bytes including the marker.
// It cuts at the last newline before the limit, else the last space, and
// never splits a rune. Output that already fits is returned unchanged, so
// truncating twice with the same limit is a no-op.
func Truncate(content string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(content) <= limit {
		return content
	}
	if limit <= len(TruncationMarker) {
		return runeSafePrefix(content, limit)
	}

	cut := runeSafePrefix(content, limit-len(TruncationMarker))
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	} else if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\r") + TruncationMarker
}

func runeSafePrefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
