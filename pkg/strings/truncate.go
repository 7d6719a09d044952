package strings

import (
	"strings"
)

// MinTruncateLen is the smallest useful maxLen for Truncate; anything
// smaller leaves no room for content plus the ellipsis.
const MinTruncateLen = 4

// Truncate sanitizes a string for single-line display: newlines and runs
// of whitespace collapse to single spaces, and anything longer than maxLen
// is cut with a trailing "...".
//
// Slicing is rune-based so multi-byte characters are never split. A maxLen
// below MinTruncateLen is clamped up to it.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
