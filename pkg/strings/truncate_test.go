package strings

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "hello",
			maxLen:   10,
			expected: "hello",
		},
		{
			name:     "exact length unchanged",
			input:    "hello",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "long string truncated",
			input:    "wrong code something longer",
			maxLen:   13,
			expected: "wrong code...",
		},
		{
			name:     "newlines collapse to spaces",
			input:    "line one\nline two",
			maxLen:   40,
			expected: "line one line two",
		},
		{
			name:     "whitespace runs collapse",
			input:    "a   \t  b",
			maxLen:   40,
			expected: "a b",
		},
		{
			name:     "unicode not split mid-rune",
			input:    "ααααααααAA",
			maxLen:   8,
			expected: "ααααα...",
		},
		{
			name:     "tiny maxLen clamped",
			input:    "abcdefgh",
			maxLen:   1,
			expected: "a...",
		},
		{
			name:     "empty string",
			input:    "",
			maxLen:   10,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
