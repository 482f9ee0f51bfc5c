package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanGeneratedText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips think block",
			input:    "<think>let me reason\nabout this</think>The actual post.",
			expected: "The actual post.",
		},
		{
			name:     "strips character count line",
			input:    "Great post body.\nCharacter count: 1,234",
			expected: "Great post body.",
		},
		{
			name:     "strips inline character note",
			input:    "Great post body. *(1,234 characters)*",
			expected: "Great post body.",
		},
		{
			name:     "unwraps bold markers",
			input:    "**Big News!** We shipped **today**.",
			expected: "Big News! We shipped today.",
		},
		{
			name:     "clean text passes through",
			input:    "Nothing to strip here. #golang",
			expected: "Nothing to strip here. #golang",
		},
		{
			name:     "all artifacts combined",
			input:    "<think>hmm</think>**Launch day!** It went well.\ncharacter count: 42",
			expected: "Launch day! It went well.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanGeneratedText(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "long…", Truncate("longer text", 5))
	assert.Equal(t, "a", Truncate("abc", 1))

	// Rune-aware, not byte-aware
	assert.Equal(t, "héll…", Truncate("héllo wörld", 5))
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "jane-doe", GenerateSlug("Jane Doe"))
	assert.Equal(t, "react-hooks-deep-dive", GenerateSlug("React Hooks: Deep Dive!"))
	assert.Equal(t, "a-b-c", GenerateSlug("  a  b  c  "))
	assert.Equal(t, "", GenerateSlug("!!!"))

	long := GenerateSlug("this is a very long title that should be cut down to a reasonable slug length")
	assert.LessOrEqual(t, len(long), 50)
}
