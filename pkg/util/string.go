package util

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	charCountRe  = regexp.MustCompile(`(?im)character count.*$`)
	charNoteRe   = regexp.MustCompile(`(?i)\*\(\d+(,\d+)?\s?characters\)\*`)
	boldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// CleanGeneratedText strips model artifacts from generated post text:
// reasoning blocks, character-count annotations and markdown bold markers.
func CleanGeneratedText(s string) string {
	s = thinkBlockRe.ReplaceAllString(s, "")
	s = charCountRe.ReplaceAllString(s, "")
	s = charNoteRe.ReplaceAllString(s, "")
	s = boldRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}

// GenerateSlug creates a URL-friendly slug from a title
func GenerateSlug(title string) string {
	// Convert to lowercase
	slug := strings.ToLower(title)

	// Replace spaces and special characters with hyphens
	reg := regexp.MustCompile(`[^a-z0-9]+`)
	slug = reg.ReplaceAllString(slug, "-")

	// Remove leading/trailing hyphens
	slug = strings.Trim(slug, "-")

	// Limit length
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.Trim(slug, "-")
	}

	return slug
}
