package util

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9-]`)
)

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Normalize performs basic string normalization (lowercase + trim)
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Slugify converts a game display name to the URL slug format used by review
// sites: lowercased, whitespace runs become a single hyphen, everything else
// outside [a-z0-9-] is dropped ("Game's Title: The @Adventure!" becomes
// "games-title-the-adventure").
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = whitespaceRuns.ReplaceAllString(slug, "-")
	return nonSlugChars.ReplaceAllString(slug, "")
}

// CollapseWhitespace replaces every whitespace run with a single space.
func CollapseWhitespace(s string) string {
	return whitespaceRuns.ReplaceAllString(s, " ")
}

// StripWhitespace removes all whitespace, including embedded newlines.
func StripWhitespace(s string) string {
	return whitespaceRuns.ReplaceAllString(s, "")
}
