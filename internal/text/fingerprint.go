package text

import (
	"strings"
	"unicode/utf8"
)

// DefaultFingerprintLength is the prefix length used for duplicate detection.
const DefaultFingerprintLength = 140

// Fingerprint returns the approximate-duplicate key of s: whitespace
// collapsed, lowercased and truncated to maxRunes runes. Two texts that differ
// only in spacing, case or beyond the prefix share a fingerprint.
func Fingerprint(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultFingerprintLength
	}
	return Truncate(strings.ToLower(CollapseWhitespace(s)), maxRunes)
}

// Truncate cuts s to at most maxRunes runes without splitting a rune.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes])
}

// Ellipsize truncates s to maxRunes runes, replacing the tail with "…" when
// anything was cut.
func Ellipsize(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return Truncate("…", maxRunes)
	}
	return strings.TrimRightFunc(Truncate(s, maxRunes-1), isSpace) + "…"
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
