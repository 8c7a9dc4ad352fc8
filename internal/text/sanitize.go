// Package text provides normalization helpers shared by the aggregator, the
// presentation layer and the delivery layer: sanitizing generated text,
// building approximate-duplicate fingerprints and rune-safe truncation.
package text

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrEmpty is returned by Sanitize when nothing printable remains.
var ErrEmpty = errors.New("text is empty after sanitization")

var (
	// controlCharsRegex matches ASCII control characters (including DEL 0x7F).
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// multipleNewlinesRegex matches runs of 3 or more newlines.
	multipleNewlinesRegex = regexp.MustCompile("\n{3,}")

	unicodeReplacer = strings.NewReplacer(
		// Invisible format and direction marks
		"\u2060", "",
		"\uFEFF", "",
		"\u00AD", "",
		"\u200B", "",
		"\u200E", "",
		"\u200F", "",

		// Line and paragraph separators
		"\u2028", "\n",
		"\u2029", "\n\n",

		// Exotic spaces
		"\u00A0", " ",
		"\u2009", " ",
		"\u200A", " ",
		"\u202F", " ",
		"\u205F", " ",
		"\u3000", " ",
	)
)

// Sanitize cleans generated text before it is formatted: line endings become
// LF, invisible and control characters are removed, whitespace inside each
// line is collapsed and runs of blank lines shrink to one. Paragraph breaks
// survive, since delivery chunking relies on them.
func Sanitize(input string) (string, error) {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = CollapseWhitespace(lines[i])
	}

	s = strings.Join(lines, "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	result := strings.TrimSpace(s)
	if result == "" {
		return "", ErrEmpty
	}
	return result, nil
}

// CollapseWhitespace turns every run of whitespace, newlines included, into a
// single space and trims the ends.
func CollapseWhitespace(line string) string {
	var b strings.Builder
	b.Grow(len(line))

	space := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteRune(' ')
				space = true
			}
			continue
		}
		b.WriteRune(r)
		space = false
	}

	return strings.TrimSpace(b.String())
}
