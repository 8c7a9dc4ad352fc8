package delivery

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into pieces of at most hardCap runes. Each cut prefers
// the last paragraph break at or before the cap, then the last sentence end
// (". ", cut after the period), then a hard cut at the cap. Chunks are
// trimmed and empty chunks dropped. A non-positive hardCap disables splitting.
func Chunk(text string, hardCap int) []string {
	remaining := strings.TrimSpace(text)
	if remaining == "" {
		return nil
	}
	if hardCap <= 0 {
		return []string{remaining}
	}

	var chunks []string
	for utf8.RuneCountInString(remaining) > hardCap {
		limit := byteOffset(remaining, hardCap)
		cut := splitPoint(remaining, limit)

		if chunk := strings.TrimSpace(remaining[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// splitPoint returns the byte index to cut s at, given that s[:limit] holds
// exactly the allowed number of runes.
func splitPoint(s string, limit int) int {
	if i := strings.LastIndex(s[:min(len(s), limit+2)], "\n\n"); i > 0 {
		return i
	}
	if i := strings.LastIndex(s[:min(len(s), limit+1)], ". "); i > 0 {
		return i + 1
	}
	return limit
}

// byteOffset returns the byte index just past the first n runes of s.
func byteOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}
