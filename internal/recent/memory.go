package recent

import (
	"strings"

	"github.com/edgard/mediadesk/internal/text"
)

// TopicMemory remembers short topic fingerprints of prior posts.
type TopicMemory struct {
	fifo   *FIFO
	length int
}

// NewTopicMemory keeps up to capacity topics, each truncated to length runes.
func NewTopicMemory(capacity, length int) *TopicMemory {
	return &TopicMemory{fifo: NewFIFO(capacity), length: length}
}

// TopicOf derives the topic fingerprint of a generated text from its first
// non-empty line.
func (m *TopicMemory) TopicOf(generated string) string {
	for _, line := range strings.Split(generated, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(text.Fingerprint(strings.Trim(line, "*#_ "), m.length))
		}
	}
	return ""
}

// Remember records the topic of generated.
func (m *TopicMemory) Remember(generated string) {
	m.fifo.Add(m.TopicOf(generated))
}

// Last returns the most recently covered topic, or "" when there is none.
func (m *TopicMemory) Last() string {
	topic, _ := m.fifo.Last()
	return topic
}

// Topics returns the remembered topics from oldest to newest.
func (m *TopicMemory) Topics() []string {
	return m.fifo.Items()
}

// PostCache remembers fingerprints of sent posts.
type PostCache struct {
	fifo   *FIFO
	length int
}

// NewPostCache keeps up to capacity fingerprints of fingerprintLength runes.
func NewPostCache(capacity, fingerprintLength int) *PostCache {
	return &PostCache{fifo: NewFIFO(capacity), length: fingerprintLength}
}

// Fingerprint returns the cache key for a post.
func (c *PostCache) Fingerprint(post string) string {
	return text.Fingerprint(post, c.length)
}

// Seen reports whether a post with the same fingerprint was sent recently.
func (c *PostCache) Seen(post string) bool {
	return c.fifo.Contains(c.Fingerprint(post))
}

// Record remembers a sent post.
func (c *PostCache) Record(post string) {
	c.fifo.Add(c.Fingerprint(post))
}

// Len returns the number of remembered fingerprints.
func (c *PostCache) Len() int {
	return c.fifo.Len()
}
