// Package recent holds the bounded, process-lifetime memories used to avoid
// repetition: recent topics, recently used personas and groups, and the
// fingerprints of recently sent posts.
package recent

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// FIFO is a bounded set of strings that evicts its oldest entry when full.
// Lookups never refresh an entry. A FIFO with capacity 0 remembers nothing.
// It is safe for concurrent use.
type FIFO struct {
	capacity int
	cache    *lru.Cache[string, struct{}]
}

// NewFIFO returns a FIFO holding at most capacity entries.
func NewFIFO(capacity int) *FIFO {
	f := &FIFO{capacity: max(capacity, 0)}
	if f.capacity > 0 {
		// lru.New only fails for a non-positive size.
		f.cache, _ = lru.New[string, struct{}](f.capacity)
	}
	return f
}

// Add records key as the newest entry, evicting the oldest when full.
// Re-adding a present key moves it to the newest position.
func (f *FIFO) Add(key string) {
	if f.cache == nil || key == "" {
		return
	}
	f.cache.Add(key, struct{}{})
}

// Contains reports whether key is remembered.
func (f *FIFO) Contains(key string) bool {
	if f.cache == nil {
		return false
	}
	return f.cache.Contains(key)
}

// Items returns the remembered keys from oldest to newest.
func (f *FIFO) Items() []string {
	if f.cache == nil {
		return nil
	}
	return f.cache.Keys()
}

// Last returns the newest entry.
func (f *FIFO) Last() (string, bool) {
	items := f.Items()
	if len(items) == 0 {
		return "", false
	}
	return items[len(items)-1], true
}

// Len returns the number of remembered entries.
func (f *FIFO) Len() int {
	if f.cache == nil {
		return 0
	}
	return f.cache.Len()
}

// Cap returns the configured capacity.
func (f *FIFO) Cap() int {
	return f.capacity
}

// Purge forgets everything.
func (f *FIFO) Purge() {
	if f.cache != nil {
		f.cache.Purge()
	}
}
