// Package source reads recent chat activity for the configured channel
// groups. It never fails a run: unreachable or unsupported channels are
// skipped with a warning and yield no messages.
package source

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/database"
	"github.com/edgard/mediadesk/internal/logger"
	"github.com/edgard/mediadesk/internal/metrics"
)

// Message is one chat message attributed to a group and channel slot. It
// lives only for the duration of a pipeline run.
type Message struct {
	Group        string
	ChannelLabel string
	Author       string
	IsBot        bool
	Content      string
	Timestamp    time.Time
}

// History returns recent messages for a chat, oldest first.
type History interface {
	GetRecentMessages(ctx context.Context, chatID int64, limit int, since time.Time) ([]database.Message, error)
}

// Inspector answers whether a chat exposes readable history.
type Inspector interface {
	SupportsHistory(ctx context.Context, chatID int64) (bool, error)
}

// Adapter fetches messages from the message log, consulting the inspector
// once per channel per run.
type Adapter struct {
	history   History
	inspector Inspector
	logger    *slog.Logger
}

// NewAdapter creates an Adapter. A nil inspector treats every chat as
// readable.
func NewAdapter(history History, inspector Inspector, log *slog.Logger) *Adapter {
	if log == nil {
		log = logger.Discard()
	}
	return &Adapter{
		history:   history,
		inspector: inspector,
		logger:    log.With("component", "source"),
	}
}

// Run scopes capability lookups to one pipeline run.
type Run struct {
	adapter *Adapter

	mu   sync.Mutex
	caps map[int64]bool
}

// NewRun starts a new run with an empty capability cache.
func (a *Adapter) NewRun() *Run {
	return &Run{adapter: a, caps: make(map[int64]bool)}
}

// SupportsHistory reports whether chatID can be read. Lookup failures count
// as unsupported. The answer is cached for the rest of the run.
func (r *Run) SupportsHistory(ctx context.Context, chatID int64) bool {
	r.mu.Lock()
	supported, ok := r.caps[chatID]
	r.mu.Unlock()
	if ok {
		return supported
	}

	supported = true
	if r.adapter.inspector != nil {
		var err error
		supported, err = r.adapter.inspector.SupportsHistory(ctx, chatID)
		if err != nil {
			r.adapter.logger.WarnContext(ctx, "Failed to inspect channel, skipping", "channel_id", chatID, "error", err)
			supported = false
		}
	}

	r.mu.Lock()
	r.caps[chatID] = supported
	r.mu.Unlock()
	return supported
}

// FetchRecentMessages returns up to limit messages from a channel slot sent
// after since, oldest first. Empty messages and messages from bots are
// dropped. A nil channelID yields nothing and is not logged.
func (r *Run) FetchRecentMessages(ctx context.Context, group, label string, channelID *int64, limit int, since time.Time) []Message {
	if channelID == nil {
		return nil
	}
	id := *channelID
	log := r.adapter.logger.With("group", group, "label", label, "channel_id", id)

	if !r.SupportsHistory(ctx, id) {
		log.WarnContext(ctx, "Channel has no readable history, skipping")
		metrics.SourceSkips.WithLabelValues("no_history").Inc()
		return nil
	}

	stored, err := r.adapter.history.GetRecentMessages(ctx, id, limit, since)
	if err != nil {
		log.WarnContext(ctx, "Failed to fetch channel history, skipping", "error", err)
		metrics.SourceSkips.WithLabelValues("error").Inc()
		return nil
	}

	msgs := make([]Message, 0, len(stored))
	for _, m := range stored {
		if m.IsBot || strings.TrimSpace(m.Content) == "" {
			continue
		}
		ts := m.Timestamp()
		if !since.IsZero() && !ts.After(since) {
			continue
		}
		msgs = append(msgs, Message{
			Group:        group,
			ChannelLabel: label,
			Author:       m.Author,
			Content:      m.Content,
			Timestamp:    ts,
		})
	}

	log.DebugContext(ctx, "Fetched channel messages", "count", len(msgs))
	return msgs
}

// Gather fetches every configured channel of every group in configuration
// order and returns the combined messages.
func (a *Adapter) Gather(ctx context.Context, groups []config.ChannelGroup, limit int, since time.Time) []Message {
	run := a.NewRun()

	var all []Message
	for _, g := range groups {
		for _, ch := range g.Channels {
			if ctx.Err() != nil {
				a.logger.WarnContext(ctx, "Gathering interrupted", "error", ctx.Err())
				return all
			}
			all = append(all, run.FetchRecentMessages(ctx, g.Name, ch.Label, ch.ID, limit, since)...)
		}
	}

	a.logger.InfoContext(ctx, "Gathered messages", "groups", len(groups), "count", len(all))
	return all
}
