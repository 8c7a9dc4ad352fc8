// Package delivery sends formatted posts safely: it suppresses recent
// duplicates, splits long posts below the platform cap and paces the sends.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgard/mediadesk/internal/logger"
	"github.com/edgard/mediadesk/internal/metrics"
	"github.com/edgard/mediadesk/internal/recent"
)

// ErrEmptyPost is returned when there is nothing to send.
var ErrEmptyPost = errors.New("post is empty")

// Sender delivers one message of at most the platform size limit.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Report describes what Send did.
type Report struct {
	// Suppressed is set when the post matched a recent fingerprint.
	Suppressed bool
	Chunks     int
	Sent       int
}

// Post is a formatted post plus the key its duplicate check uses. An empty
// Key falls back to Text, so framing such as a persona header can be kept
// out of the fingerprint.
type Post struct {
	Text string
	Key  string
}

func (p Post) key() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Text
}

// Deliverer applies duplicate suppression, chunking and pacing on top of a
// Sender.
type Deliverer struct {
	sender  Sender
	posts   *recent.PostCache
	limiter *rate.Limiter
	hardCap int
	logger  *slog.Logger
}

// NewDeliverer creates a Deliverer. pace is the minimum gap between chunk
// sends; zero disables pacing.
func NewDeliverer(sender Sender, posts *recent.PostCache, hardCap int, pace time.Duration, log *slog.Logger) *Deliverer {
	if log == nil {
		log = logger.Discard()
	}
	limit := rate.Inf
	if pace > 0 {
		limit = rate.Every(pace)
	}
	return &Deliverer{
		sender:  sender,
		posts:   posts,
		limiter: rate.NewLimiter(limit, 1),
		hardCap: hardCap,
		logger:  log.With("component", "delivery"),
	}
}

// Send posts text to chatID, keyed on the text itself.
func (d *Deliverer) Send(ctx context.Context, chatID int64, text string) (Report, error) {
	return d.Deliver(ctx, chatID, Post{Text: text})
}

// Deliver posts post.Text to chatID. A post whose key fingerprint was sent
// recently is skipped without error. The fingerprint is recorded once the
// first chunk is accepted; a failure on a later chunk stops the send and is
// returned.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, post Post) (Report, error) {
	var report Report
	text, key := post.Text, post.key()

	if d.posts.Seen(key) {
		report.Suppressed = true
		metrics.DuplicatesSuppressed.Inc()
		d.logger.InfoContext(ctx, "Skipping post matching a recent fingerprint", "chat_id", chatID)
		return report, nil
	}

	chunks := Chunk(text, d.hardCap)
	if len(chunks) == 0 {
		return report, ErrEmptyPost
	}
	report.Chunks = len(chunks)

	for i, chunk := range chunks {
		if err := d.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("pacing interrupted before chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if err := d.sender.Send(ctx, chatID, chunk); err != nil {
			metrics.DeliveryErrors.Inc()
			d.logger.ErrorContext(ctx, "Failed to send chunk", "chat_id", chatID, "chunk", i+1, "chunks", len(chunks), "error", err)
			return report, fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}

		report.Sent++
		metrics.ChunksSent.Inc()
		if i == 0 {
			d.posts.Record(key)
		}
	}

	d.logger.InfoContext(ctx, "Post delivered", "chat_id", chatID, "chunks", len(chunks))
	return report, nil
}
