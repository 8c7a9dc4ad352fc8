package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mediadesk/internal/database"
	"github.com/edgard/mediadesk/internal/metrics"
)

const dbSaveTimeout = 5 * time.Second

// NewIngestHandler returns the default handler. It appends messages and
// channel posts from configured source chats to the message log, which is
// the only history the content source can read.
func NewIngestHandler(deps HandlerDeps) bot.HandlerFunc {
	h := ingestHandler{deps: deps, chats: sourceChats(deps)}
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		h.ingest(ctx, update)
	}
}

type ingestHandler struct {
	deps  HandlerDeps
	chats map[int64]struct{}
}

func sourceChats(deps HandlerDeps) map[int64]struct{} {
	chats := make(map[int64]struct{})
	for _, g := range deps.Config.ChannelGroups {
		for _, ch := range g.Channels {
			if ch.ID != nil {
				chats[*ch.ID] = struct{}{}
			}
		}
	}
	return chats
}

func (h ingestHandler) ingest(ctx context.Context, update *models.Update) {
	log := h.deps.Logger.With("handler", "ingest")

	msg := messageOf(update)
	if msg == nil {
		return
	}
	if _, ok := h.chats[msg.Chat.ID]; !ok {
		log.DebugContext(ctx, "Ignoring message from unconfigured chat", "chat_id", msg.Chat.ID)
		return
	}

	content := messageContent(msg)
	if content == "" {
		return
	}

	record := &database.Message{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		Author:    authorName(msg),
		IsBot:     botAuthored(msg),
		Content:   content,
		SentAt:    int64(msg.Date),
	}
	if record.SentAt == 0 {
		record.SentAt = time.Now().Unix()
	}

	saveCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()
	if err := h.deps.Store.SaveMessage(saveCtx, record); err != nil {
		log.ErrorContext(ctx, "Failed to save message to log", "error", err, "chat_id", msg.Chat.ID, "message_id", msg.ID)
		return
	}
	metrics.MessagesIngested.Inc()
}

// messageContent joins text and caption, so media posts with captions count.
func messageContent(msg *models.Message) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{msg.Text, msg.Caption} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// botAuthored reports whether a bot wrote msg, either as the sender or
// through inline mode. Channel posts carry no sender, so via_bot is the only
// bot marker they have.
func botAuthored(msg *models.Message) bool {
	if msg.From != nil && msg.From.IsBot {
		return true
	}
	return msg.ViaBot != nil && msg.ViaBot.IsBot
}

// authorName prefers a human-readable name: the sender's full name, their
// username, a channel post signature, then the chat title.
func authorName(msg *models.Message) string {
	if u := msg.From; u != nil {
		if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
			return name
		}
		if u.Username != "" {
			return u.Username
		}
	}
	if msg.AuthorSignature != "" {
		return msg.AuthorSignature
	}
	if msg.SenderChat != nil && msg.SenderChat.Title != "" {
		return msg.SenderChat.Title
	}
	return msg.Chat.Title
}
