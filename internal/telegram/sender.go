package telegram

import (
	"context"
	"fmt"
	"html"
	"regexp"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageLimit is Telegram's maximum message length in characters.
const MessageLimit = 4096

var boldRegex = regexp.MustCompile(`\*\*(.+?)\*\*`)

// MessageSender is the part of *bot.Bot used to post messages.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Sender posts plain text with **bold** markers to a chat.
type Sender struct {
	bot MessageSender
}

// NewSender creates a Sender.
func NewSender(b MessageSender) *Sender {
	return &Sender{bot: b}
}

// Send posts text as HTML with link previews disabled.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               RenderHTML(text),
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// RenderHTML escapes text for Telegram HTML and turns **bold** spans into
// <b> tags. Unpaired markers are left as they are.
func RenderHTML(text string) string {
	return boldRegex.ReplaceAllString(html.EscapeString(text), "<b>$1</b>")
}
