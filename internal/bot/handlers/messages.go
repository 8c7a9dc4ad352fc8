package handlers

import (
	"context"
	"log/slog"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mediadesk/internal/telegram"
)

// messageOf returns the message carried by a group message or a channel
// post update.
func messageOf(update *models.Update) *models.Message {
	if update == nil {
		return nil
	}
	if update.Message != nil {
		return update.Message
	}
	return update.ChannelPost
}

// CommandMatch matches "/name" and "/name@bot" at the start of a message or
// channel post. Channel posts never reach text-pattern handlers, so desk
// commands issued inside a channel need this matcher.
func CommandMatch(name string) tgbot.MatchFunc {
	return func(update *models.Update) bool {
		msg := messageOf(update)
		if msg == nil {
			return false
		}
		return commandName(msg.Text) == strings.ToLower(name)
	}
}

// commandName extracts the lowercased command of text without the leading
// slash and the @bot suffix, or "" when text is not a command.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0][1:], "@")
	return strings.ToLower(cmd)
}

// reply sends a plain notice, logging instead of failing.
func reply(ctx context.Context, sender telegram.MessageSender, log *slog.Logger, chatID int64, text string) {
	if _, err := sender.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}
