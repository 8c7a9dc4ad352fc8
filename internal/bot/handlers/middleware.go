// Package handlers contains the Telegram command handlers, the message log
// ingestion handler and their middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mediadesk/internal/telegram"
)

// OutputChatOnly lets a command through only in the configured output chat.
// Anywhere else the sender gets a redirect notice and the command is
// dropped.
func OutputChatOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if allowInOutputChat(ctx, deps, bot, update) {
				next(ctx, bot, update)
			}
		}
	}
}

// allowInOutputChat reports whether update came from the output chat. For
// any other chat it sends the redirect notice and returns false.
func allowInOutputChat(ctx context.Context, deps HandlerDeps, sender telegram.MessageSender, update *models.Update) bool {
	msg := messageOf(update)
	if msg == nil {
		return false
	}
	if isOutputChat(deps, msg) {
		return true
	}

	log := deps.Logger.With("middleware", "OutputChatOnly")
	log.InfoContext(ctx, "Desk command used outside the output chat", "chat_id", msg.Chat.ID)
	reply(ctx, sender, log, msg.Chat.ID, deps.Config.Messages.WrongChannel)
	return false
}

func isOutputChat(deps HandlerDeps, msg *models.Message) bool {
	return msg.Chat.ID == deps.Config.Telegram.OutputChatID
}
