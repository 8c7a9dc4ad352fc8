package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/mediadesk/internal/telegram"
)

// NewDeskCommandHandler returns a handler that acknowledges the command,
// runs trigger synchronously and reports when nothing was posted. The
// post itself goes out through the pipeline, not as a reply.
func NewDeskCommandHandler(deps HandlerDeps, name string, trigger Trigger) bot.HandlerFunc {
	h := deskCommandHandler{deps: deps, name: name, trigger: trigger}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type deskCommandHandler struct {
	deps    HandlerDeps
	name    string
	trigger Trigger
}

func (h deskCommandHandler) handle(ctx context.Context, sender telegram.MessageSender, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	msg := messageOf(update)
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	log.InfoContext(ctx, "Handling desk command", "chat_id", chatID)

	reply(ctx, sender, log, chatID, h.deps.Config.Messages.Gathering)

	result := h.run(ctx, log)
	switch result {
	case RunSkipped:
		reply(ctx, sender, log, chatID, h.deps.Config.Messages.NothingToPost)
	case RunFailed:
		reply(ctx, sender, log, chatID, h.deps.Config.Messages.GeneralError)
	}
	log.DebugContext(ctx, "Desk command finished", "chat_id", chatID, "result", result)
}

func (h deskCommandHandler) run(ctx context.Context, log *slog.Logger) (result RunResult) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Desk command panicked", "panic", r)
			result = RunFailed
		}
	}()
	if h.trigger == nil {
		return RunFailed
	}
	return h.trigger(ctx)
}
