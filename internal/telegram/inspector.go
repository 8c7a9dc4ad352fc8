package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ChatGetter is the part of *bot.Bot used to look up chats.
type ChatGetter interface {
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
}

// Inspector reports whether a chat's history can be gathered. Forum
// supergroups split messages into topics and are reported as unsupported.
type Inspector struct {
	bot ChatGetter
}

// NewInspector creates an Inspector.
func NewInspector(b ChatGetter) *Inspector {
	return &Inspector{bot: b}
}

// SupportsHistory looks the chat up and checks its capabilities. A chat the
// bot cannot see returns an error.
func (i *Inspector) SupportsHistory(ctx context.Context, chatID int64) (bool, error) {
	chat, err := i.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return false, fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	if chat == nil {
		return false, fmt.Errorf("chat %d not found", chatID)
	}
	return !chat.IsForum, nil
}
