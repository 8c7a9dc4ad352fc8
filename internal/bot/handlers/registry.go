package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/mediadesk/internal/telegram"
)

// RegisterAllCommands initializes and returns a map of all available bot commands.
func RegisterAllCommands(deps HandlerDeps) map[string]telegram.Handler {
	handlers := make(map[string]telegram.Handler)

	handlers["/start"] = telegram.Handler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = telegram.Handler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	deskMiddleware := []tgbot.Middleware{OutputChatOnly(deps)}

	headline := deps.Config.Telegram.HeadlineCommand
	handlers["/"+headline] = telegram.Handler{
		Match:      CommandMatch(headline),
		Handler:    NewDeskCommandHandler(deps, headline, deps.Headline),
		Middleware: deskMiddleware,
	}
	persona := deps.Config.Telegram.PersonaCommand
	handlers["/"+persona] = telegram.Handler{
		Match:      CommandMatch(persona),
		Handler:    NewDeskCommandHandler(deps, persona, deps.Persona),
		Middleware: deskMiddleware,
	}

	return handlers
}
