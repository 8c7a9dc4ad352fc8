package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/database"
)

// RunResult is how a manually triggered pipeline run ended, as far as the
// command reply is concerned.
type RunResult int

const (
	RunPosted RunResult = iota
	RunSkipped
	RunFailed
)

// Trigger runs one pipeline pass synchronously.
type Trigger func(ctx context.Context) RunResult

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Headline Trigger
	Persona  Trigger
}
