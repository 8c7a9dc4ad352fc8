package main

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/mediadesk/internal/ai"
	"github.com/edgard/mediadesk/internal/bot"
	"github.com/edgard/mediadesk/internal/bot/handlers"
	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/database"
	"github.com/edgard/mediadesk/internal/delivery"
	"github.com/edgard/mediadesk/internal/logger"
	"github.com/edgard/mediadesk/internal/recent"
	"github.com/edgard/mediadesk/internal/source"
	"github.com/edgard/mediadesk/internal/telegram"
)

// app holds the components shared by the run and post commands.
type app struct {
	db       *sqlx.DB
	store    database.Store
	tg       *tgbot.Bot
	pipeline *bot.Pipeline
}

// newApp opens the message log, connects to Telegram and the generation
// backend, and assembles the pipeline. Command handlers are registered but
// updates only flow once the bot is started.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message log at %s: %w", cfg.Database.Path, err)
	}
	a := &app{db: db, store: database.NewStore(db, log)}

	generator, err := ai.NewClient(ctx, cfg.AI, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize generation client: %w", err)
	}

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  a.store,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewIngestHandler(hDeps)),
	}
	a.tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Retrieve bot info and store it in the config for runtime use
	cfg.Telegram.BotInfo, err = a.tg.GetMe(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	posts := recent.NewPostCache(cfg.Pipeline.PostFingerprintMem, cfg.Pipeline.FingerprintLength)
	a.pipeline = bot.NewPipeline(bot.PipelineDeps{
		Logger:    log,
		Config:    cfg,
		Source:    source.NewAdapter(a.store, telegram.NewInspector(a.tg), log),
		Generator: generator,
		Deliverer: delivery.NewDeliverer(telegram.NewSender(a.tg), posts, cfg.Delivery.HardCap, cfg.Delivery.Pace, log),
	})

	hDeps.Headline = bot.ManualTrigger(a.pipeline, bot.CadenceHeadline)
	hDeps.Persona = bot.ManualTrigger(a.pipeline, bot.CadencePersona)
	if err := telegram.RegisterHandlers(a.tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register Telegram handlers: %w", err)
	}

	return a, nil
}

// Close releases the message log.
func (a *app) Close() {
	database.CloseDB(a.db)
}
