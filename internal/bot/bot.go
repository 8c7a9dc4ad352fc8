// Package bot orchestrates the media desk: the content pipeline, its two
// cadences and the lifecycle of the Telegram listener, scheduler and
// metrics endpoint.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/mediadesk/internal/bot/handlers"
	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/metrics"
)

// Listener receives Telegram updates until ctx is cancelled.
type Listener interface {
	Start(ctx context.Context)
}

var _ Listener = (*tgbot.Bot)(nil)

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	tgBot     Listener
	scheduler *Scheduler
	headlines *HeadlineLoop
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	tgBot Listener,
	scheduler *Scheduler,
	headlines *HeadlineLoop,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		tgBot:     tgBot,
		scheduler: scheduler,
		headlines: headlines,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.tgBot.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting headline loop...", "times", b.cfg.Scheduler.HeadlineTimes, "timezone", b.cfg.Scheduler.Timezone)
		return b.headlines.Run(gCtx)
	})

	if addr := b.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(gCtx, addr, b.logger)
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

// ManualTrigger adapts a pipeline cadence to a command handler trigger.
func ManualTrigger(runner Runner, cadence Cadence) handlers.Trigger {
	return func(ctx context.Context) handlers.RunResult {
		switch outcome := runner.Run(ctx, cadence); {
		case outcome == OutcomePosted:
			return handlers.RunPosted
		case outcome.Skipped():
			return handlers.RunSkipped
		default:
			return handlers.RunFailed
		}
	}
}
