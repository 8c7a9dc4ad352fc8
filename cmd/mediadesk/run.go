package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/mediadesk/internal/bot"
	"github.com/edgard/mediadesk/internal/bot/tasks"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}
}

// run starts every component and blocks until ctx is cancelled or a
// component fails.
func (c *cli) run(ctx context.Context) error {
	log := c.log

	a, err := newApp(ctx, c.cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  a.store,
		Config: c.cfg,
	})
	sched, err := bot.NewScheduler(log, &c.cfg.Scheduler, taskMap, a.pipeline, nil)
	if err != nil {
		return err
	}
	headlines, err := bot.NewHeadlineLoop(log, a.pipeline, nil, c.cfg.Scheduler.HeadlineTimes, c.cfg.Scheduler.Location(), c.cfg.Scheduler.HeadlineGuard)
	if err != nil {
		return err
	}

	app := bot.NewBot(log, c.cfg, a.tg, sched, headlines)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
