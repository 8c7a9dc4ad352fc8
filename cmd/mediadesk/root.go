package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/logger"
)

// cli carries the state shared by subcommands once the configuration is
// loaded.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "mediadesk",
		Short: "Scheduled media desk bot for Telegram league chats",
		Long: `mediadesk reads recent activity from configured Telegram chats, asks a
text-generation API for a short take, and posts it to the desk channel.

Example usage:
  mediadesk run                  # Run the bot with both cadences
  mediadesk post headline        # Post one headline now and exit
  mediadesk post persona         # Post one personality take now and exit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "./config.yaml", "Path to configuration file")

	root.AddCommand(newRunCmd(c), newPostCmd(c))
	return root
}

// init loads the configuration and installs the configured logger.
func (c *cli) init() error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", c.configPath, err)
	}
	c.cfg = cfg

	c.log = logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	c.log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)
	return nil
}
