package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/mediadesk/internal/bot"
)

func newPostCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "post headline|persona",
		Short: "Run the pipeline once and exit",
		Long: `post runs one pipeline pass, the same path as the manual desk commands.
It reads history from the message log at database.path, so it only finds
messages when that log is a file shared with a running bot.`,
		ValidArgs: []string{string(bot.CadenceHeadline), string(bot.CadencePersona)},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cadence, err := bot.ParseCadence(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome := a.pipeline.Run(cmd.Context(), cadence)
			if outcome.Skipped() {
				fmt.Fprintln(cmd.OutOrStdout(), c.cfg.Messages.NothingToPost)
				return nil
			}
			if err := outcome.Err(); err != nil {
				return fmt.Errorf("%s run ended with %s: %w", cadence, outcome, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s posted to chat %d\n", cadence, c.cfg.Telegram.OutputChatID)
			return nil
		},
	}
}
