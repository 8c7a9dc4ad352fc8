package tasks

import (
	"context"
	"fmt"
)

// newMessageLogPruneTask deletes log rows older than the retention window
// and vacuums the database, keeping the in-memory log bounded.
func newMessageLogPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", MessageLogPrune)

	return func(ctx context.Context) error {
		startTime := deps.Clock.Now()
		cutoff := startTime.Add(-deps.Config.Database.Retention)

		deleted, err := deps.Store.DeleteMessagesBefore(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Failed to prune message log", "error", err, "cutoff", cutoff)
			return fmt.Errorf("message log prune failed: %w", err)
		}

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance after prune failed", "error", err)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Message log pruned", "deleted", deleted, "cutoff", cutoff, "duration", deps.Clock.Since(startTime))
		return nil
	}
}
