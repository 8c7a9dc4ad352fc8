// Package tasks implements the maintenance jobs run by the scheduler.
package tasks

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
	Clock  clockwork.Clock
}
