package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mediadesk/internal/bot/tasks"
	"github.com/edgard/mediadesk/internal/config"
)

// PersonaJobName is the gocron job name of the frequent persona cadence.
const PersonaJobName = "persona_post"

const startupJobName = "startup_post"

// Runner runs the pipeline for a cadence.
type Runner interface {
	Run(ctx context.Context, cadence Cadence) Outcome
}

// Scheduler manages the frequent persona cadence and the maintenance tasks
// using gocron. Every job runs in singleton mode, so a slow run delays the
// next one instead of overlapping it.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	runner    Runner
	clock     clockwork.Clock
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler in the configured timezone. A nil clock
// uses the real one.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc, runner Runner, clock clockwork.Clock) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(cfg.Location()),
		gocron.WithLogger(log),
		gocron.WithStopTimeout(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
		runner:    runner,
		clock:     clock,
	}, nil
}

// Start registers the persona job, the optional startup post and all enabled
// tasks, then starts ticking. Jobs run with ctx and stop receiving new runs
// when Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.logger.Debug("Configuring scheduler jobs...")

	if err := s.schedulePersona(ctx); err != nil {
		return err
	}
	if err := s.scheduleStartupPost(ctx); err != nil {
		return err
	}
	scheduledCount := s.scheduleTasks(ctx)

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "jobs", len(s.scheduler.Jobs()), "tasks_scheduled", scheduledCount)

	return nil
}

// personaDefinition prefers the cron expression over the interval. ok is
// false when neither is set and the frequent cadence is disabled.
func (s *Scheduler) personaDefinition() (def gocron.JobDefinition, schedule string, ok bool) {
	if expr := strings.TrimSpace(s.cfg.PersonaCron); expr != "" {
		return gocron.CronJob(expr, true), expr, true
	}
	if s.cfg.PersonaInterval > 0 {
		return gocron.DurationJob(s.cfg.PersonaInterval), s.cfg.PersonaInterval.String(), true
	}
	return nil, "", false
}

func (s *Scheduler) schedulePersona(ctx context.Context) error {
	def, schedule, ok := s.personaDefinition()
	if !ok {
		s.logger.Warn("Persona cadence has neither interval nor cron, not scheduling it")
		return nil
	}

	_, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(s.runCadence, ctx, CadencePersona),
		gocron.WithName(PersonaJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(gocron.AfterJobRunsWithPanic(s.logPanic)),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s (%s): %w", PersonaJobName, schedule, err)
	}

	s.logger.Info("Scheduled persona cadence", "job", PersonaJobName, "schedule", schedule)
	return nil
}

// scheduleStartupPost runs one persona post shortly after startup so a fresh
// deploy shows up in the desk channel.
func (s *Scheduler) scheduleStartupPost(ctx context.Context) error {
	if !s.cfg.StartupPost {
		return nil
	}

	at := s.clock.Now().Add(s.cfg.StartupPostDelay)
	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(s.runCadence, ctx, CadencePersona),
		gocron.WithName(startupJobName),
		gocron.WithEventListeners(gocron.AfterJobRunsWithPanic(s.logPanic)),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule startup post: %w", err)
	}

	s.logger.Info("Scheduled startup post", "at", at)
	return nil
}

// scheduleTasks registers every enabled task that has a schedule and a
// registered implementation. Misconfigured tasks are skipped with a warning.
func (s *Scheduler) scheduleTasks(ctx context.Context) int {
	if len(s.cfg.Tasks) == 0 {
		s.logger.Warn("No scheduler tasks configured.")
		return 0
	}

	scheduledCount := 0
	for taskName, taskConfig := range s.cfg.Tasks {
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		if taskConfig.Schedule == "" {
			s.logger.Warn("Scheduled task enabled but has empty schedule, skipping", "task_name", taskName)
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(s.runTask, ctx, taskName, taskFunc),
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(gocron.AfterJobRunsWithPanic(s.logPanic)),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
		scheduledCount++
	}
	return scheduledCount
}

func (s *Scheduler) runCadence(ctx context.Context, cadence Cadence) {
	if ctx.Err() != nil {
		return
	}
	s.runner.Run(ctx, cadence)
}

func (s *Scheduler) runTask(ctx context.Context, name string, task tasks.ScheduledTaskFunc) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("Running scheduled task", "task_name", name)
	startTime := s.clock.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
	}
	s.logger.Info("Finished scheduled task", "task_name", name, "duration", s.clock.Since(startTime))
}

func (s *Scheduler) logPanic(jobID uuid.UUID, jobName string, recoverData any) {
	s.logger.Error("Scheduled job panicked", "job_id", jobID, "job_name", jobName, "panic", recoverData)
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	s.logger.Debug("Stopping scheduler gracefully (waiting for jobs)...")
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}

// JobNames returns the names of the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}
