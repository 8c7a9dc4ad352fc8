package bot

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/mediadesk/internal/bot/tasks"
	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/logger"
)

func newTestScheduler(t *testing.T, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc, runner Runner) *Scheduler {
	t.Helper()

	s, err := NewScheduler(logger.Discard(), cfg, taskMap, runner, clockwork.NewFakeClockAt(testNow))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestSchedulerRegistersJobs(t *testing.T) {
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name     string
		cfg      config.SchedulerConfig
		expected []string
	}{
		{
			name: "interval persona and enabled task",
			cfg: config.SchedulerConfig{
				PersonaInterval: 30 * time.Minute,
				Timezone:        "America/New_York",
				Tasks:           map[string]config.TaskConfig{tasks.MessageLogPrune: {Enabled: true, Schedule: "0 30 4 * * *"}},
			},
			expected: []string{PersonaJobName, tasks.MessageLogPrune},
		},
		{
			name: "cron persona wins over interval",
			cfg: config.SchedulerConfig{
				PersonaInterval: 30 * time.Minute,
				PersonaCron:     "*/15 * * * *",
				Timezone:        "UTC",
			},
			expected: []string{PersonaJobName},
		},
		{
			name: "disabled, unknown and unscheduled tasks are skipped",
			cfg: config.SchedulerConfig{
				PersonaInterval: time.Hour,
				Timezone:        "UTC",
				Tasks: map[string]config.TaskConfig{
					tasks.MessageLogPrune: {Enabled: false, Schedule: "0 30 4 * * *"},
					"unknown":             {Enabled: true, Schedule: "0 30 4 * * *"},
					"empty":               {Enabled: true},
				},
			},
			expected: []string{PersonaJobName},
		},
		{
			name: "startup post",
			cfg: config.SchedulerConfig{
				PersonaInterval:  time.Hour,
				Timezone:         "UTC",
				StartupPost:      true,
				StartupPostDelay: 5 * time.Second,
			},
			expected: []string{PersonaJobName, startupJobName},
		},
		{
			name:     "persona cadence disabled",
			cfg:      config.SchedulerConfig{Timezone: "UTC"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taskMap := map[string]tasks.ScheduledTaskFunc{tasks.MessageLogPrune: noop, "empty": noop}
			s := newTestScheduler(t, &tt.cfg, taskMap, &chanRunner{calls: make(chan Cadence, 1)})

			require.NoError(t, s.Start(context.Background()))
			assert.ElementsMatch(t, tt.expected, s.JobNames())
			assert.Error(t, s.Start(context.Background()), "second start must fail")
		})
	}
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	s := newTestScheduler(t, &config.SchedulerConfig{PersonaCron: "not a cron", Timezone: "UTC"}, nil, &chanRunner{})
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerPersonaJobRunsPipeline(t *testing.T) {
	runner := &chanRunner{calls: make(chan Cadence, 1)}
	s := newTestScheduler(t, &config.SchedulerConfig{PersonaInterval: time.Hour, Timezone: "UTC"}, nil, runner)
	require.NoError(t, s.Start(context.Background()))

	var ran bool
	for _, j := range s.scheduler.Jobs() {
		if j.Name() == PersonaJobName {
			require.NoError(t, j.RunNow())
			ran = true
		}
	}
	require.True(t, ran)

	select {
	case cadence := <-runner.calls:
		assert.Equal(t, CadencePersona, cadence)
	case <-time.After(5 * time.Second):
		t.Fatal("persona job did not run")
	}

	require.NoError(t, s.Stop())
	assert.NoError(t, s.Stop(), "stopping twice is a no-op")
}
