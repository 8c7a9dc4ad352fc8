package bot

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/mediadesk/internal/bot/handlers"
	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/logger"
)

type blockingListener struct {
	started chan struct{}
}

func (l *blockingListener) Start(ctx context.Context) {
	close(l.started)
	<-ctx.Done()
}

type outcomeRunner struct {
	outcome Outcome
}

func (r outcomeRunner) Run(context.Context, Cadence) Outcome {
	return r.outcome
}

func TestManualTrigger(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		expected handlers.RunResult
	}{
		{OutcomePosted, handlers.RunPosted},
		{OutcomeDuplicate, handlers.RunSkipped},
		{OutcomeNoMessages, handlers.RunSkipped},
		{OutcomeGenerationFailed, handlers.RunFailed},
		{OutcomeDeliveryFailed, handlers.RunFailed},
		{OutcomeNoPersona, handlers.RunFailed},
		{OutcomePanic, handlers.RunFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			trigger := ManualTrigger(outcomeRunner{tt.outcome}, CadenceHeadline)
			assert.Equal(t, tt.expected, trigger(context.Background()))
		})
	}
}

func TestBotRunStopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		PersonaInterval: time.Hour,
		HeadlineTimes:   []string{"10:00"},
		Timezone:        "UTC",
	}}
	runner := &chanRunner{calls: make(chan Cadence, 1)}

	sched, err := NewScheduler(logger.Discard(), &cfg.Scheduler, nil, runner, clock)
	require.NoError(t, err)
	loop, err := NewHeadlineLoop(logger.Discard(), runner, clock, cfg.Scheduler.HeadlineTimes, time.UTC, 0)
	require.NoError(t, err)

	listener := &blockingListener{started: make(chan struct{})}
	b := NewBot(logger.Discard(), cfg, listener, sched, loop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-listener.started:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not start")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("bot did not stop")
	}
}
