package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
)

// ParseDailyTimes parses "HH:MM" entries into minutes after midnight,
// sorted and without duplicates.
func ParseDailyTimes(times []string) ([]int, error) {
	out := make([]int, 0, len(times))
	for _, s := range times {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return nil, fmt.Errorf("invalid daily time %q: %w", s, err)
		}
		out = append(out, t.Hour()*60+t.Minute())
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// NextWake returns how long to sleep from now until the next daily time in
// loc. A time equal to now counts as already passed, so the result is always
// positive. Daylight saving shifts are handled by building each candidate
// from the local calendar date.
func NextWake(now time.Time, times []int, loc *time.Location) time.Duration {
	if len(times) == 0 {
		return 24 * time.Hour
	}
	local := now.In(loc)
	y, m, d := local.Date()

	for day := 0; day <= 1; day++ {
		for _, minutes := range times {
			at := time.Date(y, m, d+day, minutes/60, minutes%60, 0, 0, loc)
			if at.After(local) {
				return at.Sub(local)
			}
		}
	}
	// Unreachable with at least one time; tomorrow's first slot is always ahead.
	return 24 * time.Hour
}

// HeadlineLoop fires the headline cadence at fixed wall-clock times. It is a
// single goroutine, so headline runs never overlap.
type HeadlineLoop struct {
	logger *slog.Logger
	runner Runner
	clock  clockwork.Clock
	times  []int
	loc    *time.Location
	guard  time.Duration
}

// NewHeadlineLoop creates a loop firing at times ("HH:MM") in loc. After each
// run it sleeps guard so a run finishing within the same minute cannot fire
// twice.
func NewHeadlineLoop(logger *slog.Logger, runner Runner, clock clockwork.Clock, times []string, loc *time.Location, guard time.Duration) (*HeadlineLoop, error) {
	parsed, err := ParseDailyTimes(times)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("headline loop needs at least one daily time")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &HeadlineLoop{
		logger: logger.With("component", "headline_loop"),
		runner: runner,
		clock:  clock,
		times:  parsed,
		loc:    loc,
		guard:  guard,
	}, nil
}

// Run blocks until ctx is cancelled, running the headline cadence at every
// configured time.
func (l *HeadlineLoop) Run(ctx context.Context) error {
	for {
		wait := NextWake(l.clock.Now(), l.times, l.loc)
		l.logger.Info("Next headline scheduled", "in", wait, "at", l.clock.Now().Add(wait).In(l.loc).Format(time.RFC3339))

		if err := l.sleep(ctx, wait); err != nil {
			l.logger.Info("Headline loop stopped")
			return nil
		}

		l.fire(ctx)

		if err := l.sleep(ctx, l.guard); err != nil {
			l.logger.Info("Headline loop stopped")
			return nil
		}
	}
}

// fire runs one headline. Pipeline.Run recovers its own panics; this guard
// covers other Runner implementations.
func (l *HeadlineLoop) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "Headline run panicked", "panic", r)
		}
	}()
	l.runner.Run(ctx, CadenceHeadline)
}

func (l *HeadlineLoop) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := l.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
