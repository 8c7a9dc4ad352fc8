package config

import (
	"errors"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var errs []error

	seenGroups := make(map[string]bool, len(cfg.ChannelGroups))
	configured := 0
	for _, g := range cfg.ChannelGroups {
		if seenGroups[g.Name] {
			errs = append(errs, fmt.Errorf("channel_groups: duplicate group name %q", g.Name))
		}
		seenGroups[g.Name] = true
		for _, ch := range g.Channels {
			if ch.ID != nil {
				configured++
			}
		}
	}
	if configured == 0 {
		errs = append(errs, errors.New("channel_groups: no channel has an id configured"))
	}

	seenPersonas := make(map[string]bool, len(cfg.Personas))
	var totalWeight float64
	for _, p := range cfg.Personas {
		if seenPersonas[p.Name] {
			errs = append(errs, fmt.Errorf("personas: duplicate persona name %q", p.Name))
		}
		seenPersonas[p.Name] = true
		totalWeight += p.Weight
	}
	if totalWeight <= 0 {
		errs = append(errs, errors.New("personas: total weight must be positive"))
	}

	for name, task := range cfg.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			errs = append(errs, fmt.Errorf("scheduler.tasks.%s: enabled task has an empty schedule", name))
		}
	}

	if cfg.Scheduler.PersonaCron != "" {
		// Parse through a throwaway scheduler so a bad expression fails at startup.
		s, err := gocron.NewScheduler()
		if err == nil {
			if _, jobErr := s.NewJob(gocron.CronJob(cfg.Scheduler.PersonaCron, true), gocron.NewTask(func() {})); jobErr != nil {
				errs = append(errs, fmt.Errorf("scheduler.persona_cron: %w", jobErr))
			}
			_ = s.Shutdown()
		}
	}

	return errors.Join(errs...)
}
