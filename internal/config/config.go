// Package config loads, defaults and validates the mediadesk configuration.
// Values come from config.yaml, MEDIADESK_* environment variables and an
// optional .env file, layered over the defaults in defaults.go.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every error returned by Load.
var ErrConfiguration = errors.New("configuration error")

// Config is the complete application configuration. It is loaded once at
// startup and treated as immutable afterwards, except for BotInfo which is
// filled in after the bot identifies itself.
type Config struct {
	Log           LogConfig       `mapstructure:"log"`
	Telegram      TelegramConfig  `mapstructure:"telegram"`
	AI            AIConfig        `mapstructure:"ai"`
	Database      DatabaseConfig  `mapstructure:"database"`
	ChannelGroups []ChannelGroup  `mapstructure:"channel_groups" validate:"required,min=1,dive"`
	Personas      []PersonaConfig `mapstructure:"personas"       validate:"required,min=1,dive"`
	Pipeline      PipelineConfig  `mapstructure:"pipeline"`
	Delivery      DeliveryConfig  `mapstructure:"delivery"`
	Scheduler     SchedulerConfig `mapstructure:"scheduler"`
	Metrics       MetricsConfig   `mapstructure:"metrics"`
	Messages      MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token, the output chat and command names.
type TelegramConfig struct {
	Token        string `mapstructure:"token"          validate:"required"`
	OutputChatID int64  `mapstructure:"output_chat_id" validate:"required,ne=0"`

	HeadlineCommand string `mapstructure:"headline_command" validate:"required"`
	PersonaCommand  string `mapstructure:"persona_command"  validate:"required,nefield=HeadlineCommand"`

	BotInfo *models.User `mapstructure:"-"`
}

// AIConfig selects and configures the text-generation backend.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"    validate:"oneof=openai gemini"`
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	BaseURL     string        `mapstructure:"base_url"    validate:"omitempty,url"`
	Model       string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"  validate:"min=16,max=32000"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=5m"`

	PersonaInstruction  string `mapstructure:"persona_instruction"  validate:"required"`
	HeadlineInstruction string `mapstructure:"headline_instruction" validate:"required"`

	// Attribution headers sent to OpenRouter-style gateways.
	SiteURL  string `mapstructure:"site_url"  validate:"omitempty,url"`
	AppTitle string `mapstructure:"app_title"`
}

// DatabaseConfig configures the message log. The default ":memory:" keeps the
// log process-local.
type DatabaseConfig struct {
	Path      string        `mapstructure:"path"      validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"min=1h"`
}

// ChannelGroup is a named set of channel slots, e.g. one league.
type ChannelGroup struct {
	Name     string        `mapstructure:"name"     validate:"required"`
	Channels []ChannelSlot `mapstructure:"channels" validate:"dive"`
}

// ChannelSlot maps a label to a chat ID. A nil ID means the slot is not
// configured and is skipped.
type ChannelSlot struct {
	Label string `mapstructure:"label" validate:"required"`
	ID    *int64 `mapstructure:"id"`
}

// PersonaConfig describes one presentation persona.
type PersonaConfig struct {
	Name   string  `mapstructure:"name"   validate:"required"`
	Style  string  `mapstructure:"style"`
	Weight float64 `mapstructure:"weight" validate:"min=0"`
	Handle string  `mapstructure:"handle"`
}

// PipelineConfig tunes gathering and aggregation.
type PipelineConfig struct {
	PersonaLookback  time.Duration `mapstructure:"persona_lookback"  validate:"min=1m"`
	HeadlineLookback time.Duration `mapstructure:"headline_lookback" validate:"min=1m"`
	PerChannelLimit  int           `mapstructure:"per_channel_limit" validate:"min=1,max=500"`

	PersonaCharBudget  int `mapstructure:"persona_char_budget"  validate:"min=500,max=100000"`
	HeadlineCharBudget int `mapstructure:"headline_char_budget" validate:"min=500,max=100000"`

	// PersonaPolicy is "weighted" (proportional to persona weights) or
	// "uniform" (weights ignored).
	PersonaPolicy string `mapstructure:"persona_policy" validate:"oneof=weighted uniform"`

	FingerprintLength  int `mapstructure:"fingerprint_length"   validate:"min=16,max=1000"`
	TopicLength        int `mapstructure:"topic_length"         validate:"min=8,max=200"`
	TopicMemorySize    int `mapstructure:"topic_memory_size"    validate:"min=1,max=64"`
	PersonaMemorySize  int `mapstructure:"persona_memory_size"  validate:"min=0,max=64"`
	GroupMemorySize    int `mapstructure:"group_memory_size"    validate:"min=0,max=64"`
	PostFingerprintMem int `mapstructure:"post_fingerprint_mem" validate:"min=1,max=256"`
}

// DeliveryConfig controls chunking and pacing of outgoing posts.
type DeliveryConfig struct {
	HardCap int           `mapstructure:"hard_cap" validate:"min=100,max=4096"`
	Pace    time.Duration `mapstructure:"pace"     validate:"min=0,max=10s"`
}

// SchedulerConfig drives both cadences and the maintenance tasks.
type SchedulerConfig struct {
	PersonaInterval time.Duration `mapstructure:"persona_interval" validate:"min=0"`
	PersonaCron     string        `mapstructure:"persona_cron"`

	HeadlineTimes    []string      `mapstructure:"headline_times"    validate:"required,min=1,dive,datetime=15:04"`
	Timezone         string        `mapstructure:"timezone"          validate:"required,timezone"`
	HeadlineGuard    time.Duration `mapstructure:"headline_guard"    validate:"min=0,max=5m"`
	StartupPost      bool          `mapstructure:"startup_post"`
	StartupPostDelay time.Duration `mapstructure:"startup_post_delay" validate:"min=0,max=10m"`

	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a registered maintenance task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// MessagesConfig holds user-facing reply texts.
type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	Help          string `mapstructure:"help"           validate:"required"`
	Gathering     string `mapstructure:"gathering"      validate:"required"`
	NothingToPost string `mapstructure:"nothing_to_post" validate:"required"`
	WrongChannel  string `mapstructure:"wrong_channel"  validate:"required"`
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
}

// Location resolves the scheduler timezone. Validation guarantees the name is
// loadable, so the UTC fallback is only reached on a broken tz database.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		slog.Warn("Failed to load scheduler timezone, falling back to UTC", "timezone", s.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// LoadConfig reads the configuration file at path (optional), applies
// environment overrides and defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("MEDIADESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %w", ErrConfiguration, path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	normalize(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	slog.Info("Configuration loaded",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"channel_groups", len(cfg.ChannelGroups),
		"personas", len(cfg.Personas),
		"output_chat_id", cfg.Telegram.OutputChatID)

	return cfg, nil
}

// normalize fills values that cannot be expressed as viper defaults, such as
// per-element defaults inside lists.
func normalize(cfg *Config) {
	for i := range cfg.Personas {
		if cfg.Personas[i].Weight == 0 {
			cfg.Personas[i].Weight = 1.0
		}
	}
	cfg.Telegram.HeadlineCommand = strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.HeadlineCommand), "/")
	cfg.Telegram.PersonaCommand = strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.PersonaCommand), "/")
	if cfg.Scheduler.Tasks == nil {
		cfg.Scheduler.Tasks = map[string]TaskConfig{}
	}
}
