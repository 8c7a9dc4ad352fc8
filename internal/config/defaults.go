package config

import "time"

// DefaultOpenAIBaseURL is the OpenAI-compatible gateway used unless
// ai.base_url says otherwise.
const DefaultOpenAIBaseURL = "https://openrouter.ai/api/v1"

const (
	DefaultPersonaInstruction = "You are a dramatic, story-driven sports journalist. " +
		"Turn raw league chat into a compelling short take. Focus on rivalries, emotion, hype and story arcs. " +
		"Write two or three sentences of plain text. Do not invent results that are not in the chat."

	DefaultHeadlineInstruction = "You are the headline editor of a league media desk. " +
		"From the chat excerpts, pick the single most newsworthy storyline. " +
		"Reply with one headline line under 100 characters, then a blank line, then a short paragraph. " +
		"Stick to what the chat actually says."
)

// defaults are applied to viper before the config file and environment are
// read. Every key that may be overridden from the environment must appear
// here, otherwise viper does not see it during Unmarshal.
var defaults = map[string]any{
	"log.level": "info",
	"log.json":  true,

	"telegram.token":            "",
	"telegram.output_chat_id":   0,
	"telegram.headline_command": "headline_now",
	"telegram.persona_command":  "persona_now",

	"ai.provider":             "openai",
	"ai.api_key":              "",
	"ai.base_url":             DefaultOpenAIBaseURL,
	"ai.model":                "minimax/minimax-m2",
	"ai.temperature":          0.9,
	"ai.max_tokens":           600,
	"ai.timeout":              45 * time.Second,
	"ai.persona_instruction":  DefaultPersonaInstruction,
	"ai.headline_instruction": DefaultHeadlineInstruction,
	"ai.site_url":             "",
	"ai.app_title":            "Media Desk Bot",

	"database.path":      ":memory:",
	"database.retention": 7 * 24 * time.Hour,

	"pipeline.persona_lookback":     24 * time.Hour,
	"pipeline.headline_lookback":    48 * time.Hour,
	"pipeline.per_channel_limit":    20,
	"pipeline.persona_char_budget":  4000,
	"pipeline.headline_char_budget": 8000,
	"pipeline.persona_policy":       "weighted",
	"pipeline.fingerprint_length":   140,
	"pipeline.topic_length":         48,
	"pipeline.topic_memory_size":    8,
	"pipeline.persona_memory_size":  2,
	"pipeline.group_memory_size":    1,
	"pipeline.post_fingerprint_mem": 16,

	"delivery.hard_cap": 1900,
	"delivery.pace":     400 * time.Millisecond,

	"scheduler.persona_interval":   30 * time.Minute,
	"scheduler.persona_cron":       "",
	"scheduler.headline_times":     []string{"10:00", "16:00"},
	"scheduler.timezone":           "America/New_York",
	"scheduler.headline_guard":     30 * time.Second,
	"scheduler.startup_post":       false,
	"scheduler.startup_post_delay": 5 * time.Second,
	"scheduler.tasks": map[string]any{
		"message_log_prune": map[string]any{"enabled": true, "schedule": "0 30 4 * * *"},
	},

	"personas": []map[string]any{
		{"name": "Samuel A. Loud", "style": "arena voice, hype, big energy", "weight": 1.0},
		{"name": "Cassie Crossfade", "style": "tactical breakdown, sharp TV analyst", "weight": 1.0},
		{"name": "Milo Stattenberg", "style": "analytics desk, nerdy bite", "weight": 1.0},
		{"name": "Uncle Dale", "style": "blue-collar fan at the bar, spicy but fair", "weight": 1.0},
		{"name": "The Insider", "style": "insider whisper, short and coy", "weight": 1.0},
	},

	"metrics.addr": "",

	"messages.welcome":         "📰 Media Desk is on the air. Updates are posted to the desk channel on a schedule.",
	"messages.help":            "Commands (desk channel only):\n/headline_now - post a headline from the last 48 hours\n/persona_now - post a personality take from the last 24 hours",
	"messages.gathering":       "🛰 Gathering the latest chatter…",
	"messages.nothing_to_post": "🟡 Nothing fresh to report right now.",
	"messages.wrong_channel":   "📍 Media Desk commands only run in the desk channel.",
	"messages.general_error":   "⚠️ Media Desk could not produce an update this time.",
}
