// Package config provides configuration types and loading for nativeiq.
package config

import (
	"strings"
	"time"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, Channels, Scheduler, Approval,
// Cooldown, Events.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Approval  ApprovalConfig  `json:"approval"`
	Cooldown  CooldownConfig  `json:"cooldown"`
	Events    EventsConfig    `json:"events"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir    string `json:"dataDir" envconfig:"DATA_DIR"`
	SessionDir string `json:"sessionDir" envconfig:"SESSION_DIR"`
	TimelineDB string `json:"timelineDb" envconfig:"TIMELINE_DB"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model settings used by the analysis stages.
type ModelConfig struct {
	Name        string        `json:"name" envconfig:"MODEL"`
	MaxTokens   int           `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64       `json:"temperature" envconfig:"TEMPERATURE"`
	Timeout     time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI ProviderConfig `json:"openai"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Channels – messaging integrations
// ---------------------------------------------------------------------------

// ChannelsConfig contains all channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"ENABLED"`
	Token     string   `json:"token" envconfig:"TOKEN"`
	AllowFrom []string `json:"allowFrom"`
}

// SlackConfig configures the Slack channel.
type SlackConfig struct {
	Enabled   bool     `json:"enabled" envconfig:"ENABLED"`
	BotToken  string   `json:"botToken" envconfig:"BOT_TOKEN"`
	AppToken  string   `json:"appToken" envconfig:"APP_TOKEN"`
	AllowFrom []string `json:"allowFrom"`
}

// ---------------------------------------------------------------------------
// Scheduler – proactive agent loop
// ---------------------------------------------------------------------------

// SchedulerConfig contains settings for the proactive scheduler loop.
type SchedulerConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"ENABLED"`
	TickInterval time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	ErrorBackoff time.Duration `json:"errorBackoff" envconfig:"ERROR_BACKOFF"`
	// ActiveWindow limits proactive sends to certain hours/days,
	// e.g. "9-18 mon-fri". Empty means always active.
	ActiveWindow string `json:"activeWindow" envconfig:"ACTIVE_WINDOW"`
	// LockPath guards against two processes running the loop at once.
	// Empty disables the lock.
	LockPath string `json:"lockPath" envconfig:"LOCK_PATH"`
}

// ---------------------------------------------------------------------------
// Approval – pending action lifecycle
// ---------------------------------------------------------------------------

// ApprovalConfig contains settings for the action approval manager.
type ApprovalConfig struct {
	TTL           time.Duration `json:"ttl" envconfig:"TTL"`
	ChainKeywords []string      `json:"chainKeywords"`
}

// ---------------------------------------------------------------------------
// Cooldown – proactive message rate limiting
// ---------------------------------------------------------------------------

// CooldownConfig contains settings for proactive message throttling.
type CooldownConfig struct {
	DefaultSeconds int           `json:"defaultSeconds" envconfig:"DEFAULT_SECONDS"`
	ActivityWindow time.Duration `json:"activityWindow" envconfig:"ACTIVITY_WINDOW"`
}

// ---------------------------------------------------------------------------
// Events – Kafka audit trail
// ---------------------------------------------------------------------------

// EventsConfig contains settings for the Kafka event publisher.
type EventsConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers string `json:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string `json:"topic" envconfig:"KAFKA_TOPIC"`
}

// BrokerList splits the comma-separated broker string.
func (e EventsConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// DefaultChainKeywords is the phrase list that triggers a chained email
// proposal after an approved meeting.
var DefaultChainKeywords = []string{
	"send email",
	"send an email",
	"send him",
	"send her",
	"send invite",
	"email invite",
	"draft email",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.nativeiq",
		},
		Model: ModelConfig{
			Name:        "gpt-4o-mini",
			MaxTokens:   2048,
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			TickInterval: 30 * time.Second,
			ErrorBackoff: 60 * time.Second,
		},
		Approval: ApprovalConfig{
			TTL:           10 * time.Minute,
			ChainKeywords: append([]string{}, DefaultChainKeywords...),
		},
		Cooldown: CooldownConfig{
			DefaultSeconds: 90,
			ActivityWindow: time.Hour,
		},
		Events: EventsConfig{
			Enabled: false,
			Topic:   "nativeiq.events",
		},
	}
}
