package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv
const EnvPrefix = "FOCUSROOM_"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Security SecurityConfig `json:"security"`
	Policy   PolicyConfig   `json:"policy"`
	Session  SessionConfig  `json:"session"`
	Logging  LoggingConfig  `json:"logging"`
	Notify   NotifyConfig   `json:"notify"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `json:"host" env:"HOST"`
	Port int    `json:"port" env:"PORT"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path             string `json:"path" env:"DB_PATH"`
	WriteQueueSize   int    `json:"write_queue_size" env:"DB_WRITE_QUEUE_SIZE"`
	WriteMaxAttempts int    `json:"write_max_attempts" env:"DB_WRITE_MAX_ATTEMPTS"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	APIKey string `json:"api_key" env:"API_KEY"`
}

// PolicyConfig locates the block rules
type PolicyConfig struct {
	CatalogDir      string `json:"catalog_dir" env:"CATALOG_DIR"`
	SettingsPath    string `json:"settings_path" env:"SETTINGS_PATH"`
	Watch           bool   `json:"watch" env:"WATCH"`
	WatchDebounceMs int    `json:"watch_debounce_ms" env:"WATCH_DEBOUNCE_MS"`
}

// SessionConfig contains focus session limits
type SessionConfig struct {
	DefaultDurationMinutes   int   `json:"default_duration_minutes" env:"DEFAULT_DURATION_MINUTES"`
	MaxGrantMinutes          int   `json:"max_grant_minutes" env:"MAX_GRANT_MINUTES"`
	HistoryLimit             int   `json:"history_limit" env:"HISTORY_LIMIT"`
	MilestonesEnabled        bool  `json:"milestones_enabled" env:"MILESTONES_ENABLED"`
	Milestones               []int `json:"milestones" env:"MILESTONES" envSeparator:","`
	SchedulerIntervalSeconds int   `json:"scheduler_interval_seconds" env:"SCHEDULER_INTERVAL_SECONDS"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Format string `json:"format" env:"LOG_FORMAT"`
	Level  string `json:"level" env:"LOG_LEVEL"`
}

// NotifyConfig enables Telegram messages for session events. Empty token disables it.
type NotifyConfig struct {
	TelegramToken  string `json:"telegram_token" env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `json:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
	Milestones     bool   `json:"milestones" env:"NOTIFY_MILESTONES"`
}

// Enabled reports whether a Telegram notifier should be started
func (n NotifyConfig) Enabled() bool {
	return n.TelegramToken != ""
}

// Default returns a configuration with every optional value filled in
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Database: DatabaseConfig{
			Path:             "./focusroom.db",
			WriteQueueSize:   256,
			WriteMaxAttempts: 3,
		},
		Policy: PolicyConfig{
			WatchDebounceMs: 500,
		},
		Session: SessionConfig{
			DefaultDurationMinutes:   25,
			MaxGrantMinutes:          60,
			HistoryLimit:             100,
			MilestonesEnabled:        true,
			Milestones:               []int{25, 50, 75},
			SchedulerIntervalSeconds: 15,
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}

	if c.Security.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	if c.Session.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("%w: default session duration must be positive", ErrInvalidConfig)
	}

	if c.Session.MaxGrantMinutes <= 0 {
		return fmt.Errorf("%w: max grant minutes must be positive", ErrInvalidConfig)
	}

	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("%w: history limit must be positive", ErrInvalidConfig)
	}

	if c.Session.SchedulerIntervalSeconds <= 0 {
		return fmt.Errorf("%w: scheduler interval must be positive", ErrInvalidConfig)
	}

	for _, m := range c.Session.Milestones {
		if m <= 0 || m >= 100 {
			return fmt.Errorf("%w: milestone %d must be between 1 and 99", ErrInvalidConfig, m)
		}
	}

	if c.Policy.Watch && c.Policy.CatalogDir == "" && c.Policy.SettingsPath == "" {
		return fmt.Errorf("%w: watch needs a catalog dir or a settings path", ErrInvalidConfig)
	}

	if c.Notify.Enabled() && c.Notify.TelegramChatID == 0 {
		return fmt.Errorf("%w: telegram chat id is required when a telegram token is set", ErrInvalidConfig)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log format must be json or text", ErrInvalidConfig)
	}

	return nil
}

// ActiveMilestones returns the milestone thresholds, or nil when disabled
func (c *Config) ActiveMilestones() []int {
	if !c.Session.MilestonesEnabled {
		return nil
	}
	return c.Session.Milestones
}

// SchedulerInterval returns the safety-net tick interval
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Session.SchedulerIntervalSeconds) * time.Second
}

// WatchDebounce returns the file watcher debounce window
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Policy.WatchDebounceMs) * time.Millisecond
}

// Address returns the HTTP listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load loads configuration from a JSON file. Comments and trailing commas are allowed;
// missing values keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from FOCUSROOM_* environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := Default()
	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
