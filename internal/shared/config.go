package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API        APIConfig       `toml:"api"`
	Jobs       JobsConfig      `toml:"jobs"`
	RateLimits RateLimitConfig `toml:"rate_limits"`
	Cache      CacheConfig     `toml:"cache"`
	Database   DatabaseConfig  `toml:"database"`
	Log        LogConfig       `toml:"log"`
}

// APIConfig locates the summarization service.
type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	Prefix    string `toml:"prefix"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// JobsConfig mirrors the server's background job settings.
//
// ExpiryDays is informational only; unclaimed jobs are expired by the server.
type JobsConfig struct {
	PollIntervalMS int `toml:"poll_interval_ms"`
	MaxConcurrent  int `toml:"max_concurrent"`
	ExpiryDays     int `toml:"expiry_days"`
}

// RateLimitConfig contains client-side request budgets (requests per minute).
type RateLimitConfig struct {
	SummarizePerMinute int `toml:"summarize_per_minute"`
	ChatPerMinute      int `toml:"chat_per_minute"`
}

// CacheConfig contains staleness windows for cached collections.
type CacheConfig struct {
	ConversationsStaleMS int `toml:"conversations_stale_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// PollInterval returns the job polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Jobs.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the HTTP client timeout. Zero means no timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutMS) * time.Millisecond
}

// ConversationsStaleTime returns how long a fetched conversation list stays fresh.
func (c *Config) ConversationsStaleTime() time.Duration {
	return time.Duration(c.Cache.ConversationsStaleMS) * time.Millisecond
}

// Validate checks that intervals and limits are usable.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	case c.API.TimeoutMS < 0:
		return fmt.Errorf("%w: api.timeout_ms must not be negative", ErrInvalidConfig)
	case c.Jobs.PollIntervalMS <= 0:
		return fmt.Errorf("%w: jobs.poll_interval_ms must be positive", ErrInvalidConfig)
	case c.Jobs.MaxConcurrent <= 0:
		return fmt.Errorf("%w: jobs.max_concurrent must be positive", ErrInvalidConfig)
	case c.RateLimits.SummarizePerMinute <= 0 || c.RateLimits.ChatPerMinute <= 0:
		return fmt.Errorf("%w: rate limits must be positive", ErrInvalidConfig)
	case c.Cache.ConversationsStaleMS < 0:
		return fmt.Errorf("%w: cache.conversations_stale_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a TOML configuration file and overlays it on [DefaultConfig].
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
