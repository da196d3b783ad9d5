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
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Transfer    TransferConfig    `toml:"transfer"`
	Matching    MatchingConfig    `toml:"matching"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific application credentials.
//
// User credentials (tokens, auth files) arrive per request and are never written here.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	Archive      bool   `toml:"archive"` // Persist finished jobs and fetched tracks
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TransferConfig controls job execution.
type TransferConfig struct {
	Concurrency          int     `toml:"concurrency"`  // Matching workers per job
	MaxJobs              int     `toml:"max_jobs"`     // Jobs executing at once
	QueueSize            int     `toml:"queue_size"`   // Jobs waiting for a worker
	SearchRate           float64 `toml:"search_rate"`  // Destination searches per second per job
	RetryCount           int     `toml:"retry_count"`  // Attempts per platform request
	RetryBaseMS          int     `toml:"retry_base_ms"`
	RetryMaxWaitSeconds  int     `toml:"retry_max_wait_seconds"` // Longest Retry-After honoured
	RequestRate          float64 `toml:"request_rate"` // Platform requests per second per adapter
	JobTTLMinutes        int     `toml:"job_ttl_minutes"`
	SweepIntervalSeconds int     `toml:"sweep_interval_seconds"`
}

// RetryBase returns the linear backoff step.
func (t TransferConfig) RetryBase() time.Duration {
	return time.Duration(t.RetryBaseMS) * time.Millisecond
}

// RetryMaxWait returns the longest single backoff a platform may ask for.
func (t TransferConfig) RetryMaxWait() time.Duration {
	return time.Duration(t.RetryMaxWaitSeconds) * time.Second
}

// JobTTL returns how long finished jobs stay pollable.
func (t TransferConfig) JobTTL() time.Duration {
	return time.Duration(t.JobTTLMinutes) * time.Minute
}

// SweepInterval returns the registry eviction period.
func (t TransferConfig) SweepInterval() time.Duration {
	return time.Duration(t.SweepIntervalSeconds) * time.Second
}

// MatchingConfig holds track matcher weights and the acceptance threshold.
type MatchingConfig struct {
	Threshold         float64 `toml:"threshold"`
	TitleWeight       float64 `toml:"title_weight"`
	ArtistWeight      float64 `toml:"artist_weight"`
	DurationWeight    float64 `toml:"duration_weight"`
	DurationTolerance int     `toml:"duration_tolerance"` // Seconds before duration starts to count against a candidate
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks numeric settings that would otherwise stall or overload jobs.
func (c *Config) Validate() error {
	t := c.Transfer
	switch {
	case t.Concurrency <= 0:
		return fmt.Errorf("%w: transfer.concurrency must be positive", ErrInvalidConfig)
	case t.MaxJobs <= 0:
		return fmt.Errorf("%w: transfer.max_jobs must be positive", ErrInvalidConfig)
	case t.QueueSize < 0:
		return fmt.Errorf("%w: transfer.queue_size must not be negative", ErrInvalidConfig)
	case t.SearchRate <= 0:
		return fmt.Errorf("%w: transfer.search_rate must be positive", ErrInvalidConfig)
	case t.RetryCount <= 0:
		return fmt.Errorf("%w: transfer.retry_count must be positive", ErrInvalidConfig)
	}
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("%w: matching.threshold must be in (0, 1]", ErrInvalidConfig)
	}
	return nil
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
