package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Generator   GeneratorConfig   `toml:"generator"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	HTTP        HTTPConfig        `toml:"http"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	LastFM  LastFMConfig  `toml:"lastfm"`
	Spotify SpotifyConfig `toml:"spotify"`
}

// LastFMConfig contains Last.fm API credentials.
type LastFMConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// SpotifyConfig contains the Spotify API endpoint and an optional pre-issued token.
//
// The token and user ID are inputs only; the application never runs an OAuth flow.
type SpotifyConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	UserID      string `toml:"user_id"`
}

// GeneratorConfig selects and configures the text-generation backend.
type GeneratorConfig struct {
	Provider string `toml:"provider"` // cohere or ollama
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

// PipelineConfig tunes the playlist generation pipeline.
type PipelineConfig struct {
	PageSize       int     `toml:"page_size"`
	TrackCount     int     `toml:"track_count"`
	Concurrency    int     `toml:"concurrency"`
	RateLimit      float64 `toml:"rate_limit"`
	MaxRetries     int     `toml:"max_retries"` // total attempts per request, including the first
	RetryBackoffMS int     `toml:"retry_backoff_ms"`
	StrictCuration bool    `toml:"strict_curation"`
	Dedupe         bool    `toml:"dedupe"`
}

// RetryBackoff returns the base retry backoff as a duration.
func (p PipelineConfig) RetryBackoff() time.Duration {
	return time.Duration(p.RetryBackoffMS) * time.Millisecond
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the outbound request timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides secrets with environment variables when they are set.
//
//   - LASTFM_API_KEY
//   - COHERE_API_KEY (or OLLAMA_HOST for the ollama provider's base URL)
//   - SPOTIFY_ACCESS_TOKEN, SPOTIFY_USER_ID
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("LASTFM_API_KEY"); v != "" {
		c.Credentials.LastFM.APIKey = v
	}
	if v := getenv("COHERE_API_KEY"); v != "" {
		c.Generator.APIKey = v
	}
	if v := getenv("OLLAMA_HOST"); v != "" && strings.EqualFold(c.Generator.Provider, "ollama") {
		c.Generator.BaseURL = v
	}
	if v := getenv("SPOTIFY_ACCESS_TOKEN"); v != "" {
		c.Credentials.Spotify.AccessToken = v
	}
	if v := getenv("SPOTIFY_USER_ID"); v != "" {
		c.Credentials.Spotify.UserID = v
	}
}

// Validate checks ranges and enumerations that would otherwise fail mid-run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Generator.Provider) {
	case "cohere", "ollama":
	default:
		return fmt.Errorf("%w: generator.provider must be cohere or ollama, got %q", ErrInvalidConfig, c.Generator.Provider)
	}

	p := c.Pipeline
	if p.PageSize < 1 || p.PageSize > 200 {
		return fmt.Errorf("%w: pipeline.page_size must be between 1 and 200", ErrInvalidConfig)
	}
	if p.TrackCount < 1 || p.TrackCount > 100 {
		return fmt.Errorf("%w: pipeline.track_count must be between 1 and 100", ErrInvalidConfig)
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("%w: pipeline.concurrency must be positive", ErrInvalidConfig)
	}
	if p.RateLimit <= 0 {
		return fmt.Errorf("%w: pipeline.rate_limit must be positive", ErrInvalidConfig)
	}
	if p.MaxRetries < 1 {
		return fmt.Errorf("%w: pipeline.max_retries must be at least 1", ErrInvalidConfig)
	}
	if c.HTTP.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: http.timeout_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
