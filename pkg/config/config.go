package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "THREADSCRAPER_"

// Config holds all configuration options for the thread scraper
type Config struct {
	// X API connection and credentials
	X XConfig `yaml:"x" json:"x"`

	// Default search parameters
	Search SearchConfig `yaml:"search" json:"search"`

	// Seed selection heuristics
	Seeds SeedsConfig `yaml:"seeds" json:"seeds"`

	// Thread reconstruction engine
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for search and session checks
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// XConfig holds X API specific configuration
type XConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	AccessToken string        `yaml:"access_token" json:"access_token"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// SearchConfig holds default search parameters
type SearchConfig struct {
	Query      string `yaml:"query" json:"query"`
	Mode       string `yaml:"mode" json:"mode"`
	MaxResults int    `yaml:"max_results" json:"max_results"`
}

// SeedsConfig controls which search results start a thread
type SeedsConfig struct {
	Marker string `yaml:"marker" json:"marker"`
	Author string `yaml:"author" json:"author"`
}

// EngineConfig holds thread reconstruction settings
type EngineConfig struct {
	MaxRepliesPerPost int  `yaml:"max_replies_per_post" json:"max_replies_per_post"`
	FallbackSeeds     int  `yaml:"fallback_seeds" json:"fallback_seeds"`
	FetchWorkers      int  `yaml:"fetch_workers" json:"fetch_workers"`
	Chronological     bool `yaml:"chronological" json:"chronological"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory   string `yaml:"directory" json:"directory"`
	Format      string `yaml:"format" json:"format"`
	SaveResults bool   `yaml:"save_results" json:"save_results"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr       string        `yaml:"addr" json:"addr"`
	RunTimeout time.Duration `yaml:"run_timeout" json:"run_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		X: XConfig{
			BaseURL:   "https://api.x.com",
			UserAgent: "threadscraper/1.0",
			Timeout:   45 * time.Second,
		},
		Search: SearchConfig{
			Mode:       "top",
			MaxResults: 20,
		},
		Seeds: SeedsConfig{
			Marker: "🧵",
		},
		Engine: EngineConfig{
			MaxRepliesPerPost: 15,
			FallbackSeeds:     3,
			FetchWorkers:      8,
			Chronological:     false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Output: OutputConfig{
			Directory:   "./threads",
			Format:      "text",
			SaveResults: false,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			RunTimeout: 2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.X.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "ACCESS_TOKEN"); v != "" {
		c.X.AccessToken = v
	}
	if v := os.Getenv(envPrefix + "USER_AGENT"); v != "" {
		c.X.UserAgent = v
	}
	if v := os.Getenv(envPrefix + "QUERY"); v != "" {
		c.Search.Query = v
	}
	if v := os.Getenv(envPrefix + "SEARCH_MODE"); v != "" {
		c.Search.Mode = v
	}
	if v := os.Getenv(envPrefix + "SEED_AUTHOR"); v != "" {
		c.Seeds.Author = v
	}
	if v := os.Getenv(envPrefix + "SEED_MARKER"); v != "" {
		c.Seeds.Marker = v
	}

	if v := os.Getenv(envPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sREQUESTS_PER_MINUTE: %w", envPrefix, err)
		}
		if n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv(envPrefix + "FETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sFETCH_WORKERS: %w", envPrefix, err)
		}
		if n > 0 {
			c.Engine.FetchWorkers = n
		}
	}

	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv(envPrefix + "SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // no config file is not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"threadscraper.yaml",
		".threadscraper.yaml",
		".threadscraper.yml",
		filepath.Join(home, ".config", "threadscraper", "config.yaml"),
		filepath.Join(home, ".config", "threadscraper", "config.yml"),
		filepath.Join(home, ".threadscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.X.BaseURL == "" {
		errs = append(errs, errors.New("X API base URL is required"))
	}
	if c.X.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if !validSearchModes[strings.ToLower(c.Search.Mode)] {
		errs = append(errs, fmt.Errorf("invalid search mode %q", c.Search.Mode))
	}
	if c.Search.MaxResults < 10 || c.Search.MaxResults > 100 {
		errs = append(errs, errors.New("search max results must be between 10 and 100"))
	}

	if c.Engine.MaxRepliesPerPost <= 0 {
		errs = append(errs, errors.New("max replies per post must be positive"))
	}
	if c.Engine.FallbackSeeds <= 0 {
		errs = append(errs, errors.New("fallback seeds must be positive"))
	}
	if c.Engine.FetchWorkers <= 0 || c.Engine.FetchWorkers > 64 {
		errs = append(errs, errors.New("fetch workers must be between 1 and 64"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	if !validOutputFormats[strings.ToLower(c.Output.Format)] {
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}
	if c.Output.SaveResults && c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required when saving results"))
	}

	if c.Server.RunTimeout <= 0 {
		errs = append(errs, errors.New("server run timeout must be positive"))
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

var (
	validSearchModes   = map[string]bool{"top": true, "latest": true}
	validOutputFormats = map[string]bool{"text": true, "json": true, "yaml": true}
	validLogLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	validLogFormats    = map[string]bool{"console": true, "json": true}
)

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys match the cobra flag names.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["access-token"].(string); ok && v != "" {
		c.X.AccessToken = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.X.BaseURL = v
	}
	if v, ok := flags["mode"].(string); ok && v != "" {
		c.Search.Mode = v
	}
	if v, ok := flags["max-results"].(int); ok && v > 0 {
		c.Search.MaxResults = v
	}
	if v, ok := flags["marker"].(string); ok {
		c.Seeds.Marker = v
	}
	if v, ok := flags["author"].(string); ok && v != "" {
		c.Seeds.Author = v
	}
	if v, ok := flags["max-replies"].(int); ok && v > 0 {
		c.Engine.MaxRepliesPerPost = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Engine.FetchWorkers = v
	}
	if v, ok := flags["chronological"].(bool); ok {
		c.Engine.Chronological = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.Format = v
	}
	if v, ok := flags["save"].(bool); ok {
		c.Output.SaveResults = v
	}
	if v, ok := flags["addr"].(string); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-format"].(string); ok && v != "" {
		c.Logging.Format = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".threadscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
