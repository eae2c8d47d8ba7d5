// Package config loads and validates scan configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every knob for a folder scan.
type Config struct {
	// BaseURL is the catalog root; the search endpoint and relative book
	// links are resolved against it.
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`

	// Extension selects which files in a folder count as books.
	Extension string `mapstructure:"extension"`

	// BatchSize bounds logical grouping and progress reporting, not
	// network parallelism.
	BatchSize int `mapstructure:"batch_size"`
	// FetchConcurrency caps in-flight requests across the whole scan.
	FetchConcurrency int `mapstructure:"fetch_concurrency"`

	// MinRatings is the popularity threshold; a book at or above it gets a
	// detail-page fetch.
	MinRatings int `mapstructure:"min_ratings"`

	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`

	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetryBackoffMax time.Duration `mapstructure:"retry_backoff_max"`

	// BlockThreshold is the number of consecutive blocked responses, across
	// all workers, that triggers a folder-wide cooldown.
	BlockThreshold int           `mapstructure:"block_threshold"`
	BlockCooldown  time.Duration `mapstructure:"block_cooldown"`

	// DedupeCacheSize bounds the normalized-title outcome cache.
	DedupeCacheSize int `mapstructure:"dedupe_cache_size"`

	MetricsAddr string `mapstructure:"metrics_addr"`
	Verbose     bool   `mapstructure:"verbose"`
}

// DefaultConfig returns conservative defaults tuned for a rate-limiting
// catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.goodreads.com",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Extension:        ".epub",
		BatchSize:        15,
		FetchConcurrency: 5,
		MinRatings:       500,
		Timeout:          15 * time.Second,
		MinInterval:      500 * time.Millisecond,
		MaxRetries:       3,
		RetryBackoff:     time.Second,
		RetryBackoffMax:  30 * time.Second,
		BlockThreshold:   3,
		BlockCooldown:    45 * time.Second,
		DedupeCacheSize:  4096,
		MetricsAddr:      "",
		Verbose:          false,
	}
}

// Load reads optional file and environment overrides on top of the
// defaults. When cfgFile is empty, genretag.yaml is searched in the working
// directory and ~/.config/genretag. Environment variables use the GENRETAG_
// prefix.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("extension", defaults.Extension)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("fetch_concurrency", defaults.FetchConcurrency)
	v.SetDefault("min_ratings", defaults.MinRatings)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("min_interval", defaults.MinInterval)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("retry_backoff", defaults.RetryBackoff)
	v.SetDefault("retry_backoff_max", defaults.RetryBackoffMax)
	v.SetDefault("block_threshold", defaults.BlockThreshold)
	v.SetDefault("block_cooldown", defaults.BlockCooldown)
	v.SetDefault("dedupe_cache_size", defaults.DedupeCacheSize)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("verbose", defaults.Verbose)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("genretag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/genretag")
	}

	v.SetEnvPrefix("GENRETAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// SearchURL builds the catalog search URL for a normalized title.
func (c *Config) SearchURL(title string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/search?q=" + url.QueryEscape(title)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Extension == "" || !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("extension must start with a dot")
	}
	if strings.EqualFold(c.Extension, ".txt") {
		return fmt.Errorf("extension cannot collide with the sidecar extension")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch concurrency must be positive")
	}
	if c.MinRatings < 0 {
		return fmt.Errorf("min ratings cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("min interval cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.BlockThreshold <= 0 {
		return fmt.Errorf("block threshold must be positive")
	}
	if c.BlockCooldown <= 0 {
		return fmt.Errorf("block cooldown must be positive")
	}
	if c.DedupeCacheSize <= 0 {
		return fmt.Errorf("dedupe cache size must be positive")
	}

	return nil
}
