package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: "base URL"},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "/just/a/path" }, wantErr: "host"},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }, wantErr: "user agent"},
		{name: "extension without dot", mutate: func(c *Config) { c.Extension = "epub" }, wantErr: "extension"},
		{name: "sidecar extension collision", mutate: func(c *Config) { c.Extension = ".TXT" }, wantErr: "sidecar"},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: "batch size"},
		{name: "zero concurrency", mutate: func(c *Config) { c.FetchConcurrency = 0 }, wantErr: "concurrency"},
		{name: "negative min ratings", mutate: func(c *Config) { c.MinRatings = -1 }, wantErr: "min ratings"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: "retries"},
		{name: "backoff above cap", mutate: func(c *Config) {
			c.RetryBackoff = time.Minute
			c.RetryBackoffMax = time.Second
		}, wantErr: "exceed"},
		{name: "zero block threshold", mutate: func(c *Config) { c.BlockThreshold = 0 }, wantErr: "block threshold"},
		{name: "zero cooldown", mutate: func(c *Config) { c.BlockCooldown = 0 }, wantErr: "cooldown"},
		{name: "zero cache size", mutate: func(c *Config) { c.DedupeCacheSize = 0 }, wantErr: "cache size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		title string
		want  string
	}{
		{name: "plain", base: "https://www.goodreads.com", title: "Dune", want: "https://www.goodreads.com/search?q=Dune"},
		{name: "spaces escaped", base: "https://www.goodreads.com", title: "The Great Gatsby", want: "https://www.goodreads.com/search?q=The+Great+Gatsby"},
		{name: "trailing slash trimmed", base: "http://books.test/", title: "Dune", want: "http://books.test/search?q=Dune"},
		{name: "reserved characters escaped", base: "http://books.test", title: "Q&A", want: "http://books.test/search?q=Q%26A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BaseURL = tt.base
			if got := cfg.SearchURL(tt.title); got != tt.want {
				t.Fatalf("SearchURL(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.BaseURL != defaults.BaseURL || cfg.BatchSize != defaults.BatchSize || cfg.Timeout != defaults.Timeout {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genretag.yaml")
	content := strings.Join([]string{
		"base_url: http://books.test",
		"batch_size: 4",
		"min_ratings: 250",
		"timeout: 2s",
		"block_cooldown: 90s",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://books.test" || cfg.BatchSize != 4 || cfg.MinRatings != 250 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 2*time.Second || cfg.BlockCooldown != 90*time.Second {
		t.Fatalf("durations not parsed: timeout=%s cooldown=%s", cfg.Timeout, cfg.BlockCooldown)
	}
	// Untouched keys keep their defaults.
	if cfg.FetchConcurrency != DefaultConfig().FetchConcurrency {
		t.Fatalf("concurrency = %d, want default", cfg.FetchConcurrency)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GENRETAG_MIN_RATINGS", "1000")
	t.Setenv("GENRETAG_BASE_URL", "http://env.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinRatings != 1000 {
		t.Fatalf("min ratings = %d, want env override", cfg.MinRatings)
	}
	if cfg.BaseURL != "http://env.test" {
		t.Fatalf("base url = %q, want env override", cfg.BaseURL)
	}
}
