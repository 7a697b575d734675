package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawler:
  user_agent: qa-bot
  max_pages: 12
  request_timeout_seconds: 20
  rate_per_second: 1.5
  respect_robots: true
headless:
  enabled: false
  always_render: true
bulk:
  workers: 4
  probe_timeout_seconds: 3
retry:
  max_attempts: 5
  base_delay_ms: 100
  max_delay_ms: 900
services:
  pagespeed_api_key: psi-key
  sitemeta_path: /wp-json/site-data/v1/info
catalog:
  path: rules.yaml
output:
  dir: out
  gcs_bucket: qa-reports
  format: markdown
metrics:
  listen: ":9100"
logging:
  development: true
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawler.UserAgent != "qa-bot" || cfg.Crawler.MaxPages != 12 || !cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Headless.Enabled || !cfg.Headless.AlwaysRender {
		t.Fatalf("expected headless overrides to apply: %+v", cfg.Headless)
	}
	if cfg.Headless.MinMarkupBytes != 2048 {
		t.Fatalf("expected default min markup, got %d", cfg.Headless.MinMarkupBytes)
	}
	if cfg.Services.PageSpeedAPIKey != "psi-key" || cfg.Catalog.Path != "rules.yaml" {
		t.Fatalf("expected services and catalog overrides: %+v", cfg)
	}
	if cfg.Output.Format != FormatMarkdown || cfg.Output.GCSBucket != "qa-reports" || cfg.Output.GCSPrefix != "reports" {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Metrics.Listen != ":9100" || !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected metrics/logging config: %+v %+v", cfg.Metrics, cfg.Logging)
	}
	if got := cfg.RequestTimeout(); got != 20*time.Second {
		t.Fatalf("expected request timeout 20s, got %v", got)
	}
	if got := cfg.ProbeTimeout(); got != 3*time.Second {
		t.Fatalf("expected probe timeout 3s, got %v", got)
	}
	base, maxDelay := cfg.RetryDelays()
	if base != 100*time.Millisecond || maxDelay != 900*time.Millisecond {
		t.Fatalf("unexpected retry delays %v %v", base, maxDelay)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SITEAUDIT_CRAWLER_MAX_PAGES", "7")
	t.Setenv("SITEAUDIT_OUTPUT_FORMAT", "markdown")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.MaxPages != 7 {
		t.Fatalf("expected env max pages 7, got %d", cfg.Crawler.MaxPages)
	}
	if cfg.Output.Format != FormatMarkdown {
		t.Fatalf("expected env format markdown, got %q", cfg.Output.Format)
	}
	if cfg.Bulk.Workers != 10 || cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("expected defaults, got %+v %+v", cfg.Bulk, cfg.Retry)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Crawler:  CrawlerConfig{MaxPages: 50, RequestTimeoutSeconds: 10},
		Headless: HeadlessConfig{Enabled: true, NavTimeoutSeconds: 30},
		Bulk:     BulkConfig{Workers: 10},
		Retry:    RetryConfig{MaxAttempts: 3},
		Output:   OutputConfig{Format: FormatJSON},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"max pages", func(c *Config) { c.Crawler.MaxPages = 0 }, "crawler.max_pages"},
		{"request timeout", func(c *Config) { c.Crawler.RequestTimeoutSeconds = 0 }, "crawler.request_timeout_seconds"},
		{"negative rate", func(c *Config) { c.Crawler.RatePerSecond = -1 }, "crawler.rate_per_second"},
		{"nav timeout", func(c *Config) { c.Headless.NavTimeoutSeconds = 0 }, "headless.nav_timeout_seconds"},
		{"workers", func(c *Config) { c.Bulk.Workers = 0 }, "bulk.workers"},
		{"attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"format", func(c *Config) { c.Output.Format = "pdf" }, "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
