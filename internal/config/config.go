// Package config loads and validates siteaudit configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SITEAUDIT_CRAWLER_MAX_PAGES.
const EnvPrefix = "SITEAUDIT"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Bulk     BulkConfig     `mapstructure:"bulk"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Services ServicesConfig `mapstructure:"services"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Output   OutputConfig   `mapstructure:"output"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlerConfig governs the crawl.
type CrawlerConfig struct {
	UserAgent             string  `mapstructure:"user_agent"`
	MaxPages              int     `mapstructure:"max_pages"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	RatePerSecond         float64 `mapstructure:"rate_per_second"`
	RespectRobots         bool    `mapstructure:"respect_robots"`
}

// HeadlessConfig configures render escalation.
type HeadlessConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	AlwaysRender      bool   `mapstructure:"always_render"`
	MinMarkupBytes    int    `mapstructure:"min_markup_bytes"`
	MaxVisibleText    int    `mapstructure:"max_visible_text"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	ExecPath          string `mapstructure:"exec_path"`
}

// BulkConfig sizes the link and image verifier.
type BulkConfig struct {
	Workers             int `mapstructure:"workers"`
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
}

// RetryConfig is the retry policy shared by the external service clients.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxDelayMs  int `mapstructure:"max_delay_ms"`
}

// ServicesConfig points at the external analysis services.
type ServicesConfig struct {
	PageSpeedAPIKey      string `mapstructure:"pagespeed_api_key"`
	PageSpeedEndpoint    string `mapstructure:"pagespeed_endpoint"`
	LanguageToolEndpoint string `mapstructure:"languagetool_endpoint"`
	SiteMetaAPIKey       string `mapstructure:"sitemeta_api_key"`
	SiteMetaPath         string `mapstructure:"sitemeta_path"`
}

// CatalogConfig selects the rule catalog. An empty path uses the built-in one.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig controls where reports go.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
	Format    string `mapstructure:"format"`
}

// MetricsConfig enables the /metrics listener when Listen is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Report formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Load builds a Config from disk and environment. With an empty path the
// working directory and $HOME/.siteaudit are searched for siteaudit.yaml; a
// missing file there is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("siteaudit")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.siteaudit")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.user_agent", "siteaudit/1.0 (+https://github.com/JakeFAU/siteaudit)")
	v.SetDefault("crawler.max_pages", 50)
	v.SetDefault("crawler.request_timeout_seconds", 15)
	v.SetDefault("crawler.rate_per_second", 4.0)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.always_render", false)
	v.SetDefault("headless.min_markup_bytes", 2048)
	v.SetDefault("headless.max_visible_text", 200)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("bulk.workers", 10)
	v.SetDefault("bulk.probe_timeout_seconds", 10)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 8000)
	v.SetDefault("services.pagespeed_api_key", "")
	v.SetDefault("services.pagespeed_endpoint", "")
	v.SetDefault("services.languagetool_endpoint", "")
	v.SetDefault("services.sitemeta_api_key", "")
	v.SetDefault("services.sitemeta_path", "")
	v.SetDefault("catalog.path", "")
	v.SetDefault("output.dir", "")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.gcs_prefix", "reports")
	v.SetDefault("output.format", FormatJSON)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.request_timeout_seconds must be > 0")
	}
	if c.Crawler.RatePerSecond < 0 {
		return fmt.Errorf("crawler.rate_per_second must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	if c.Bulk.Workers <= 0 {
		return fmt.Errorf("bulk.workers must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	switch c.Output.Format {
	case FormatJSON, FormatMarkdown:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatJSON, FormatMarkdown, c.Output.Format)
	}
	return nil
}

// RequestTimeout is the per-page fetch budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.RequestTimeoutSeconds) * time.Second
}

// NavTimeout is the per-page browser render budget.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSeconds) * time.Second
}

// ProbeTimeout bounds a single bulk probe.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Bulk.ProbeTimeoutSeconds) * time.Second
}

// RetryDelays converts the retry section into durations.
func (c Config) RetryDelays() (base, maxDelay time.Duration) {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond, time.Duration(c.Retry.MaxDelayMs) * time.Millisecond
}
