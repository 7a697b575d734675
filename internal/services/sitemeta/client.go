// Package sitemeta reads CMS backend metadata (plugins, themes, settings,
// media, forms) from a site-check endpoint exposed by the audited site.
package sitemeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/resilient"
)

const (
	// DefaultPath is the site-check endpoint relative to the site root.
	DefaultPath = "/wp-json/site-qa/v1/site-check"
	// DefaultKeyHeader carries the API key.
	DefaultKeyHeader = "X-Site-QA-Key"
)

// ErrUnavailable means the endpoint is not configured or did not answer.
var ErrUnavailable = errors.New("site metadata unavailable")

// Plugin is an installed plugin.
type Plugin struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Version         string `json:"version"`
	Active          bool   `json:"active"`
	UpdateAvailable bool   `json:"update_available"`
	NewVersion      string `json:"new_version"`
}

// Theme is an installed theme.
type Theme struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Active          bool   `json:"active"`
	UpdateAvailable bool   `json:"update_available"`
	NewVersion      string `json:"new_version"`
}

// Offset is a UTC offset in hours. The endpoint sends it as a number or a
// numeric string.
type Offset struct {
	Hours float64
	Set   bool
}

// UnmarshalJSON accepts 5, -5.5, "5", or "".
func (o *Offset) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		*o = Offset{}
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("gmt_offset %q: %w", raw, err)
	}
	*o = Offset{Hours: v, Set: true}
	return nil
}

// Settings are general site settings.
type Settings struct {
	TimezoneString string `json:"timezone_string"`
	GMTOffset      Offset `json:"gmt_offset"`
}

// Timezone returns the configured zone name, a UTC±N label derived from the
// offset, or "UTC".
func (s Settings) Timezone() string {
	if s.TimezoneString != "" {
		return s.TimezoneString
	}
	if s.GMTOffset.Set && s.GMTOffset.Hours != 0 {
		return fmt.Sprintf("UTC%+g", s.GMTOffset.Hours)
	}
	return "UTC"
}

// TemplateFile is a media file that still looks like theme demo content.
type TemplateFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Date     string `json:"date"`
	Pattern  string `json:"pattern"`
}

// Media summarizes the media library.
type Media struct {
	TemplateFiles []TemplateFile `json:"template_files"`
}

// Notification is one form notification.
type Notification struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	To       string `json:"to"`
}

// Form is one form and its notifications.
type Form struct {
	Title         string         `json:"title"`
	IsActive      bool           `json:"is_active"`
	Notifications []Notification `json:"notifications"`
}

// Forms describes the form plugin in use.
type Forms struct {
	FormPlugin string `json:"form_plugin"`
	Forms      []Form `json:"forms"`
}

// SiteData is the payload of the site-check endpoint.
type SiteData struct {
	Plugins  []Plugin `json:"plugins"`
	Themes   []Theme  `json:"themes"`
	Settings Settings `json:"settings"`
	Media    Media    `json:"media"`
	Forms    Forms    `json:"forms"`
}

// OutdatedPlugins returns active plugins with a pending update.
func (d *SiteData) OutdatedPlugins() []Plugin {
	var out []Plugin
	for _, p := range d.Plugins {
		if p.Active && p.UpdateAvailable {
			out = append(out, p)
		}
	}
	return out
}

// OutdatedThemes returns themes with a pending update.
func (d *SiteData) OutdatedThemes() []Theme {
	var out []Theme
	for _, t := range d.Themes {
		if t.UpdateAvailable {
			out = append(out, t)
		}
	}
	return out
}

// ActivePluginSlugs returns the slugs of active plugins, lowercased.
func (d *SiteData) ActivePluginSlugs() []string {
	var out []string
	for _, p := range d.Plugins {
		if p.Active {
			slug := p.Slug
			if slug == "" {
				slug = p.Name
			}
			out = append(out, strings.ToLower(slug))
		}
	}
	return out
}

// Config configures the client.
type Config struct {
	Path      string
	KeyHeader string
	APIKey    string
}

// Client fetches site metadata once per scan.
type Client struct {
	cfg     Config
	siteURL string
	rc      *resilient.Client
	logger  *zap.Logger

	once sync.Once
	data *SiteData
	err  error
}

// New builds a client for siteURL. Without an API key the client reports
// itself unavailable and never calls out.
func New(siteURL string, cfg Config, httpClient *http.Client, policy resilient.Policy, logger *zap.Logger) *Client {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = DefaultKeyHeader
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		siteURL: strings.TrimRight(siteURL, "/"),
		rc:      resilient.New("sitemeta", httpClient, policy, logger),
		logger:  logger.Named("sitemeta"),
	}
}

// Available reports whether metadata can be read.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.Data(ctx)
	return err == nil
}

// Data returns the site metadata. The endpoint is called at most once.
func (c *Client) Data(ctx context.Context) (*SiteData, error) {
	c.once.Do(func() {
		c.data, c.err = c.fetch(ctx)
		if c.err != nil {
			c.logger.Info("site metadata unavailable", zap.Error(c.err))
		}
	})
	return c.data, c.err
}

func (c *Client) fetch(ctx context.Context) (*SiteData, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no api key configured", ErrUnavailable)
	}
	endpoint := c.siteURL + c.cfg.Path
	resp, err := c.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(c.cfg.KeyHeader, c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var payload struct {
		Data SiteData `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrUnavailable, err)
	}
	return &payload.Data, nil
}
