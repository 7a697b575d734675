// Package pagespeed queries the PageSpeed Insights API for rendered mobile,
// accessibility, and performance audits.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/resilient"
)

// DefaultEndpoint is the public PageSpeed Insights v5 API.
const DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Audit is one Lighthouse audit. Score is nil for informative audits.
type Audit struct {
	Score        *float64 `json:"score"`
	DisplayValue string   `json:"displayValue"`
}

// Category is one Lighthouse category such as performance.
type Category struct {
	Score *float64 `json:"score"`
}

// Result is the part of a PageSpeed response the checks read.
type Result struct {
	LighthouseResult struct {
		Audits     map[string]Audit    `json:"audits"`
		Categories map[string]Category `json:"categories"`
	} `json:"lighthouseResult"`
}

// Audit returns the named audit.
func (r *Result) Audit(key string) (Audit, bool) {
	if r == nil {
		return Audit{}, false
	}
	a, ok := r.LighthouseResult.Audits[key]
	return a, ok
}

// CategoryScore returns the 0..1 score of a category.
func (r *Result) CategoryScore(name string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	c, ok := r.LighthouseResult.Categories[name]
	if !ok || c.Score == nil {
		return 0, false
	}
	return *c.Score, true
}

// Config configures the client.
type Config struct {
	Endpoint string
	APIKey   string
	Strategy string
}

// Client fetches and caches PageSpeed results for one scan. Failures are
// cached too, so a URL is only ever analyzed once per scan.
type Client struct {
	cfg    Config
	rc     *resilient.Client
	cache  *gocache.Cache
	logger *zap.Logger
}

// New builds a per-scan client. Analysis renders the page remotely and can be
// slow, so httpClient should carry a generous timeout.
func New(cfg Config, httpClient *http.Client, policy resilient.Policy, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "mobile"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		rc:     resilient.New("pagespeed", httpClient, policy, logger),
		cache:  gocache.New(gocache.NoExpiration, 0),
		logger: logger.Named("pagespeed"),
	}
}

// Analyze returns the PageSpeed result for pageURL, or nil when the API
// could not produce one.
func (c *Client) Analyze(ctx context.Context, pageURL string) *Result {
	if cached, ok := c.cache.Get(pageURL); ok {
		res, _ := cached.(*Result)
		return res
	}
	res := c.fetch(ctx, pageURL)
	c.cache.Set(pageURL, res, gocache.NoExpiration)
	return res
}

func (c *Client) fetch(ctx context.Context, pageURL string) *Result {
	body := c.rc.Call(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(pageURL), nil)
	})
	if body == nil {
		return nil
	}
	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		c.logger.Warn("decode pagespeed response", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	return &res
}

func (c *Client) requestURL(pageURL string) string {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", c.cfg.Strategy)
	q.Add("category", "performance")
	q.Add("category", "accessibility")
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	return fmt.Sprintf("%s?%s", c.cfg.Endpoint, q.Encode())
}
