package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/metrics"
)

// DefaultMaxPages is the page ceiling used when callers pass zero.
const DefaultMaxPages = 50

// ErrResourceExhausted is returned when the crawl cannot continue because a
// required resource, such as a browser process, could not be allocated.
var ErrResourceExhausted = audit.ErrResourceExhausted

// Detector decides whether a static page needs a browser render.
type Detector interface {
	NeedsRender(page audit.Page) bool
}

// Pacer delays requests to stay polite to the target host.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Options wires the optional collaborators. Nil fields disable the feature.
type Options struct {
	Renderer audit.Renderer
	Detector Detector
	Robots   RobotsPolicy
	Pacer    Pacer
}

// Crawler walks one site breadth first, one fetch at a time.
type Crawler struct {
	fetcher  audit.Fetcher
	renderer audit.Renderer
	detector Detector
	robots   RobotsPolicy
	pacer    Pacer
	logger   *zap.Logger
}

// New builds a Crawler around fetcher.
func New(fetcher audit.Fetcher, opts Options, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	robots := opts.Robots
	if robots == nil {
		robots = allowAllPolicy{}
	}
	return &Crawler{
		fetcher:  fetcher,
		renderer: opts.Renderer,
		detector: opts.Detector,
		robots:   robots,
		pacer:    opts.Pacer,
		logger:   logger.Named("crawler"),
	}
}

// Crawl fetches at most maxPages pages of the seed's site. Fetch failures are
// recorded on the returned pages and count toward the ceiling. Cancellation
// stops the crawl and returns what was gathered. The renderer is closed before
// Crawl returns.
func (c *Crawler) Crawl(ctx context.Context, seed string, maxPages int) (*audit.CrawlResult, error) {
	if c.renderer != nil {
		defer func() {
			if err := c.renderer.Close(); err != nil {
				c.logger.Warn("renderer close failed", zap.Error(err))
			}
		}()
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	normalized, err := NormalizeSite(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", seed, err)
	}
	seedURL, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", seed, err)
	}

	scope := origins{}
	scope.add(seedURL)

	site := metrics.SanitizeSite(normalized)
	result := audit.NewCrawlResult(normalized)
	front := newFrontier()
	front.push(normalized)
	start := time.Now()
	fetched := 0

	for fetched < maxPages {
		if ctx.Err() != nil {
			c.logger.Info("crawl canceled", zap.Int("pages", result.Len()), zap.Error(ctx.Err()))
			break
		}
		next, ok := front.pop()
		if !ok {
			break
		}
		if !c.robots.Allowed(ctx, next) {
			c.logger.Debug("skipping url disallowed by robots", zap.String("url", next))
			continue
		}
		if c.pacer != nil {
			if err := c.pacer.Wait(ctx, next); err != nil {
				c.logger.Info("crawl stopped while pacing", zap.Error(err))
				break
			}
		}

		page := c.fetcher.Fetch(ctx, next)
		if ctx.Err() != nil && page.StatusCode == 0 {
			break
		}
		fetched++
		metrics.ObserveCrawl(site, page.StatusCode, len(page.Body))

		page, err = c.escalate(ctx, page)
		if err != nil {
			return result, err
		}
		result.Add(page)
		c.logger.Debug("page crawled",
			zap.String("url", next),
			zap.Int("status", page.StatusCode),
			zap.Bool("rendered", page.Rendered),
			zap.Int("fetched", fetched),
			zap.Int("max_pages", maxPages),
		)

		if next == normalized {
			c.adoptSeedRedirect(front, scope, page)
		}
		if !page.Parsed() {
			continue
		}
		for _, link := range page.Links {
			c.enqueue(front, scope, link)
		}
	}

	c.logger.Info("crawl finished",
		zap.String("seed", normalized),
		zap.Int("pages", result.Len()),
		zap.Int("queued", front.len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// escalate swaps page for a browser render when the detector asks for one
// and the renderer is available. The rendered page keeps the static status
// and latency. Only resource exhaustion is returned as an error.
func (c *Crawler) escalate(ctx context.Context, page audit.Page) (audit.Page, error) {
	if c.renderer == nil || c.detector == nil || !c.detector.NeedsRender(page) {
		return page, nil
	}
	if !c.renderer.CanRender() {
		return page, nil
	}
	rendered, err := c.renderer.Render(ctx, page.URL)
	if err != nil {
		if errors.Is(err, ErrResourceExhausted) {
			return page, fmt.Errorf("render %s: %w", page.URL, err)
		}
		c.logger.Debug("render failed, keeping static page", zap.String("url", page.URL), zap.Error(err))
		return page, nil
	}
	if !rendered.Parsed() {
		return page, nil
	}
	rendered.URL = page.URL
	rendered.StatusCode = page.StatusCode
	rendered.Latency = page.Latency
	rendered.Rendered = true
	if rendered.FinalURL == "" {
		rendered.FinalURL = page.FinalURL
	}
	return rendered, nil
}

// adoptSeedRedirect widens the crawl scope to the origin the seed redirected
// to, so a site canonicalized from example.com to www.example.com is still
// crawled past its homepage. The redirect target counts as visited.
func (c *Crawler) adoptSeedRedirect(front *frontier, scope origins, page audit.Page) {
	if page.FinalURL == "" {
		return
	}
	final, err := NormalizeURL(page.FinalURL)
	if err != nil {
		return
	}
	finalURL, err := url.Parse(final)
	if err != nil {
		return
	}
	front.markSeen(final)
	if scope.contains(finalURL) {
		return
	}
	scope.add(finalURL)
	c.logger.Info("seed redirected to another origin, following it",
		zap.String("seed", page.URL),
		zap.String("origin", origin(finalURL)),
	)
}

func (c *Crawler) enqueue(front *frontier, scope origins, link string) {
	parsed, err := url.Parse(link)
	if err != nil {
		return
	}
	if reason := skipReason(link, parsed); reason != "" {
		return
	}
	normalized, err := NormalizeURL(link)
	if err != nil {
		return
	}
	target, err := url.Parse(normalized)
	if err != nil || !scope.contains(target) {
		return
	}
	front.push(normalized)
}
