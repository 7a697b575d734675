// Package app builds the long-lived services of a siteaudit run from config
// and wires a fresh crawler and check dependencies into every scan.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/bulk"
	"github.com/JakeFAU/siteaudit/internal/checks"
	"github.com/JakeFAU/siteaudit/internal/clock/system"
	"github.com/JakeFAU/siteaudit/internal/config"
	"github.com/JakeFAU/siteaudit/internal/crawler"
	collyfetcher "github.com/JakeFAU/siteaudit/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/siteaudit/internal/fetcher/headless"
	"github.com/JakeFAU/siteaudit/internal/headless/detector"
	"github.com/JakeFAU/siteaudit/internal/id/uuid"
	"github.com/JakeFAU/siteaudit/internal/metrics"
	"github.com/JakeFAU/siteaudit/internal/policy/ratelimit"
	"github.com/JakeFAU/siteaudit/internal/progress"
	progresssinks "github.com/JakeFAU/siteaudit/internal/progress/sinks"
	"github.com/JakeFAU/siteaudit/internal/resilient"
	"github.com/JakeFAU/siteaudit/internal/scan"
	"github.com/JakeFAU/siteaudit/internal/services/languagetool"
	"github.com/JakeFAU/siteaudit/internal/services/pagespeed"
	"github.com/JakeFAU/siteaudit/internal/services/sitemeta"
	"github.com/JakeFAU/siteaudit/internal/storage"
	gcsstorage "github.com/JakeFAU/siteaudit/internal/storage/gcs"
	localstorage "github.com/JakeFAU/siteaudit/internal/storage/local"
)

// App holds the services shared by every scan of one process.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.BlobStore
	hub      *progress.Hub
	checks   *checks.Registry
	metrics  *http.Server
	addr     string
	closers  []func() error
	services *http.Client
}

// New initializes the report store, the progress hub, and the optional
// metrics listener. It fails fast when a configured sink is unusable.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{
		cfg:      cfg,
		logger:   logger,
		checks:   checks.Default(),
		services: &http.Client{Timeout: 90 * time.Second},
	}

	switch {
	case cfg.Output.GCSBucket != "":
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: cfg.Output.GCSBucket}, logger)
		if err != nil {
			return nil, fmt.Errorf("init report store: %w", err)
		}
		logger.Info("publishing reports to gcs", zap.String("bucket", cfg.Output.GCSBucket))
		a.store = store
		a.closers = append(a.closers, store.Close)
	case cfg.Output.Dir != "":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Output.Dir})
		if err != nil {
			return nil, fmt.Errorf("init report store: %w", err)
		}
		logger.Info("writing reports to disk", zap.String("dir", cfg.Output.Dir))
		a.store = store
	}

	a.hub = progress.NewHub(progress.Config{Logger: logger}, progresssinks.NewLogSink(logger))

	if cfg.Metrics.Listen != "" {
		if err := a.serveMetrics(cfg.Metrics.Listen); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Store returns the report store, or nil when reports only go to stdout.
func (a *App) Store() storage.BlobStore { return a.store }

// Checks returns the registry of built-in check functions.
func (a *App) Checks() *checks.Registry { return a.checks }

// NewScanner wires a scanner for catalog. Each call to Crawl builds its own
// crawler because the renderer is released when a crawl ends.
func (a *App) NewScanner(catalog scan.Catalog) *scan.Scanner {
	return scan.New(scan.Options{
		Crawler:  crawlerFunc(a.crawl),
		Catalog:  catalog,
		Checks:   a.checks,
		Deps:     a.deps,
		IDs:      uuid.New(),
		Clock:    system.New(),
		Progress: a.hub,
	}, a.logger)
}

type crawlerFunc func(ctx context.Context, seed string, maxPages int) (*audit.CrawlResult, error)

func (f crawlerFunc) Crawl(ctx context.Context, seed string, maxPages int) (*audit.CrawlResult, error) {
	return f(ctx, seed, maxPages)
}

func (a *App) crawl(ctx context.Context, seed string, maxPages int) (*audit.CrawlResult, error) {
	cfg := a.cfg
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, a.logger)

	var renderer audit.Renderer = headlessfetcher.NewNoop()
	if cfg.Headless.Enabled {
		renderer = headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			ExecPath:          cfg.Headless.ExecPath,
		}, a.logger)
	}

	c := crawler.New(fetcher, crawler.Options{
		Renderer: renderer,
		Detector: detector.NewHeuristic(cfg.Headless.MinMarkupBytes, cfg.Headless.MaxVisibleText, cfg.Headless.AlwaysRender),
		Robots:   crawler.NewRobotsPolicy(cfg.Crawler.RespectRobots, cfg.Crawler.UserAgent, a.logger),
		Pacer:    ratelimit.New(ratelimit.Config{DefaultRPS: cfg.Crawler.RatePerSecond, DefaultBurst: 1}),
	}, a.logger)
	return c.Crawl(ctx, seed, maxPages)
}

// deps builds the per-scan collaborators. The PageSpeed cache and the
// metadata client live for one scan only.
func (a *App) deps(ctx context.Context, siteURL string) checks.Deps {
	cfg := a.cfg
	base, maxDelay := cfg.RetryDelays()
	policy := resilient.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: base, MaxDelay: maxDelay}

	prober := bulk.NewHTTPProber(&http.Client{Timeout: cfg.ProbeTimeout()}, cfg.Crawler.UserAgent)
	meta := sitemeta.New(siteURL, sitemeta.Config{
		Path:   cfg.Services.SiteMetaPath,
		APIKey: cfg.Services.SiteMetaAPIKey,
	}, a.services, policy, a.logger)
	if !meta.Available(ctx) {
		a.logger.Info("backend metadata unavailable, backend checks will need manual review", zap.String("site", siteURL))
	}

	return checks.Deps{
		Verifier: bulk.New(prober, bulk.Config{Workers: cfg.Bulk.Workers, Timeout: cfg.ProbeTimeout()}, a.logger),
		PageSpeed: pagespeed.New(pagespeed.Config{
			Endpoint: cfg.Services.PageSpeedEndpoint,
			APIKey:   cfg.Services.PageSpeedAPIKey,
		}, a.services, policy, a.logger),
		Grammar:  languagetool.New(languagetool.Config{Endpoint: cfg.Services.LanguageToolEndpoint}, a.services, policy, a.logger),
		SiteMeta: meta,
	}
}

func (a *App) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	a.addr = ln.Addr().String()
	a.metrics = &http.Server{
		Handler:           metrics.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics server started", zap.String("addr", a.addr))
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (a *App) MetricsAddr() string {
	return a.addr
}

// Close flushes progress events and releases every service.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
