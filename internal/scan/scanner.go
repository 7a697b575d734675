package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/checks"
	"github.com/JakeFAU/siteaudit/internal/clock/system"
	"github.com/JakeFAU/siteaudit/internal/crawler"
	"github.com/JakeFAU/siteaudit/internal/metrics"
	"github.com/JakeFAU/siteaudit/internal/progress"
	"github.com/JakeFAU/siteaudit/internal/rules"
)

// ErrInvalidRequest means the scan could not start because of its input.
var ErrInvalidRequest = errors.New("invalid scan request")

// Crawler discovers a site's pages.
type Crawler interface {
	Crawl(ctx context.Context, seed string, maxPages int) (*audit.CrawlResult, error)
}

// Catalog selects the rules for a scan.
type Catalog interface {
	ForScan(partner, phase string) []audit.Rule
}

// IDGenerator yields scan identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Emitter receives progress events. *progress.Hub satisfies it.
type Emitter interface {
	Emit(evt progress.Event)
}

// DepsFunc builds the per-scan collaborators for a normalized site URL.
type DepsFunc func(ctx context.Context, siteURL string) checks.Deps

// Request describes one scan.
type Request struct {
	SiteURL  string
	Partner  string
	Phase    string
	MaxPages int
}

// Options wires the Scanner. Crawler, Catalog and Checks are required.
type Options struct {
	Crawler  Crawler
	Catalog  Catalog
	Checks   Lookup
	Deps     DepsFunc
	IDs      IDGenerator
	Clock    Clock
	Progress Emitter
}

// Scanner crawls a site, evaluates the catalog, and scores the result.
type Scanner struct {
	opts     Options
	executor *Executor
	logger   *zap.Logger
}

// New builds a Scanner.
func New(opts Options, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = system.New()
	}
	return &Scanner{
		opts:     opts,
		executor: NewExecutor(opts.Checks, logger),
		logger:   logger.Named("scan"),
	}
}

// Run performs one scan. Errors mean the scan could not start or that the
// crawl ran out of a required resource; rule failures never surface here.
func (s *Scanner) Run(ctx context.Context, req Request) (*audit.ScanReport, error) {
	site, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	scanID := ""
	if s.opts.IDs != nil {
		if scanID, err = s.opts.IDs.NewID(); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
	}
	log := s.logger.With(zap.String("scan_id", scanID), zap.String("site", site))
	started := s.opts.Clock.Now()
	s.emit(progress.Event{ScanID: scanID, TS: started, Stage: progress.StageScanStart, Site: site})

	selected := s.opts.Catalog.ForScan(req.Partner, req.Phase)
	log.Info("scan started",
		zap.String("partner", req.Partner),
		zap.String("phase", req.Phase),
		zap.Int("rules", len(selected)),
		zap.Int("max_pages", req.MaxPages),
	)

	pages, err := s.opts.Crawler.Crawl(ctx, site, req.MaxPages)
	if err != nil {
		s.emit(progress.Event{ScanID: scanID, TS: s.opts.Clock.Now(), Stage: progress.StageScanError, Site: site, Note: err.Error()})
		return nil, fmt.Errorf("crawl %s: %w", site, err)
	}
	s.emit(progress.Event{ScanID: scanID, TS: s.opts.Clock.Now(), Stage: progress.StageCrawlDone, Site: site, Pages: int64(pages.Len())})

	var deps checks.Deps
	if s.opts.Deps != nil {
		deps = s.opts.Deps(ctx, site)
	}
	if deps.Logger == nil {
		deps.Logger = log
	}
	results := s.executor.Execute(ctx, pages, selected, deps)

	finished := s.opts.Clock.Now()
	report := &audit.ScanReport{
		ScanID:       scanID,
		SiteURL:      site,
		Partner:      req.Partner,
		Phase:        req.Phase,
		ScanTime:     started,
		Duration:     finished.Sub(started),
		PagesScanned: pages.Len(),
		Results:      results,
	}
	report.Tally()
	metrics.ObserveScan(report.Score, report.Duration)
	s.emit(progress.Event{
		ScanID: scanID,
		TS:     finished,
		Stage:  progress.StageScanDone,
		Site:   site,
		Pages:  int64(report.PagesScanned),
		Checks: int64(report.TotalChecks),
		Score:  report.Score,
		Dur:    report.Duration,
	})
	log.Info("scan finished",
		zap.Int("pages", report.PagesScanned),
		zap.Int("checks", report.TotalChecks),
		zap.Int("failed", report.Failed),
		zap.Int("score", report.Score),
		zap.Duration("elapsed", report.Duration),
	)
	return report, nil
}

func (s *Scanner) validate(req Request) (string, error) {
	site, err := crawler.NormalizeSite(req.SiteURL)
	if err != nil {
		return "", fmt.Errorf("%w: site %q: %v", ErrInvalidRequest, req.SiteURL, err)
	}
	if !rules.ValidPhase(req.Phase) {
		return "", fmt.Errorf("%w: unknown phase %q", ErrInvalidRequest, req.Phase)
	}
	if req.MaxPages <= 0 {
		return "", fmt.Errorf("%w: max pages must be positive, got %d", ErrInvalidRequest, req.MaxPages)
	}
	if s.opts.Crawler == nil || s.opts.Catalog == nil || s.opts.Checks == nil {
		return "", errors.New("scanner is missing a crawler, catalog, or check registry")
	}
	return site, nil
}

func (s *Scanner) emit(evt progress.Event) {
	if s.opts.Progress != nil {
		s.opts.Progress.Emit(evt)
	}
}
