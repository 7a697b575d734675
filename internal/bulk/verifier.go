// Package bulk validates many independent external references with a small
// fixed pool of probing workers.
package bulk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/siteaudit/internal/metrics"
)

// Default pool settings.
const (
	DefaultWorkers = 5
	DefaultTimeout = 10 * time.Second
)

// Target is a resource URL and the page it was found on.
type Target struct {
	URL      string
	Referrer string
}

// Failure is a target whose probe did not succeed. StatusCode is 0 for
// transport errors.
type Failure struct {
	URL        string
	Referrer   string
	StatusCode int
	Err        string
}

// Outcome groups probe failures. Forbidden holds 403 responses, which are
// advisory because the resource usually works in a real browser.
type Outcome struct {
	Unique    int
	Checked   int
	Broken    []Failure
	Forbidden []Failure
}

// Prober issues a cheap existence check and returns the final status code.
type Prober interface {
	Probe(ctx context.Context, url string) (int, error)
}

// Config tunes a Verifier.
type Config struct {
	Workers int
	Timeout time.Duration
}

// Verifier fans probes out across a fixed worker pool. It holds no state
// between calls.
type Verifier struct {
	prober  Prober
	workers int
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Verifier.
func New(prober Prober, cfg Config, logger *zap.Logger) *Verifier {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		prober:  prober,
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		logger:  logger.Named("bulk"),
	}
}

// Verify de-duplicates targets by URL, keeps at most limit of them, probes
// each one, and returns failures sorted by URL. kind labels metrics.
func (v *Verifier) Verify(ctx context.Context, kind string, targets []Target, limit int) Outcome {
	unique := Dedupe(targets)
	out := Outcome{Unique: len(unique)}
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	out.Checked = len(unique)
	if len(unique) == 0 {
		return out
	}

	jobs := make(chan Target, len(unique))
	for _, t := range unique {
		jobs <- t
	}
	close(jobs)

	var (
		mu        sync.Mutex
		broken    []Failure
		forbidden []Failure
	)
	g, gctx := errgroup.WithContext(ctx)
	workers := min(v.workers, len(unique))
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for t := range jobs {
				f, ok := v.probe(gctx, t)
				if ok {
					metrics.ObserveProbe(kind, "ok")
					continue
				}
				mu.Lock()
				if f.StatusCode == http.StatusForbidden {
					forbidden = append(forbidden, f)
				} else {
					broken = append(broken, f)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	sortFailures(broken)
	sortFailures(forbidden)
	for range broken {
		metrics.ObserveProbe(kind, "broken")
	}
	for range forbidden {
		metrics.ObserveProbe(kind, "forbidden")
	}
	out.Broken = broken
	out.Forbidden = forbidden
	v.logger.Debug("bulk verification finished",
		zap.String("kind", kind),
		zap.Int("checked", out.Checked),
		zap.Int("broken", len(broken)),
		zap.Int("forbidden", len(forbidden)),
	)
	return out
}

func (v *Verifier) probe(ctx context.Context, t Target) (Failure, bool) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	status, err := v.prober.Probe(ctx, t.URL)
	if err != nil {
		return Failure{URL: t.URL, Referrer: t.Referrer, Err: err.Error()}, false
	}
	if status >= 400 {
		return Failure{URL: t.URL, Referrer: t.Referrer, StatusCode: status}, false
	}
	return Failure{}, true
}

// Dedupe drops repeated URLs, keeping the first referrer seen.
func Dedupe(targets []Target) []Target {
	seen := make(map[string]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t.URL]; ok {
			continue
		}
		seen[t.URL] = struct{}{}
		out = append(out, t)
	}
	return out
}

func sortFailures(fs []Failure) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].URL < fs[j].URL })
}

// HTTPProber probes with HEAD and falls back to GET when HEAD is refused.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber builds a prober that follows redirects.
func NewHTTPProber(client *http.Client, userAgent string) *HTTPProber {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProber{client: client, userAgent: userAgent}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, url string) (int, error) {
	status, err := p.do(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		return p.do(ctx, http.MethodGet, url)
	}
	return status, nil
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("new %s request: %w", method, err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
