// Package collyfetcher implements the static page Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headers   http.Header
}

// Fetcher implements audit.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// response is what the hooks capture for one visit.
type response struct {
	status      int
	finalURL    string
	contentType string
	body        []byte
	err         error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger.Named("fetcher"),
	}
}

// Fetch retrieves url. Network failures, timeouts, and non-HTML content are
// reported on the returned Page and never as errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) audit.Page {
	start := time.Now()
	var resp response
	collector := f.buildCollector()
	f.configureCollectorHooks(collector, &resp)

	if err := f.runCollector(ctx, collector, url); err != nil {
		if ctx.Err() != nil {
			// The visit goroutine may still be writing resp.
			return audit.Page{URL: url, Latency: time.Since(start), Error: err.Error()}
		}
		if resp.err == nil {
			resp.err = err
		}
	}
	return f.toPage(url, resp, time.Since(start))
}

func (f *Fetcher) toPage(url string, resp response, latency time.Duration) audit.Page {
	if resp.status == 0 {
		msg := "no response"
		if resp.err != nil {
			msg = resp.err.Error()
		}
		f.logger.Debug("fetch failed", zap.String("url", url), zap.String("error", msg))
		return audit.Page{URL: url, Latency: latency, Error: msg}
	}
	if !isHTML(resp.contentType) {
		return audit.Page{
			URL:        url,
			StatusCode: resp.status,
			Latency:    latency,
			Error:      fmt.Sprintf("non-HTML content type %q", resp.contentType),
		}
	}
	base := resp.finalURL
	if base == "" {
		base = url
	}
	return audit.NewPage(url, base, resp.status, resp.body, latency)
}

func (f *Fetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	transport := f.transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	collector.WithTransport(transport)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, resp *response) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		resp.status = r.StatusCode
		resp.body = append([]byte(nil), r.Body...)
		if r.Headers != nil {
			resp.contentType = r.Headers.Get("Content-Type")
		}
		if r.Request != nil && r.Request.URL != nil {
			resp.finalURL = r.Request.URL.String()
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		resp.err = err
		if r != nil && r.StatusCode > 0 && resp.status == 0 {
			resp.status = r.StatusCode
		}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	if f.cfg.Headers == nil {
		return
	}
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
