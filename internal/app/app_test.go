package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/config"
	"github.com/JakeFAU/siteaudit/internal/report"
	"github.com/JakeFAU/siteaudit/internal/rules"
	"github.com/JakeFAU/siteaudit/internal/scan"
)

const catalog = `
universal:
  - {id: U-001, category: Content, check: "No leftover template text", phase: full, automated: true, weight: 5, check_fn: check_leftover_text, search_text: WhiskerFrame}
  - {id: U-002, category: SEO, check: "One H1 per page", phase: full, automated: true, weight: 3, check_fn: check_single_h1}
  - {id: U-003, category: Links, check: "No broken links", phase: full, automated: true, weight: 4, check_fn: check_broken_links}
  - {id: U-004, category: Backend, check: "Plugins up to date", phase: full, automated: true, weight: 2, check_fn: check_plugins_updated}
  - {id: U-100, category: Design, check: "Design matches brand", phase: full, automated: false, weight: 3}
`

// clinicSite serves a three page site with one dead link.
func clinicSite(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/":        `<html><head><title>Home</title></head><body><h1>Happy Paws</h1><a href="/about">About</a><a href="/contact">Contact</a></body></html>`,
		"/about":   `<html><head><title>About</title></head><body><h1>About</h1><p>WhiskerFrame template</p><a href="/gone">Old</a></body></html>`,
		"/contact": `<html><head><title>Contact</title></head><body><h1>Contact</h1></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// offlineServices answers every external service call with an outage.
func offlineServices(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	svc := offlineServices(t)
	return config.Config{
		Crawler:  config.CrawlerConfig{UserAgent: "siteaudit-test", MaxPages: 10, RequestTimeoutSeconds: 5},
		Headless: config.HeadlessConfig{Enabled: false},
		Bulk:     config.BulkConfig{Workers: 2, ProbeTimeoutSeconds: 2},
		Retry:    config.RetryConfig{MaxAttempts: 1, BaseDelayMs: 1, MaxDelayMs: 1},
		Services: config.ServicesConfig{
			PageSpeedEndpoint:    svc.URL,
			LanguageToolEndpoint: svc.URL,
		},
		Output:  config.OutputConfig{Dir: t.TempDir(), Format: config.FormatJSON},
		Metrics: config.MetricsConfig{Listen: "127.0.0.1:0"},
	}
}

func TestScanEndToEnd(t *testing.T) {
	t.Parallel()

	site := clinicSite(t)
	cfg := testConfig(t)
	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })

	cat, err := rules.Parse([]byte(catalog))
	require.NoError(t, err)
	require.NoError(t, rules.Validate(cat, a.Checks()))

	rep, err := a.NewScanner(cat).Run(ctx, scan.Request{SiteURL: site.URL, Partner: "independent", Phase: "full", MaxPages: 3})
	require.NoError(t, err)
	require.NotEmpty(t, rep.ScanID)
	require.Equal(t, 3, rep.PagesScanned)

	byID := map[string]audit.CheckResult{}
	for _, r := range rep.Results {
		byID[r.RuleID] = r
	}
	require.Equal(t, audit.StatusFail, byID["U-001"].Status)
	require.Equal(t, audit.StatusPass, byID["U-002"].Status)
	require.Equal(t, audit.StatusFail, byID["U-003"].Status)
	require.Contains(t, byID["U-003"].Details, "/gone")
	require.Equal(t, audit.StatusHumanReview, byID["U-004"].Status)
	require.Equal(t, audit.StatusHumanReview, byID["U-100"].Status)
	require.Equal(t, 91, rep.Score)

	uri, err := report.Publish(ctx, a.Store(), "", cfg.Output.Format, rep)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, filepath.FromSlash(report.ObjectName(rep, cfg.Output.Format))))
	require.NoError(t, err)
	require.Contains(t, string(data), `"score": 91`)
}

func TestMetricsListener(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })
	require.NotEmpty(t, a.MetricsAddr())

	client := &http.Client{Timeout: 2 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get(fmt.Sprintf("http://%s/healthz", a.MetricsAddr()))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewWithoutOutputKeepsStdoutOnly(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Output.Dir = ""
	cfg.Metrics.Listen = ""
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Nil(t, a.Store())
	require.Empty(t, a.MetricsAddr())
	require.NoError(t, a.Close(context.Background()))
}

func TestNewFailsOnBadMetricsAddress(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Metrics.Listen = "not-an-address"
	_, err := New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "metrics listener")
}
