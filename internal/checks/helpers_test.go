package checks

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/bulk"
	"github.com/JakeFAU/siteaudit/internal/services/languagetool"
	"github.com/JakeFAU/siteaudit/internal/services/pagespeed"
	"github.com/JakeFAU/siteaudit/internal/services/sitemeta"
)

const seed = "https://clinic.test/"

type fixturePage struct {
	url  string
	html string
}

// site builds a crawl result in the given order.
func site(t *testing.T, pages ...fixturePage) *audit.CrawlResult {
	t.Helper()
	res := audit.NewCrawlResult(seed)
	for _, p := range pages {
		page := audit.NewPage(p.url, p.url, http.StatusOK, []byte(p.html), 0)
		require.True(t, page.Parsed(), p.url)
		res.Add(page)
	}
	return res
}

func rule(id string, params map[string]any) audit.Rule {
	return audit.Rule{
		ID:        id,
		Category:  "Test",
		Check:     "check under test",
		Phases:    audit.StringList{"full"},
		Automated: true,
		Weight:    5,
		Params:    params,
	}
}

func run(t *testing.T, fn Func, r audit.Rule, pages *audit.CrawlResult, deps Deps) []audit.CheckResult {
	t.Helper()
	results, err := fn(context.Background(), Input{Pages: pages, Rule: r, Deps: deps})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	return results
}

func single(t *testing.T, fn Func, r audit.Rule, pages *audit.CrawlResult, deps Deps) audit.CheckResult {
	t.Helper()
	results := run(t, fn, r, pages, deps)
	require.Len(t, results, 1)
	return results[0]
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, kind string, targets []bulk.Target, limit int) bulk.Outcome {
	args := m.Called(ctx, kind, targets, limit)
	return args.Get(0).(bulk.Outcome)
}

type fakePageSpeed struct {
	result *pagespeed.Result
	urls   []string
}

func (f *fakePageSpeed) Analyze(_ context.Context, pageURL string) *pagespeed.Result {
	f.urls = append(f.urls, pageURL)
	return f.result
}

func psiResult(t *testing.T, raw string) *pagespeed.Result {
	t.Helper()
	var res pagespeed.Result
	require.NoError(t, json.Unmarshal([]byte(raw), &res))
	return &res
}

type fakeGrammar struct {
	matches []languagetool.Match
	err     error
	calls   int
}

func (f *fakeGrammar) Check(context.Context, string) ([]languagetool.Match, error) {
	f.calls++
	return f.matches, f.err
}

func matches(t *testing.T, raw string) []languagetool.Match {
	t.Helper()
	var out []languagetool.Match
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

type fakeSiteMeta struct {
	data *sitemeta.SiteData
	err  error
}

func (f fakeSiteMeta) Data(context.Context) (*sitemeta.SiteData, error) {
	return f.data, f.err
}

func siteMeta(t *testing.T, raw string) fakeSiteMeta {
	t.Helper()
	var data sitemeta.SiteData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return fakeSiteMeta{data: &data}
}
