package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = `
universal:
  - {id: U-001, category: Content, check: "No leftover template text", phase: [full, final], automated: true, weight: 5, check_fn: check_leftover_text, search_text: WhiskerFrame}
  - {id: U-002, category: SEO, check: "One H1 per page", phase: full, automated: true, weight: 3, check_fn: check_single_h1}
  - {id: U-100, category: Design, check: "Design matches brand", phase: final, automated: false, weight: 3}
western:
  - {id: W-001, category: Partner, check: "Western careers link", phase: final, automated: false, weight: 2}
`

// writeFixtures writes a config that disables the browser and a catalog, and
// returns their paths.
func writeFixtures(t *testing.T) (cfgPath, catalogPath string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath = filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))
	cfgPath = filepath.Join(dir, "siteaudit.yaml")
	cfg := `
crawler:
  user_agent: siteaudit-cli-test
  max_pages: 5
  rate_per_second: 0
headless:
  enabled: false
retry:
  max_attempts: 1
  base_delay_ms: 1
  max_delay_ms: 1
logging:
  level: error
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, catalogPath
}

func leftoverSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><head><title>Home</title></head><body><h1>Happy Paws</h1><p>Powered by WhiskerFrame</p></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRulesValidateBuiltInCatalog(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeFixtures(t)
	out, _, err := run(t, "--config", cfgPath, "rules", "validate")
	require.NoError(t, err)
	require.Contains(t, out, "ok")
	require.Contains(t, out, "partners:")
}

func TestRulesValidateRejectsUnknownCheck(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeFixtures(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
universal:
  - {id: X-1, category: SEO, check: "Made up", phase: full, automated: true, weight: 1, check_fn: check_does_not_exist}
`), 0o600))
	_, _, err := run(t, "--config", cfgPath, "rules", "validate", "--catalog", bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "check_does_not_exist")
}

func TestRulesListFiltersByPartnerAndPhase(t *testing.T) {
	t.Parallel()

	cfgPath, catalogPath := writeFixtures(t)

	out, _, err := run(t, "--config", cfgPath, "rules", "list", "--catalog", catalogPath)
	require.NoError(t, err)
	require.Contains(t, out, "4 rules")

	out, _, err = run(t, "--config", cfgPath, "rules", "list", "--catalog", catalogPath, "--partner", "western", "--phase", "final")
	require.NoError(t, err)
	require.Contains(t, out, "U-001")
	require.Contains(t, out, "W-001")
	require.NotContains(t, out, "U-002")
	require.Contains(t, out, "3 rules")

	_, _, err = run(t, "--config", cfgPath, "rules", "list", "--catalog", catalogPath, "--phase", "nightly")
	require.Error(t, err)
}

func TestScanWritesReport(t *testing.T) {
	t.Parallel()

	cfgPath, catalogPath := writeFixtures(t)
	site := leftoverSite(t)

	out, stderr, err := run(t, "--config", cfgPath, "scan", site.URL, "--catalog", catalogPath)
	require.NoError(t, err)
	require.Contains(t, out, `"score": 95`)
	require.Contains(t, out, `"rule_id": "U-001"`)
	require.Contains(t, stderr, "95")
}

func TestScanWritesMarkdownToFile(t *testing.T) {
	t.Parallel()

	cfgPath, catalogPath := writeFixtures(t)
	site := leftoverSite(t)
	path := filepath.Join(t.TempDir(), "report.md")

	out, _, err := run(t, "--config", cfgPath, "scan", site.URL, "--catalog", catalogPath,
		"--format", "markdown", "-o", path, "-q")
	require.NoError(t, err)
	require.Empty(t, out)

	data, err := os.ReadFile(path) // #nosec G304 -- test temp file.
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "Site QA Report"))
}

func TestScanFailUnder(t *testing.T) {
	t.Parallel()

	cfgPath, catalogPath := writeFixtures(t)
	site := leftoverSite(t)

	_, _, err := run(t, "--config", cfgPath, "scan", site.URL, "--catalog", catalogPath, "-q", "--fail-under", "100")
	var below *scoreBelowError
	require.True(t, errors.As(err, &below))
	require.Equal(t, 95, below.score)
	require.Equal(t, 100, below.threshold)
}

func TestScanRejectsBadInput(t *testing.T) {
	t.Parallel()

	cfgPath, catalogPath := writeFixtures(t)

	_, _, err := run(t, "--config", cfgPath, "scan", "https://example.test", "--catalog", catalogPath, "--phase", "nightly")
	require.Error(t, err)

	_, _, err = run(t, "--config", cfgPath, "scan", "https://example.test", "--format", "pdf")
	require.ErrorContains(t, err, "output.format")

	_, _, err = run(t, "--config", cfgPath, "scan")
	require.Error(t, err)
}

func TestRulesValidateAcceptsUnprefixedNamesAndWarns(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeFixtures(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
universal:
  - {id: LT-001, category: Content, check: "No leftover template text", phase: full, automated: true, weight: 5, check_fn: leftover_text, search_text: WhiskerFrame}
  - {id: A-1, category: SEO, check: "Pending automation", phase: full, automated: true, weight: 2}
`), 0o600))

	out, _, err := run(t, "--config", cfgPath, "rules", "validate", "--catalog", path)
	require.NoError(t, err)
	require.Contains(t, out, "warn")
	require.Contains(t, out, "A-1")
	require.Contains(t, out, "2 rules")
}
