package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "error", StatusClass(0))
	require.Equal(t, "2xx", StatusClass(204))
	require.Equal(t, "4xx", StatusClass(403))
}

func TestObserveHelpers(t *testing.T) {
	ObserveCrawl("https://count.test/a", 200, 10)
	ObserveCheck("FAIL")
	ObserveRetry("pagespeed")

	require.InDelta(t, 1, testutil.ToFloat64(pagesTotal.WithLabelValues("count.test", "2xx")), 0)
	require.InDelta(t, 10, testutil.ToFloat64(bytesTotal.WithLabelValues("count.test")), 0)
	require.GreaterOrEqual(t, testutil.ToFloat64(checksTotal.WithLabelValues("FAIL")), float64(1))
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), float64(2))
}
