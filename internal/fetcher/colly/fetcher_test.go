package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title> Home </title></head><body>
			<a href="/about">About</a><a href="https://other.test/x">X</a><a href="contact#form">C</a>
		</body></html>`))
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>" + r.Header.Get("User-Agent") + "|" + r.Header.Get("X-Trace") + "</body></html>"))
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><head><title>Not Found</title></head><body>gone</body></html>"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchParsesTitleAndAbsoluteLinks(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	f := New(Config{UserAgent: "siteaudit-test"}, nil)
	page := f.Fetch(context.Background(), srv.URL+"/")

	require.Equal(t, http.StatusOK, page.StatusCode)
	require.True(t, page.Parsed())
	require.Empty(t, page.Error)
	require.Equal(t, "Home", page.Title)
	require.Equal(t, []string{
		srv.URL + "/about",
		"https://other.test/x",
		srv.URL + "/contact#form",
	}, page.Links)
	require.Positive(t, page.Latency)
}

func TestFetchSendsUserAgentAndHeaders(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	f := New(Config{UserAgent: "siteaudit-test", Headers: http.Header{"X-Trace": {"yes"}}}, nil)
	page := f.Fetch(context.Background(), srv.URL+"/ua")
	require.Contains(t, page.Body, "siteaudit-test|yes")
}

func TestFetchKeepsErrorStatusPages(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := New(Config{}, nil).Fetch(context.Background(), srv.URL+"/missing")
	require.Equal(t, http.StatusNotFound, page.StatusCode)
	require.True(t, page.Parsed())
	require.Equal(t, "Not Found", page.Title)
}

func TestFetchMarksNonHTML(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := New(Config{}, nil).Fetch(context.Background(), srv.URL+"/file.pdf")
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.False(t, page.Parsed())
	require.Contains(t, page.Error, "non-HTML")
}

func TestFetchNeverErrorsOnTransportFailure(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	f := New(Config{Timeout: 100 * time.Millisecond}, nil)

	page := f.Fetch(context.Background(), srv.URL+"/slow")
	require.Zero(t, page.StatusCode)
	require.False(t, page.Parsed())
	require.NotEmpty(t, page.Error)

	page = f.Fetch(context.Background(), "http://127.0.0.1:1/")
	require.Zero(t, page.StatusCode)
	require.NotEmpty(t, page.Error)
}

func TestFetchHonorsCancellation(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := New(Config{}, nil).Fetch(ctx, srv.URL+"/slow")
	require.Zero(t, page.StatusCode)
	require.Contains(t, page.Error, "canceled")
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{Headers: http.Header{"X-Trace": {"yes"}}}, nil)
	var resp response
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, &resp)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"Content-Type": {"text/html"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com/final")},
	})
	require.Equal(t, http.StatusCreated, resp.status)
	require.Equal(t, "body", string(resp.body))
	require.Equal(t, "https://example.com/final", resp.finalURL)

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, resp.err, "boom")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
