// Package audit defines the shared domain types passed between the crawl,
// check, and scoring stages of a site scan.
package audit

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched URL. Pages are created once per normalized URL and are
// treated as read-only after the crawler stores them.
type Page struct {
	URL string `json:"url"`
	// FinalURL is where URL redirected to, when it differs.
	FinalURL   string            `json:"final_url,omitempty"`
	StatusCode int               `json:"status_code"`
	Body       string            `json:"-"`
	Doc        *goquery.Document `json:"-"`
	Title      string            `json:"title,omitempty"`
	Links      []string          `json:"links,omitempty"`
	Latency    time.Duration     `json:"latency"`
	Rendered   bool              `json:"rendered"`
	Error      string            `json:"error,omitempty"`
}

// Parsed reports whether the page produced an HTML document.
func (p Page) Parsed() bool {
	return p.Doc != nil
}

// Path returns the URL path of the page, or "" when the URL is invalid.
func (p Page) Path() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// IsHome reports whether the page sits at the site root.
func (p Page) IsHome() bool {
	u, err := url.Parse(p.URL)
	if err != nil {
		return false
	}
	return u.Path == "" || u.Path == "/"
}

// URLContains matches a case-insensitive fragment against the page URL.
func (p Page) URLContains(fragments ...string) bool {
	lower := strings.ToLower(p.URL)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// Fetcher retrieves a single URL. Implementations never return transport
// failures as errors; they are carried on the returned Page instead.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Page
}

// ErrResourceExhausted marks a failure to allocate a resource the scan cannot
// run without, such as a browser process that exists but will not start.
var ErrResourceExhausted = errors.New("resource exhausted")

// Renderer is an optional capability that materializes JavaScript-driven
// pages in a real browser. Render errors wrapping ErrResourceExhausted abort
// the crawl; any other error leaves the static page in place.
type Renderer interface {
	CanRender() bool
	Render(ctx context.Context, url string) (Page, error)
	Close() error
}
