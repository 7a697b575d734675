package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports, drops the query
// and fragment, and ensures a non-empty path.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// NormalizeSite turns user input such as "example.com" into a crawlable seed
// URL, defaulting to https.
func NormalizeSite(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("site url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(normalized)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return normalized, nil
}

var skippedExtensions = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".ico": {}, ".css": {}, ".js": {}, ".zip": {}, ".gz": {},
	".rar": {}, ".mp4": {}, ".mp3": {}, ".mov": {}, ".avi": {}, ".woff": {},
	".woff2": {}, ".ttf": {}, ".eot": {}, ".otf": {},
}

var adminPaths = []string{
	"/wp-admin", "/wp-login", "/wp-json", "/feed", "/xmlrpc",
	"/wp-content/", "/wp-includes/",
}

// skipReason reports why a discovered link is not a crawlable page, or ""
// when it is. raw is the link as discovered, before normalization.
func skipReason(raw string, u *url.URL) string {
	if strings.HasPrefix(strings.TrimSpace(raw), "#") {
		return "fragment"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "scheme"
	}
	if _, ok := skippedExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
		return "extension"
	}
	if u.Query().Has("replytocom") {
		return "admin"
	}
	lower := strings.ToLower(u.Path)
	for _, pattern := range adminPaths {
		if adminPathMatch(lower, pattern) {
			return "admin"
		}
	}
	return ""
}

// adminPathMatch matches pattern as a path segment prefix anywhere in p, so
// "/feed" catches "/blog/feed/" but not "/feeding-guide".
func adminPathMatch(p, pattern string) bool {
	for i := strings.Index(p, pattern); i >= 0; {
		end := i + len(pattern)
		if strings.HasSuffix(pattern, "/") || end == len(p) || p[end] == '/' || p[end] == '.' || p[end] == '-' {
			return true
		}
		next := strings.Index(p[end:], pattern)
		if next < 0 {
			return false
		}
		i = end + next
	}
	return false
}

// origin is the scheme and host of u, lowercased. Default ports are expected
// to have been stripped by NormalizeURL.
func origin(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// origins is the set of scheme+host pairs the crawl stays inside: the seed's,
// plus wherever the seed itself redirected.
type origins map[string]struct{}

func (o origins) add(u *url.URL) {
	if key := origin(u); key != "" {
		o[key] = struct{}{}
	}
}

func (o origins) contains(u *url.URL) bool {
	_, ok := o[origin(u)]
	return ok
}
