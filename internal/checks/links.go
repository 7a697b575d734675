package checks

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/bulk"
	"github.com/JakeFAU/siteaudit/internal/crawler"
)

func registerLinks(r *Registry) {
	r.Register("check_broken_links", brokenLinks)
	r.Register("check_nav_links", navLinks)
	r.Register("check_social_links_footer_only", socialLinksFooterOnly)
	r.Register("check_logo_links_home", logoLinksHome)
	r.Register("check_map_iframe", mapIframe)
}

const (
	linkProbeLimit   = 100
	brokenLinkDetail = 8
	forbiddenDetail  = 5
)

func nonNavigable(href string) bool {
	return href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "javascript:")
}

func linkTargets(pages *audit.CrawlResult) []bulk.Target {
	var targets []bulk.Target
	for _, p := range pages.Parsed() {
		for _, href := range hrefs(p.Doc.Selection) {
			if nonNavigable(href) {
				continue
			}
			if abs, ok := resolve(p.URL, href); ok {
				targets = append(targets, bulk.Target{URL: abs, Referrer: p.URL})
			}
		}
	}
	return targets
}

// forbiddenWarning reports 403 responses as an advisory "-W" result. Such
// resources usually block automated clients but load in a browser.
func forbiddenWarning(rule audit.Rule, kind string, forbidden []bulk.Failure) audit.CheckResult {
	lines := make([]string, 0, forbiddenDetail)
	for i, f := range forbidden {
		if i == forbiddenDetail {
			break
		}
		lines = append(lines, fmt.Sprintf("%s found on: %s", f.URL, f.Referrer))
	}
	res := audit.Warn(rule, "%d %s(s) returned 403 Forbidden (verify manually in browser):\n%s",
		len(forbidden), kind, strings.Join(lines, "\n"))
	return res.WithSuffix("-W", fmt.Sprintf("Some %ss returned 403 (may block automated checks but work in browsers)", kind))
}

func brokenLinks(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	if in.Deps.Verifier == nil {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Link verification unavailable. Check links manually.")}, nil
	}
	out := in.Deps.Verifier.Verify(ctx, "link", linkTargets(in.Pages), in.Rule.Int("probe_limit", linkProbeLimit))
	var results []audit.CheckResult
	if len(out.Broken) > 0 {
		lines := make([]string, 0, brokenLinkDetail)
		for i, f := range out.Broken {
			if i == brokenLinkDetail {
				break
			}
			lines = append(lines, fmt.Sprintf("%s (status %d) found on: %s", f.URL, f.StatusCode, f.Referrer))
		}
		results = append(results, audit.Fail(in.Rule, "%d broken link(s):\n%s", len(out.Broken), strings.Join(lines, "\n")))
	} else {
		results = append(results, audit.Pass(in.Rule, "All %d links valid", out.Unique))
	}
	if len(out.Forbidden) > 0 {
		results = append(results, forbiddenWarning(in.Rule, "link", out.Forbidden))
	}
	return results, nil
}

// navLinks checks the first navigation menu against the crawl: a menu
// target that was crawled with an error status is broken.
func navLinks(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var broken []string
	for _, p := range in.Pages.Parsed() {
		nav := navOf(p.Doc)
		if nav.Length() == 0 {
			continue
		}
		nav.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if nonNavigable(strings.TrimSpace(href)) {
				return
			}
			abs, ok := resolve(p.URL, href)
			if !ok {
				return
			}
			target, ok := in.Pages.Get(abs)
			if !ok {
				if norm, err := crawler.NormalizeURL(abs); err == nil {
					target, ok = in.Pages.Get(norm)
				}
			}
			if ok && target.StatusCode >= 400 {
				broken = append(broken, fmt.Sprintf("%q -> %s", textOf(a), abs))
			}
		})
		break
	}
	if len(broken) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "Broken nav links: %s", strings.Join(firstN(broken, 5), "; "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "Navigation links resolve correctly")}, nil
}

var socialDomains = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com",
	"youtube.com", "linkedin.com", "tiktok.com",
}

func socialDomain(href string) string {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(href)))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	for _, d := range socialDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d
		}
	}
	return ""
}

func socialLinksFooterOnly(_ context.Context, in Input) ([]audit.CheckResult, error) {
	violations := make(map[string]struct{})
	pagesHit := make(map[string]struct{})
	for _, p := range in.Pages.Parsed() {
		top := p.Doc.Find("header").First()
		if top.Length() == 0 {
			top = p.Doc.Find("nav").First()
		}
		page := strings.TrimRight(p.URL, "/")
		for _, href := range hrefs(top) {
			if d := socialDomain(href); d != "" {
				violations[fmt.Sprintf("%s found in header/nav on %s", d, page)] = struct{}{}
				pagesHit[page] = struct{}{}
			}
		}
	}
	if len(violations) > 0 {
		lines := make([]string, 0, len(violations))
		for v := range violations {
			lines = append(lines, v)
		}
		sort.Strings(lines)
		return []audit.CheckResult{audit.Fail(in.Rule, "Social links found outside footer (%d pages)\n%s", len(pagesHit), strings.Join(lines, "\n"))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "Social links correctly placed in footer only")}, nil
}

func logoLinksHome(_ context.Context, in Input) ([]audit.CheckResult, error) {
	seed, err := url.Parse(in.Pages.Seed())
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for _, p := range in.Pages.Parsed() {
		header := headerOf(p.Doc)
		if header.Length() == 0 {
			continue
		}
		home := false
		header.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if a.Find("img").Length() == 0 {
				return true
			}
			href, _ := a.Attr("href")
			u, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return true
			}
			home = strings.TrimRight(u.Path, "/") == "" && (u.Host == "" || strings.EqualFold(u.Host, seed.Host))
			return !home
		})
		if home {
			return []audit.CheckResult{audit.Pass(in.Rule, "Logo links to homepage")}, nil
		}
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "Could not confirm logo links to homepage")}, nil
}

// mapIframe fails when an embedded map shows the business listing with its
// reviews instead of a plain location.
func mapIframe(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Parsed() {
		hit := false
		p.Doc.Find("iframe").EachWithBreak(func(_ int, f *goquery.Selection) bool {
			src := attrLower(f, "src")
			hit = strings.Contains(src, "google.com/maps") && strings.Contains(src, "reviews")
			return !hit
		})
		if hit {
			return []audit.CheckResult{audit.Fail(in.Rule, "Map iframe may include GMB reviews on %s", p.URL)}, nil
		}
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "Map iframes appear to use location (not GMB listing)")}, nil
}
