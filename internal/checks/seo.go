package checks

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

func registerSEO(r *Registry) {
	r.Register("check_single_h1", singleH1)
	r.Register("check_meta_titles", metaTitles)
	r.Register("check_meta_descriptions", metaDescriptions)
	r.Register("check_meta_title_quality", metaTitleQuality)
	r.Register("check_open_graph", openGraph)
	r.Register("check_featured_images", featuredImages)
	r.Register("check_favicon", favicon)
	r.Register("check_heading_structure", headingStructure)
	r.Register("check_h1_no_welcome", h1NoWelcome)
}

func singleH1(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var violations []string
	pages := in.Pages.Parsed()
	for _, p := range pages {
		if n := p.Doc.Find("h1").Length(); n != 1 {
			violations = append(violations, fmt.Sprintf("%s has %d H1(s)", p.URL, n))
		}
	}
	if len(violations) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "%d page(s) with incorrect H1 count: %s",
			len(violations), strings.Join(firstN(violations, 5), "; "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All %d pages have exactly one H1", len(pages))}, nil
}

func metaTitles(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var missing []string
	for _, p := range in.Pages.Parsed() {
		if textOf(p.Doc.Find("title").First()) == "" {
			missing = append(missing, p.URL)
		}
	}
	if len(missing) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "%d page(s) missing meta title: %s", len(missing), joinFirst(missing, 3))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All pages have meta titles")}, nil
}

func metaContent(sel *goquery.Selection, query string) string {
	v, _ := sel.Find(query).First().Attr("content")
	return strings.TrimSpace(v)
}

func metaDescriptions(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var missing []string
	for _, p := range in.Pages.Parsed() {
		if metaContent(p.Doc.Selection, `meta[name="description"]`) == "" {
			missing = append(missing, p.URL)
		}
	}
	if len(missing) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "%d page(s) missing meta description: %s", len(missing), joinFirst(missing, 3))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All pages have meta descriptions")}, nil
}

const (
	titleMinLen = 20
	titleMaxLen = 70
)

func metaTitleQuality(_ context.Context, in Input) ([]audit.CheckResult, error) {
	first := make(map[string]string)
	var issues []string
	for _, p := range in.Pages.Parsed() {
		tag := p.Doc.Find("title").First()
		if tag.Length() == 0 {
			continue
		}
		title := textOf(tag)
		if prev, dup := first[title]; dup {
			issues = append(issues, fmt.Sprintf("Duplicate title '%s' on %s and %s", truncate(title, 50), p.URL, prev))
		} else {
			first[title] = p.URL
		}
		switch n := utf8.RuneCountInString(title); {
		case n < titleMinLen:
			issues = append(issues, fmt.Sprintf("Title too short on %s: '%s'", p.URL, title))
		case n > titleMaxLen:
			issues = append(issues, fmt.Sprintf("Title too long on %s (%d chars)", p.URL, n))
		}
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "%d title issue(s):\n%s", len(issues), strings.Join(firstN(issues, 5), "\n"))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All %d page titles are unique and appropriate length.", len(first))}, nil
}

var openGraphTags = []string{"og:title", "og:description", "og:image"}

// openGraph warns about pages missing social sharing tags and fails once
// more than two pages are affected.
func openGraph(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var missing []string
	pages := in.Pages.Parsed()
	for _, p := range pages {
		head := p.Doc.Find("head").First()
		if head.Length() == 0 {
			missing = append(missing, p.URL+": no <head> tag")
			continue
		}
		var tags []string
		for _, tag := range openGraphTags {
			if metaContent(head, fmt.Sprintf(`meta[property=%q]`, tag)) == "" {
				tags = append(tags, tag)
			}
		}
		if len(tags) > 0 {
			missing = append(missing, fmt.Sprintf("%s: missing %s", p.URL, strings.Join(tags, ", ")))
		}
	}
	if len(missing) == 0 {
		return []audit.CheckResult{audit.Pass(in.Rule, "All %d pages have Open Graph meta tags", len(pages))}, nil
	}
	if len(missing) > 2 {
		return []audit.CheckResult{audit.Fail(in.Rule, "%d page(s) missing Open Graph tags:\n%s", len(missing), strings.Join(missing, "\n"))}, nil
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "%d page(s) missing Open Graph tags:\n%s", len(missing), strings.Join(missing, "\n"))}, nil
}

// featuredImages uses og:image as a proxy for a post's featured image.
func featuredImages(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var missing []string
	for _, p := range in.Pages.Parsed() {
		if metaContent(p.Doc.Selection, `meta[property="og:image"]`) == "" {
			missing = append(missing, p.URL)
		}
	}
	if len(missing) > 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "%d page(s) missing OG image (featured image proxy): %s", len(missing), joinFirst(missing, 3))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All pages have OG images set")}, nil
}

func favicon(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Parsed() {
		if p.Doc.Find(`link[rel*="icon"]`).Length() > 0 {
			return []audit.CheckResult{audit.Pass(in.Rule, "Favicon found")}, nil
		}
	}
	return []audit.CheckResult{audit.Fail(in.Rule, "No favicon link found in page head")}, nil
}

func homePages(pages *audit.CrawlResult) []audit.Page {
	var out []audit.Page
	for _, p := range pages.Parsed() {
		if p.IsHome() {
			out = append(out, p)
		}
	}
	return out
}

func headingStructure(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range homePages(in.Pages) {
		h1 := p.Doc.Find("h1").First()
		h2 := p.Doc.Find("h2").First()
		if h1.Length() == 0 || h2.Length() == 0 {
			continue
		}
		h1Text, h2Text := textOf(h1), textOf(h2)
		if utf8.RuneCountInString(h1Text) < 100 && utf8.RuneCountInString(h2Text) > 20 {
			return []audit.CheckResult{audit.Pass(in.Rule, "H1: '%s...', H2 present with content.", truncate(h1Text, 50))}, nil
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify H1 is facility name, H2 is brief overview with SEO keywords.")}, nil
}

func h1NoWelcome(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range homePages(in.Pages) {
		h1 := p.Doc.Find("h1").First()
		if h1.Length() == 0 {
			continue
		}
		text := textOf(h1)
		if strings.HasPrefix(strings.ToLower(text), "welcome to") {
			return []audit.CheckResult{audit.Fail(in.Rule, "Homepage H1 starts with \"Welcome to\": %q", text)}, nil
		}
		return []audit.CheckResult{audit.Pass(in.Rule, "Homepage H1 is correct: %q", text)}, nil
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Could not identify homepage. Verify H1 text manually.")}, nil
}
