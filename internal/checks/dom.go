package checks

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

var (
	footerPattern = regexp.MustCompile(`(?i)footer`)
	headerPattern = regexp.MustCompile(`(?i)header`)
	navPattern    = regexp.MustCompile(`(?i)menu|nav`)
	ctaPattern    = regexp.MustCompile(`(?i)cta|btn|button`)
)

// firstByAttr returns the first descendant of root whose id or class
// attribute matches pattern.
func firstByAttr(root *goquery.Selection, pattern *regexp.Regexp, attrs ...string) *goquery.Selection {
	if len(attrs) == 0 {
		attrs = []string{"id", "class"}
	}
	return root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, attr := range attrs {
			if v, ok := s.Attr(attr); ok && pattern.MatchString(v) {
				return true
			}
		}
		return false
	}).First()
}

// region finds a landmark by tag, then by id or class.
func region(doc *goquery.Document, tag string, pattern *regexp.Regexp) *goquery.Selection {
	if sel := doc.Find(tag).First(); sel.Length() > 0 {
		return sel
	}
	return firstByAttr(doc.Selection, pattern)
}

func footerOf(doc *goquery.Document) *goquery.Selection {
	return region(doc, "footer", footerPattern)
}

func headerOf(doc *goquery.Document) *goquery.Selection {
	return region(doc, "header", headerPattern)
}

func navOf(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("nav").First(); sel.Length() > 0 {
		return sel
	}
	return firstByAttr(doc.Selection, navPattern, "id")
}

// textOf returns the whitespace-collapsed text of sel.
func textOf(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func lowerText(sel *goquery.Selection) string {
	return strings.ToLower(textOf(sel))
}

func outerHTML(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return html
}

// pageText is the full document text, scripts included, lowercased.
func pageText(p audit.Page) string {
	if p.Doc == nil {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(p.Doc.Text()), " "))
}

// contentText is the body text with chrome and scripts removed.
func contentText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	clone := body.Clone()
	clone.Find("script, style, nav, footer, header, noscript").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

func lowerHTML(p audit.Page) string {
	return strings.ToLower(p.Body)
}

func attrLower(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.ToLower(v)
}

// hrefs returns the raw href of every anchor inside sel.
func hrefs(sel *goquery.Selection) []string {
	var out []string
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		out = append(out, strings.TrimSpace(href))
	})
	return out
}

func resolve(base, ref string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func joinFirst(items []string, n int) string {
	return strings.Join(firstN(items, n), ", ")
}

func shortURL(u string) string {
	if i := strings.Index(u, "//"); i >= 0 {
		return u[i+2:]
	}
	return u
}

// pagesMatching returns parsed pages whose URL contains any fragment.
func pagesMatching(pages *audit.CrawlResult, fragments ...string) []audit.Page {
	var out []audit.Page
	for _, p := range pages.Parsed() {
		if p.URLContains(fragments...) {
			out = append(out, p)
		}
	}
	return out
}

func homepage(pages *audit.CrawlResult) (audit.Page, bool) {
	p, ok := pages.Homepage()
	if !ok || !p.Parsed() {
		return audit.Page{}, false
	}
	return p, true
}

// anyPageHTML reports whether any parsed page markup contains a needle.
func anyPageHTML(pages *audit.CrawlResult, needles ...string) bool {
	for _, p := range pages.Parsed() {
		if containsAny(lowerHTML(p), needles...) {
			return true
		}
	}
	return false
}
