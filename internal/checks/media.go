package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/bulk"
)

func registerMedia(r *Registry) {
	r.Register("check_alt_text", altText)
	r.Register("check_broken_images", brokenImages)
	r.Register("check_mixed_content", mixedContent)
}

const imageProbeLimit = 200

func trackingPixel(img *goquery.Selection) bool {
	w, _ := img.Attr("width")
	h, _ := img.Attr("height")
	return w == "0" || w == "1" || h == "0" || h == "1"
}

func shortSrc(src string) string {
	if i := strings.LastIndex(src, "/"); i >= 0 {
		src = src[i+1:]
	}
	return truncate(src, 50)
}

// altText fails on unique images without alt text. Lazy-load placeholders
// and tracking pixels are ignored.
func altText(_ context.Context, in Input) ([]audit.CheckResult, error) {
	seen := make(map[string]bool)
	var missing []string
	for _, p := range in.Pages.Parsed() {
		p.Doc.Find("img").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			if strings.HasPrefix(src, "data:") || trackingPixel(img) || seen[src] {
				return
			}
			seen[src] = true
			if alt, ok := img.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
				missing = append(missing, fmt.Sprintf("%s found on: %s", shortSrc(src), p.URL))
			}
		})
	}
	if len(missing) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "%d unique image(s) missing alt text:\n%s", len(missing), strings.Join(missing, "\n"))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All images have alt text")}, nil
}

func imageTargets(pages *audit.CrawlResult) []bulk.Target {
	var targets []bulk.Target
	for _, p := range pages.Parsed() {
		p.Doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			if strings.HasPrefix(src, "data:") {
				return
			}
			if abs, ok := resolve(p.URL, src); ok {
				targets = append(targets, bulk.Target{URL: abs, Referrer: p.URL})
			}
		})
	}
	return targets
}

func brokenImages(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	if in.Deps.Verifier == nil {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Image verification unavailable. Check images manually.")}, nil
	}
	out := in.Deps.Verifier.Verify(ctx, "image", imageTargets(in.Pages), in.Rule.Int("probe_limit", imageProbeLimit))
	var results []audit.CheckResult
	if len(out.Broken) > 0 {
		lines := make([]string, 0, len(out.Broken))
		for _, f := range out.Broken {
			lines = append(lines, fmt.Sprintf("%s (status %d) found on: %s", f.URL, f.StatusCode, f.Referrer))
		}
		results = append(results, audit.Fail(in.Rule, "%d broken image(s) out of %d:\n%s", len(out.Broken), out.Unique, strings.Join(lines, "\n")))
	} else {
		results = append(results, audit.Pass(in.Rule, "All %d images load correctly", out.Unique))
	}
	if len(out.Forbidden) > 0 {
		results = append(results, forbiddenWarning(in.Rule, "image", out.Forbidden))
	}
	return results, nil
}

var mixedContentSources = []struct{ tag, attr string }{
	{"img", "src"}, {"script", "src"}, {"link", "href"}, {"source", "src"},
	{"iframe", "src"}, {"video", "src"}, {"audio", "src"},
}

func mixedContent(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var lines []string
	affected := 0
	for _, p := range in.Pages.Parsed() {
		if !strings.HasPrefix(p.URL, "https://") {
			continue
		}
		before := len(lines)
		for _, src := range mixedContentSources {
			p.Doc.Find(src.tag + "[" + src.attr + "]").Each(func(_ int, s *goquery.Selection) {
				val, _ := s.Attr(src.attr)
				if strings.HasPrefix(val, "http://") {
					lines = append(lines, fmt.Sprintf("%s: <%s> %s", p.Path(), src.tag, truncate(val, 80)))
				}
			})
		}
		if len(lines) > before {
			affected++
		}
	}
	if len(lines) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "%d insecure (HTTP) resource(s) on %d page(s):\n%s", len(lines), affected, strings.Join(lines, "\n"))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "No mixed content issues found")}, nil
}
