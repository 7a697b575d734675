package checks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/services/pagespeed"
)

func registerPerformance(r *Registry) {
	r.Register("check_mobile_responsive", mobileResponsive)
	r.Register("check_contrast", contrast)
	r.Register("check_lighthouse", lighthouse)
}

// analyzeFirstPage runs PageSpeed against the first crawled URL. It returns
// nil when no client is configured or the analysis failed.
func analyzeFirstPage(ctx context.Context, in Input) *pagespeed.Result {
	if in.Deps.PageSpeed == nil {
		return nil
	}
	urls := in.Pages.URLs()
	if len(urls) == 0 {
		return nil
	}
	res := in.Deps.PageSpeed.Analyze(ctx, urls[0])
	if res == nil {
		in.Deps.logger().Debug("pagespeed unavailable, using fallback", zap.String("rule", in.Rule.ID))
	}
	return res
}

func displayOr(a pagespeed.Audit, def string) string {
	if a.DisplayValue == "" {
		return def
	}
	return a.DisplayValue
}

func mobileResponsive(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	psi := analyzeFirstPage(ctx, in)
	if psi == nil {
		var missing []string
		for _, p := range in.Pages.Parsed() {
			if p.Doc.Find(`meta[name="viewport"]`).Length() == 0 {
				missing = append(missing, p.URL)
			}
		}
		if len(missing) > 0 {
			return []audit.CheckResult{audit.Fail(in.Rule, "Viewport meta tag missing on %d page(s) (HTML check; configure a PageSpeed key for rendered check)", len(missing))}, nil
		}
		return []audit.CheckResult{audit.Pass(in.Rule, "Viewport meta tag present (HTML check; configure a PageSpeed key for full rendered check)")}, nil
	}

	var issues []string
	if a, ok := psi.Audit("viewport"); ok && a.Score != nil && *a.Score == 0 {
		issues = append(issues, "Viewport not configured for mobile")
	}
	if a, ok := psi.Audit("tap-targets"); ok && a.Score != nil && *a.Score < 1 {
		issues = append(issues, "Tap targets too small: "+displayOr(a, "see report"))
	}
	if a, ok := psi.Audit("font-size"); ok && a.Score != nil && *a.Score < 1 {
		issues = append(issues, "Font sizes too small for mobile: "+displayOr(a, "see report"))
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "PageSpeed Insights (rendered check): %s", strings.Join(issues, "; "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "PageSpeed Insights confirms mobile-friendly (viewport, tap targets, font sizes OK)")}, nil
}

func contrast(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	psi := analyzeFirstPage(ctx, in)
	if a, ok := psi.Audit("color-contrast"); ok && a.Score != nil {
		if *a.Score >= 1 {
			return []audit.CheckResult{audit.Pass(in.Rule, "PageSpeed Insights confirms sufficient color contrast")}, nil
		}
		return []audit.CheckResult{audit.Fail(in.Rule, "PageSpeed Insights: %s", displayOr(a, "Insufficient contrast"))}, nil
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Contrast check requires a PageSpeed API key for automated check. Flagged for human review.")}, nil
}

func lighthouse(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	psi := analyzeFirstPage(ctx, in)
	if psi == nil {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify page performance manually (load time, responsiveness). Configure a PageSpeed API key for automated scoring.")}, nil
	}
	var parts []string
	perf, hasPerf := psi.CategoryScore("performance")
	if hasPerf {
		parts = append(parts, fmt.Sprintf("Performance: %d/100", int(perf*100)))
	}
	if access, ok := psi.CategoryScore("accessibility"); ok {
		parts = append(parts, fmt.Sprintf("Accessibility: %d/100", int(access*100)))
	}
	if a, ok := psi.Audit("cumulative-layout-shift"); ok && a.DisplayValue != "" {
		parts = append(parts, "CLS: "+a.DisplayValue)
	}
	if a, ok := psi.Audit("largest-contentful-paint"); ok && a.DisplayValue != "" {
		parts = append(parts, "LCP: "+a.DisplayValue)
	}
	detail := "Data retrieved"
	if len(parts) > 0 {
		detail = strings.Join(parts, " | ")
	}
	if hasPerf && perf < 0.5 {
		return []audit.CheckResult{audit.Warn(in.Rule, "PageSpeed Insights: %s", detail)}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "PageSpeed Insights: %s", detail)}, nil
}
