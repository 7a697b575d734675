package checks

import (
	"context"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// Checks that need a real device or a human eye. They always flag for review.
var manualChecks = map[string]string{
	"check_no_mobile_popups":    "Test on mobile device: popups should be disabled on mobile (desktop OK).",
	"check_landing_page_links":  "Verify landing page only links to: map, appointment, pharmacy.",
	"check_responsive_cta_text": "Test responsive CTA: Desktop should say 'Call xxx-xxx-xxxx', Mobile should say 'Call for appointment'.",
}

func registerManual(r *Registry) {
	for name, details := range manualChecks {
		r.Register(name, manualReview(details))
	}
}

func manualReview(details string) Func {
	return func(_ context.Context, in Input) ([]audit.CheckResult, error) {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "%s", details)}, nil
	}
}
