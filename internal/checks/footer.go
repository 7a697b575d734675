package checks

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

func registerFooter(r *Registry) {
	r.Register("check_privacy_policy_footer", footerLinkCheck("privacy", "Privacy Policy"))
	r.Register("check_accessibility_footer", footerLinkCheck("accessibility", "Accessibility"))
	r.Register("check_powered_by_petdesk", poweredBy)
	r.Register("check_footer_centered", footerCentered)
	r.Register("check_contact_form_placement", contactFormPlacement)
	r.Register("check_no_appt_cta_euthanasia", noAppointmentCTAOnEndOfLife)
}

// footerLinkCheck passes when any page footer links to text containing
// keyword.
func footerLinkCheck(keyword, label string) Func {
	return func(_ context.Context, in Input) ([]audit.CheckResult, error) {
		for _, p := range in.Pages.Parsed() {
			footer := footerOf(p.Doc)
			if footer.Length() == 0 {
				continue
			}
			found := false
			footer.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				found = strings.Contains(lowerText(a), keyword)
				return !found
			})
			if found {
				return []audit.CheckResult{audit.Pass(in.Rule, "%s link found in footer on %s", label, p.URL)}, nil
			}
		}
		return []audit.CheckResult{audit.Fail(in.Rule, "%s link not found in footer", label)}, nil
	}
}

// poweredBy expects "powered by <brand>" in the footer and fails on a
// forbidden brand.
func poweredBy(_ context.Context, in Input) ([]audit.CheckResult, error) {
	brand := strings.ToLower(in.Rule.String("brand", ""))
	if brand == "" {
		return nil, errors.New("rule has no brand")
	}
	forbidden := strings.ToLower(in.Rule.String("forbidden_brand", ""))
	want := "powered by " + brand
	for _, p := range in.Pages.Parsed() {
		footer := footerOf(p.Doc)
		if footer.Length() == 0 {
			continue
		}
		// Text is compared with whitespace removed so markup splits do not matter.
		text := strings.Join(strings.Fields(lowerText(footer)), "")
		hasForbidden := forbidden != "" && strings.Contains(text, strings.ReplaceAll(forbidden, " ", ""))
		switch {
		case hasForbidden:
			return []audit.CheckResult{audit.Fail(in.Rule, "%q mention found in footer on %s", forbidden, p.URL)}, nil
		case strings.Contains(text, strings.ReplaceAll(want, " ", "")):
			return []audit.CheckResult{audit.Pass(in.Rule, "Footer correctly shows %q", want)}, nil
		}
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "Could not locate footer to verify %q", want)}, nil
}

func footerCentered(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Parsed() {
		footer := p.Doc.Find("footer").First()
		if footer.Length() > 0 && strings.Contains(strings.ToLower(outerHTML(footer)), "center") {
			return []audit.CheckResult{audit.Pass(in.Rule, "Footer appears to be centered.")}, nil
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify footer content is centered visually.")}, nil
}

func contactFormPlacement(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var found []string
	for _, p := range in.Pages.Parsed() {
		if p.Doc.Find("footer form").Length() > 0 {
			found = append(found, p.URL)
		}
	}
	if len(found) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule,
			"Contact form found in footer on %d page(s). Should only be on contact page.", len(found))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "No contact forms found in page footers.")}, nil
}

var endOfLifeFragments = []string{"euthanasia", "end-of-life", "end_of_life", "cremation", "memorial"}

func noAppointmentCTAOnEndOfLife(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range pagesMatching(in.Pages, endOfLifeFragments...) {
		footer := p.Doc.Find("footer").First()
		if containsAny(lowerText(footer), "ready for a visit", "book appointment") {
			return []audit.CheckResult{audit.Fail(in.Rule, "Appointment CTA found in footer on sensitive page: %s", p.URL)}, nil
		}
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "No appointment CTAs on euthanasia/end-of-life pages")}, nil
}
