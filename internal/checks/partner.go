package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

func registerPartner(r *Registry) {
	r.Register("check_cta_text", ctaText)
	r.Register("check_cta_on_pages", ctaOnPages)
	r.Register("check_new_client_form", newClientForm)
	r.Register("check_privacy_policy_verbiage", privacyPolicyVerbiage)
	r.Register("check_career_tracking_url", careerTrackingURL)
	r.Register("check_jobvite_careers", careersIntegration("Jobvite", "jobvite"))
	r.Register("check_lever_careers", careersIntegration("Lever", "lever.co", "jobs.lever"))
	r.Register("check_workday_careers", careersIntegration("Workday", "workday", "myworkday"))
	r.Register("check_photo_gallery_instructions", photoGalleryInstructions)
	r.Register("check_team_page_structure", teamPageStructure)
	r.Register("check_review_content", reviewContent)
	r.Register("check_faq_no_hours", faqNoHours)
	r.Register("check_no_pet_prefix", noPetPrefix)
	r.Register("check_service_pages_exist", servicePagesExist)
	r.Register("check_form_success_pages", formSuccessPages)
}

const defaultCTAText = "Book Appointment"

// ctaElements returns links and buttons styled as call-to-action buttons.
func ctaElements(doc *goquery.Document) *goquery.Selection {
	return doc.Find("a, button").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return ctaPattern.MatchString(class)
	})
}

func ctaText(_ context.Context, in Input) ([]audit.CheckResult, error) {
	expected := in.Rule.String("expected_cta_text", defaultCTAText)
	want := strings.ToLower(expected)
	var issues []string
	for _, p := range in.Pages.Parsed() {
		ctaElements(p.Doc).Each(func(_ int, s *goquery.Selection) {
			text := textOf(s)
			lower := strings.ToLower(text)
			if containsAny(lower, "appointment", "book", "schedule") && lower != want {
				issues = append(issues, fmt.Sprintf("Found %q on %s", text, p.URL))
			}
		})
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "CTA text mismatch (expected %q): %s", expected, strings.Join(firstN(issues, 3), "; "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "CTA text correctly shows %q", expected)}, nil
}

var pageTypePatterns = map[string][]string{
	"about":    {"about", "about-us"},
	"services": {"services", "our-services"},
	"reviews":  {"reviews", "testimonials"},
	"aaha":     {"aaha"},
	"faq":      {"faq", "faqs", "frequently-asked"},
	"contact":  {"contact", "contact-us"},
}

func matchesPageType(p audit.Page, pageType string) bool {
	pageType = strings.ToLower(pageType)
	if pageType == "home" {
		return p.IsHome()
	}
	patterns, ok := pageTypePatterns[pageType]
	if !ok {
		patterns = []string{pageType}
	}
	path := strings.ToLower(strings.Trim(p.Path(), "/"))
	return containsAny(path, patterns...)
}

func hasCTA(doc *goquery.Document) bool {
	found := false
	ctaElements(doc).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = containsAny(lowerText(s), "book", "appointment", "schedule", "get started")
		return !found
	})
	if found {
		return true
	}
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		found = containsAny(lowerText(a), "book appointment", "schedule", "make appointment")
		return !found
	})
	return found
}

// ctaOnPages requires a booking CTA on each required page type that the
// crawl found. Page types missing from the crawl are not penalized.
func ctaOnPages(_ context.Context, in Input) ([]audit.CheckResult, error) {
	required := in.Rule.Strings("required_pages", []string{"home", "about", "services"})
	var missing []string
	for _, pageType := range required {
		for _, p := range in.Pages.Parsed() {
			if !matchesPageType(p, pageType) {
				continue
			}
			if !hasCTA(p.Doc) {
				missing = append(missing, pageType)
			}
			break
		}
	}
	if len(missing) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "CTA missing on %d required page(s): %s", len(missing), strings.Join(missing, ", "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "CTAs found on all %d required pages", len(required))}, nil
}

func newClientForm(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Pages() {
		if p.URLContains("new-client", "new_client") {
			return []audit.CheckResult{audit.Pass(in.Rule, "New Client Form page found: %s", p.URL)}, nil
		}
		if !p.Parsed() {
			continue
		}
		linked := false
		p.Doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			linked = strings.Contains(lowerText(a), "new client")
			return !linked
		})
		if linked {
			return []audit.CheckResult{audit.Pass(in.Rule, "New Client Form link found")}, nil
		}
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "New Client Form page not found in crawl")}, nil
}

func privacyPolicyVerbiage(_ context.Context, in Input) ([]audit.CheckResult, error) {
	phrases := in.Rule.Strings("required_phrases", []string{"personal information", "privacy"})
	if brand := in.Rule.String("brand", ""); brand != "" {
		phrases = append([]string{strings.ToLower(brand)}, phrases...)
	}
	for _, p := range pagesMatching(in.Pages, "privacy") {
		text := pageText(p)
		found := 0
		for _, phrase := range phrases {
			if strings.Contains(text, strings.ToLower(phrase)) {
				found++
			}
		}
		if found >= 2 {
			return []audit.CheckResult{audit.Pass(in.Rule, "Privacy policy contains expected verbiage.")}, nil
		}
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Privacy policy found but may need verbiage update. Compare with reference.")}, nil
	}
	return []audit.CheckResult{audit.Fail(in.Rule, "Privacy policy page not found.")}, nil
}

func careerTrackingURL(_ context.Context, in Input) ([]audit.CheckResult, error) {
	trackers := in.Rule.Strings("tracking_domains", []string{"workday", "lever", "jobvite", "greenhouse", "icims"})
	for _, p := range pagesMatching(in.Pages, "career") {
		html := lowerHTML(p)
		for _, t := range trackers {
			if strings.Contains(html, strings.ToLower(t)) {
				return []audit.CheckResult{audit.Pass(in.Rule, "Career page uses %s tracking URL.", t)}, nil
			}
		}
		if containsAny(html, "gform", "gravity") {
			return []audit.CheckResult{audit.Fail(in.Rule, "Career page uses Gravity Form instead of applicant tracking URL.")}, nil
		}
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "Career page not found or tracking URL not detected. Verify manually.")}, nil
}

// careersIntegration passes when a careers page embeds or links to a given
// applicant tracking system.
func careersIntegration(name string, markers ...string) Func {
	return func(_ context.Context, in Input) ([]audit.CheckResult, error) {
		for _, p := range in.Pages.Pages() {
			if p.URLContains("career") && containsAny(lowerHTML(p), markers...) {
				return []audit.CheckResult{audit.Pass(in.Rule, "%s integration found on careers page.", name)}, nil
			}
		}
		return []audit.CheckResult{audit.Fail(in.Rule, "%s not found on careers page.", name)}, nil
	}
}

var submissionInstructions = regexp.MustCompile(`submit.*photo|upload.*photo|send.*photo|email.*photo|share.*photo|photo.*form|submit.*image|how to.*submit`)

func photoGalleryInstructions(_ context.Context, in Input) ([]audit.CheckResult, error) {
	pages := pagesMatching(in.Pages, "gallery", "photo")
	if len(pages) == 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "Photo gallery page not found in crawl.")}, nil
	}
	if submissionInstructions.MatchString(pageText(pages[0])) {
		return []audit.CheckResult{audit.Pass(in.Rule, "Photo gallery page contains submission instructions.")}, nil
	}
	return []audit.CheckResult{audit.Fail(in.Rule, "Photo gallery page found but no submission instructions detected.")}, nil
}

var roleKeywords = []string{
	"veterinarian", "doctor", "dvm", "technician", "cvt", "manager",
	"administrative", "receptionist", "groomer", "team",
}

func teamPageStructure(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range pagesMatching(in.Pages, "team", "staff", "doctors", "about") {
		text := pageText(p)
		var roles []string
		for _, kw := range roleKeywords {
			if strings.Contains(text, kw) {
				roles = append(roles, kw)
			}
		}
		if len(roles) >= 2 {
			return []audit.CheckResult{audit.Pass(in.Rule, "Team page contains role groupings: %s", joinFirst(roles, 5))}, nil
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify team page groups staff by role (Veterinarians, Technicians, Admin, etc.).")}, nil
}

func reviewContent(_ context.Context, in Input) ([]audit.CheckResult, error) {
	pages := pagesMatching(in.Pages, "review", "testimonial")
	if len(pages) == 0 {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Review page not found. Verify reviews are positive and use first name + last initial.")}, nil
	}
	text := pageText(pages[0])
	var issues []string
	if containsAny(text, "euthanasia", "put down", "put to sleep", "passed away") {
		issues = append(issues, "Contains euthanasia-related content")
	}
	if containsAny(text, "terrible", "awful", "worst", "never again", "do not recommend", "horrible") {
		issues = append(issues, "May contain negative reviews")
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "Review page issues: %s", strings.Join(issues, "; "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "Review page content appears appropriate (no euthanasia mentions, positive reviews).")}, nil
}

var hoursPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(am|pm)`),
	regexp.MustCompile(`(?i)hours of operation`),
	regexp.MustCompile(`(?i)monday.*friday`),
	regexp.MustCompile(`(?i)mon.*fri`),
	regexp.MustCompile(`(?i)open\s+\d`),
}

func faqNoHours(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range pagesMatching(in.Pages, "faq") {
		text := pageText(p)
		for _, re := range hoursPatterns {
			if re.MatchString(text) {
				return []audit.CheckResult{audit.Fail(in.Rule, "FAQ page appears to contain hours of operation: %s", p.URL)}, nil
			}
		}
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "FAQ page does not contain hours of operation")}, nil
}

func noPetPrefix(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var issues []string
	for _, p := range pagesMatching(in.Pages, "service") {
		p.Doc.Find("h1, h2").Each(func(_ int, h *goquery.Selection) {
			text := textOf(h)
			if strings.HasPrefix(strings.ToLower(text), "pet ") {
				issues = append(issues, fmt.Sprintf("'%s' on %s", text, p.URL))
			}
		})
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "Service titles with 'Pet' prefix: %s", strings.Join(firstN(issues, 3), "; "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "Service titles do not use 'Pet' prefix.")}, nil
}

const minServiceText = 200

func servicePagesExist(_ context.Context, in Input) ([]audit.CheckResult, error) {
	count := 0
	for _, p := range pagesMatching(in.Pages, "/service") {
		body := p.Doc.Find("body").First()
		if len(strings.Join(strings.Fields(body.Text()), "")) > minServiceText {
			count++
		}
	}
	if count >= 3 {
		return []audit.CheckResult{audit.Pass(in.Rule, "Found %d individual service pages with content.", count)}, nil
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "Only %d service pages found. Verify individual pages are created.", count)}, nil
}

func formSuccessPages(_ context.Context, in Input) ([]audit.CheckResult, error) {
	hasForms, hasSuccess := false, false
	for _, p := range in.Pages.Parsed() {
		if p.Doc.Find("form").Length() > 0 {
			hasForms = true
		}
		if p.URLContains("thank-you", "success", "thank_you", "confirmation") {
			hasSuccess = true
		}
	}
	if hasForms && !hasSuccess {
		return []audit.CheckResult{audit.Warn(in.Rule, "Forms found but no thank-you/success pages detected in crawl")}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "Thank-you/success pages found or no forms detected")}, nil
}
