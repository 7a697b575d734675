package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

func registerContact(r *Registry) {
	r.Register("check_phone_links", phoneLinks)
	r.Register("check_email_links", emailLinks)
}

var (
	phonePattern = regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}|\d{3}-\d{3}[-.]?\d{4}|\d{3}\.\d{3}\.\d{4}|\d{3}\s\d{3}\s?\d{4}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	nonDigit     = regexp.MustCompile(`\D`)
	hiddenStyle  = regexp.MustCompile(`display\s*:\s*none`)
	hiddenClass  = regexp.MustCompile(`sr-only|screen-reader|visually-hidden`)
)

const visibleTags = "p, h1, h2, h3, h4, h5, h6, span, a, li, td, th, div, strong, em, b, i, label, dd, dt"

func hiddenElement(s *goquery.Selection) bool {
	if style, ok := s.Attr("style"); ok && hiddenStyle.MatchString(style) {
		return true
	}
	if v, _ := s.Attr("aria-hidden"); v == "true" {
		return true
	}
	class, _ := s.Attr("class")
	return hiddenClass.MatchString(class)
}

// phoneLinks warns about phone numbers shown on two or more pages that are
// never wrapped in a tel: link. One-off numbers in body copy are ignored.
func phoneLinks(_ context.Context, in Input) ([]audit.CheckResult, error) {
	linked := make(map[string]bool)
	for _, p := range in.Pages.Parsed() {
		for _, href := range hrefs(p.Doc.Selection) {
			if strings.HasPrefix(href, "tel:") {
				linked[nonDigit.ReplaceAllString(href, "")] = true
			}
		}
	}

	type sighting struct {
		display string
		pages   map[string]struct{}
	}
	var order []string
	seen := make(map[string]*sighting)
	for _, p := range in.Pages.Parsed() {
		p.Doc.Find("body").First().Find(visibleTags).Each(func(_ int, s *goquery.Selection) {
			if hiddenElement(s) {
				return
			}
			for _, m := range phonePattern.FindAllString(strings.TrimSpace(s.Text()), -1) {
				digits := nonDigit.ReplaceAllString(m, "")
				sg, ok := seen[digits]
				if !ok {
					sg = &sighting{display: m, pages: make(map[string]struct{})}
					seen[digits] = sg
					order = append(order, digits)
				}
				sg.pages[p.URL] = struct{}{}
			}
		})
	}

	var issues []string
	for _, digits := range order {
		sg := seen[digits]
		if len(sg.pages) >= 2 && !linked[digits] {
			issues = append(issues, fmt.Sprintf("%s (found on %d pages)", sg.display, len(sg.pages)))
		}
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "%d clinic phone number(s) not hyperlinked: %s",
			len(issues), strings.Join(issues, ", "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All visible phone numbers appear to be hyperlinked")}, nil
}

func emailLinks(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var issues []string
	for _, p := range in.Pages.Parsed() {
		body := p.Doc.Find("body").First()
		if body.Length() == 0 {
			continue
		}
		var mailto []string
		for _, href := range hrefs(p.Doc.Selection) {
			if strings.HasPrefix(href, "mailto:") {
				mailto = append(mailto, href)
			}
		}
		linked := strings.ToLower(strings.Join(mailto, " "))
		for _, email := range emailPattern.FindAllString(body.Text(), -1) {
			if !strings.Contains(linked, strings.ToLower(email)) {
				issues = append(issues, fmt.Sprintf("%s on %s", email, p.URL))
			}
		}
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "%d email(s) may not be hyperlinked: %s", len(issues), joinFirst(issues, 3))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All visible email addresses are hyperlinked")}, nil
}
