package checks

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

func registerLayout(r *Registry) {
	r.Register("check_nav_structure", navStructure)
	r.Register("check_service_count", serviceCount)
	r.Register("check_topbar_layout", topbarLayout)
	r.Register("check_service_card_layout", serviceCardLayout)
	r.Register("check_service_column_layout", serviceColumnLayout)
}

func countByClass(doc *goquery.Document, pattern *regexp.Regexp) int {
	return doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return pattern.MatchString(class)
	}).Length()
}

// mainMenu finds the primary navigation, falling back to a list or menu
// element in the header.
func mainMenu(doc *goquery.Document) *goquery.Selection {
	if nav := navOf(doc); nav.Length() > 0 {
		return nav
	}
	header := doc.Find("header").First()
	if header.Length() == 0 {
		return header
	}
	if ul := header.Find("ul").First(); ul.Length() > 0 {
		return ul
	}
	return firstByAttr(header, navPattern, "class")
}

// topLevelItems returns the distinct labels of first-level menu entries.
func topLevelItems(menu *goquery.Selection) []string {
	var items []string
	seen := make(map[string]bool)
	menu.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := textOf(a)
		if len([]rune(text)) <= 1 || seen[text] {
			return
		}
		li := a.ParentsFiltered("li").First()
		if li.Length() == 0 {
			return
		}
		ul := li.ParentsFiltered("ul").First()
		if ul.Length() == 0 {
			return
		}
		nested := ul.ParentsFiltered("li").Length() > 0
		if nested && strings.Contains(attrLower(ul, "class"), "sub") {
			return
		}
		seen[text] = true
		items = append(items, text)
	})
	return items
}

func navStructure(_ context.Context, in Input) ([]audit.CheckResult, error) {
	expected := in.Rule.Strings("expected_nav", nil)
	if len(expected) == 0 {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "No expected navigation structure defined in rule config.")}, nil
	}
	for _, p := range in.Pages.Parsed() {
		menu := mainMenu(p.Doc)
		if menu.Length() == 0 {
			continue
		}
		items := topLevelItems(menu)
		var found, missing []string
		for _, want := range expected {
			w := strings.ToLower(want)
			hit := false
			for _, have := range items {
				h := strings.ToLower(have)
				if strings.Contains(h, w) || strings.Contains(w, h) {
					hit = true
					break
				}
			}
			if hit {
				found = append(found, want)
			} else {
				missing = append(missing, want)
			}
		}
		if len(missing) > 0 {
			return []audit.CheckResult{audit.Fail(in.Rule, "Missing nav items: %s. Found: %s",
				strings.Join(missing, ", "), joinFirst(items, 10))}, nil
		}
		return []audit.CheckResult{audit.Pass(in.Rule, "Navigation contains expected items: %s", strings.Join(found, ", "))}, nil
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "Could not locate navigation menu to verify structure.")}, nil
}

// serviceCount limits the Services dropdown to max_services entries plus an
// "All Services" link. Only the first page with a nav is inspected.
func serviceCount(_ context.Context, in Input) ([]audit.CheckResult, error) {
	limit := in.Rule.Int("max_services", 5)
	for _, p := range in.Pages.Parsed() {
		nav := p.Doc.Find("nav").First()
		if nav.Length() == 0 {
			continue
		}
		var result []audit.CheckResult
		nav.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if !strings.Contains(lowerText(a), "services") {
				return true
			}
			li := a.ParentsFiltered("li").First()
			sub := li.Find("ul").First()
			if sub.Length() == 0 {
				return true
			}
			count := sub.Find("li").Length()
			if count > limit+1 {
				result = []audit.CheckResult{audit.Fail(in.Rule, "Services dropdown has %d items (max %d + 'All Services')", count, limit)}
			} else {
				result = []audit.CheckResult{audit.Pass(in.Rule, "Services dropdown has %d items", count)}
			}
			return false
		})
		if result != nil {
			return result, nil
		}
		break
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Could not locate services dropdown. Verify service count manually.")}, nil
}

var (
	topbarClass = regexp.MustCompile(`(?i)top[-_]?bar|secondary[-_]?menu|header[-_]?top`)
	topbarID    = regexp.MustCompile(`(?i)top[-_]?bar|secondary`)
	etTopClass  = regexp.MustCompile(`(?i)et[-_]?top`)
	topbarPhone = regexp.MustCompile(`tel:|phone|\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
	topbarEmail = regexp.MustCompile(`mailto:|email|@`)
)

func findTopbar(doc *goquery.Document) *goquery.Selection {
	if s := firstByAttr(doc.Selection, topbarClass, "class"); s.Length() > 0 {
		return s
	}
	if s := firstByAttr(doc.Selection, topbarID, "id"); s.Length() > 0 {
		return s
	}
	header := doc.Find("header").First()
	if header.Length() == 0 {
		return header
	}
	return firstByAttr(header, etTopClass, "class")
}

// topbarLayout expects phone and email plus app and pharmacy links in the
// secondary bar above the header.
func topbarLayout(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Parsed() {
		bar := findTopbar(p.Doc)
		if bar.Length() == 0 {
			continue
		}
		text := lowerText(bar)
		html := strings.ToLower(outerHTML(bar))
		var missing []string
		if !topbarPhone.MatchString(html) {
			missing = append(missing, "phone number")
		}
		if !topbarEmail.MatchString(html) {
			missing = append(missing, "email")
		}
		if !containsAny(text, append([]string{"download", "app"}, in.Rule.Strings("app_keywords", nil)...)...) {
			missing = append(missing, "Download App button")
		}
		if !containsAny(text, "pharmacy", "online store") {
			missing = append(missing, "Online Pharmacy/Store button")
		}
		if len(missing) > 0 {
			return []audit.CheckResult{audit.Warn(in.Rule, "Top bar may be missing: %s. Verify layout manually.", strings.Join(missing, ", "))}, nil
		}
		return []audit.CheckResult{audit.Pass(in.Rule, "Top bar contains phone, email, app download, and pharmacy links.")}, nil
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Could not locate top bar. Verify layout manually: Phone/Email left, App/Pharmacy right.")}, nil
}

var cardClass = regexp.MustCompile(`(?i)card|grid|column|et_pb_column`)

func serviceCardLayout(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range pagesMatching(in.Pages, "service") {
		if countByClass(p.Doc, cardClass) >= 3 {
			return []audit.CheckResult{audit.Pass(in.Rule, "Service page appears to use card/grid layout.")}, nil
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify main service page uses card-style layout.")}, nil
}

var thirdColumnClass = regexp.MustCompile(`(?i)et_pb_column_1_3|col-md-4|column.*third`)

func serviceColumnLayout(_ context.Context, in Input) ([]audit.CheckResult, error) {
	want := in.Rule.Int("expected_columns", 3)
	for _, p := range pagesMatching(in.Pages, "service") {
		if countByClass(p.Doc, thirdColumnClass) >= want {
			return []audit.CheckResult{audit.Pass(in.Rule, "Services page appears to use %d-column layout.", want)}, nil
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify services page uses %d-column layout.", want)}, nil
}
