package checks

import (
	"context"
	"regexp"
	"strings"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

func registerWidgets(r *Registry) {
	r.Register("check_userway_widget", widgetPresent("userway", "UserWay accessibility widget"))
	r.Register("check_birdeye_widget", widgetPresent("birdeye", "Birdeye testimonial widget"))
	r.Register("check_booking_widget", bookingWidget)
	r.Register("check_no_popups", noPopups)
	r.Register("check_sticky_header", stickyHeader)
	r.Register("check_reviews_carousel", reviewsCarousel)
}

// widgetPresent fails unless marker appears in the markup of some page.
func widgetPresent(marker, label string) Func {
	return func(_ context.Context, in Input) ([]audit.CheckResult, error) {
		for _, p := range in.Pages.Pages() {
			if strings.Contains(lowerHTML(p), marker) {
				return []audit.CheckResult{audit.Pass(in.Rule, "%s detected", label)}, nil
			}
		}
		return []audit.CheckResult{audit.Fail(in.Rule, "%s not found", label)}, nil
	}
}

var defaultBookingPatterns = []string{"vetstoria", "booking-widget", "appointment-widget"}

func bookingWidget(_ context.Context, in Input) ([]audit.CheckResult, error) {
	patterns := in.Rule.Strings("widget_patterns", defaultBookingPatterns)
	for _, p := range in.Pages.Pages() {
		html := lowerHTML(p)
		for _, pattern := range patterns {
			if strings.Contains(html, strings.ToLower(pattern)) {
				return []audit.CheckResult{audit.Pass(in.Rule, "Booking widget detected: %s", pattern)}, nil
			}
		}
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "No booking widget detected. Verify booking integration manually.")}, nil
}

var popupClass = regexp.MustCompile(`class=["'][^"']*(popup|modal|lightbox|overlay)[^"']*["']`)

// noPopups warns when popup markup is present and nothing on the page is
// hidden with display:none.
func noPopups(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Pages() {
		html := lowerHTML(p)
		m := popupClass.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		if !strings.Contains(strings.ReplaceAll(html, " ", ""), "display:none") {
			return []audit.CheckResult{audit.Warn(in.Rule, "Popup indicator found (%s). Verify no active popups.", m[1])}, nil
		}
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "No obvious popup implementations detected.")}, nil
}

func stickyHeader(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range in.Pages.Pages() {
		if containsAny(lowerHTML(p), "position:fixed", "position: fixed", "sticky", "et_fixed_nav") {
			return []audit.CheckResult{audit.Pass(in.Rule, "Sticky/fixed header detected.")}, nil
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Could not confirm sticky header. Test on mobile device.")}, nil
}

var carouselMarkers = []string{"carousel", "slider", "testimonial", "review", "swiper"}

func reviewsCarousel(_ context.Context, in Input) ([]audit.CheckResult, error) {
	for _, p := range homePages(in.Pages) {
		html := lowerHTML(p)
		for _, marker := range carouselMarkers {
			if strings.Contains(html, marker) {
				return []audit.CheckResult{audit.Pass(in.Rule, "Reviews/testimonial section detected (%s).", marker)}, nil
			}
		}
	}
	return []audit.CheckResult{audit.HumanReview(in.Rule, "Verify reviews teaser/carousel exists below hero with link to Reviews page.")}, nil
}
