package checks

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// stateTimezones maps US state names and postal codes to IANA zones.
var stateTimezones = map[string]string{
	"new york": "America/New_York", "ny": "America/New_York",
	"new jersey": "America/New_York", "nj": "America/New_York",
	"connecticut": "America/New_York", "ct": "America/New_York",
	"massachusetts": "America/New_York", "ma": "America/New_York",
	"pennsylvania": "America/New_York", "pa": "America/New_York",
	"delaware": "America/New_York", "de": "America/New_York",
	"maryland": "America/New_York", "md": "America/New_York",
	"virginia": "America/New_York", "va": "America/New_York",
	"north carolina": "America/New_York", "nc": "America/New_York",
	"south carolina": "America/New_York", "sc": "America/New_York",
	"georgia": "America/New_York", "ga": "America/New_York",
	"florida": "America/New_York", "fl": "America/New_York",
	"ohio": "America/New_York", "oh": "America/New_York",
	"michigan": "America/Detroit", "mi": "America/Detroit",
	"indiana": "America/Indiana/Indianapolis", "in": "America/Indiana/Indianapolis",
	"maine": "America/New_York", "me": "America/New_York",
	"vermont": "America/New_York", "vt": "America/New_York",
	"new hampshire": "America/New_York", "nh": "America/New_York",
	"rhode island": "America/New_York", "ri": "America/New_York",
	"west virginia": "America/New_York", "wv": "America/New_York",

	"illinois": "America/Chicago", "il": "America/Chicago",
	"wisconsin": "America/Chicago", "wi": "America/Chicago",
	"minnesota": "America/Chicago", "mn": "America/Chicago",
	"iowa": "America/Chicago", "ia": "America/Chicago",
	"missouri": "America/Chicago", "mo": "America/Chicago",
	"arkansas": "America/Chicago", "ar": "America/Chicago",
	"louisiana": "America/Chicago", "la": "America/Chicago",
	"mississippi": "America/Chicago", "ms": "America/Chicago",
	"alabama": "America/Chicago", "al": "America/Chicago",
	"tennessee": "America/Chicago", "tn": "America/Chicago",
	"kentucky": "America/Kentucky/Louisville", "ky": "America/Kentucky/Louisville",
	"texas": "America/Chicago", "tx": "America/Chicago",
	"oklahoma": "America/Chicago", "ok": "America/Chicago",
	"kansas": "America/Chicago", "ks": "America/Chicago",
	"nebraska": "America/Chicago", "ne": "America/Chicago",
	"south dakota": "America/Chicago", "sd": "America/Chicago",
	"north dakota": "America/Chicago", "nd": "America/Chicago",

	"montana": "America/Denver", "mt": "America/Denver",
	"wyoming": "America/Denver", "wy": "America/Denver",
	"colorado": "America/Denver", "co": "America/Denver",
	"new mexico": "America/Denver", "nm": "America/Denver",
	"utah": "America/Denver", "ut": "America/Denver",
	"arizona": "America/Phoenix", "az": "America/Phoenix",
	"idaho": "America/Boise", "id": "America/Boise",

	"washington": "America/Los_Angeles", "wa": "America/Los_Angeles",
	"oregon": "America/Los_Angeles", "or": "America/Los_Angeles",
	"california": "America/Los_Angeles", "ca": "America/Los_Angeles",
	"nevada": "America/Los_Angeles", "nv": "America/Los_Angeles",

	"alaska": "America/Anchorage", "ak": "America/Anchorage",
	"hawaii": "Pacific/Honolulu", "hi": "Pacific/Honolulu",
}

// stateNames holds the full names longest first, so "west virginia" wins
// over "virginia".
var stateNames = func() []string {
	var names []string
	for k := range stateTimezones {
		if len(k) > 2 {
			names = append(names, k)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

var stateBeforeZip = regexp.MustCompile(`,\s*([A-Z]{2})\s+\d{5}`)

// stateFromAddress finds a US state in free address text: a postal code
// before a ZIP first, then any full state name.
func stateFromAddress(text string) string {
	if m := stateBeforeZip.FindStringSubmatch(text); m != nil {
		if _, ok := stateTimezones[strings.ToLower(m[1])]; ok {
			return strings.ToLower(m[1])
		}
	}
	lower := strings.ToLower(text)
	for _, name := range stateNames {
		if strings.Contains(lower, name) {
			return name
		}
	}
	return ""
}

const homeAddressChars = 2000

// addressText gathers footer text from every page, plus contact and home
// page bodies, where a clinic address usually appears.
func addressText(pages *audit.CrawlResult) string {
	var b strings.Builder
	for _, p := range pages.Parsed() {
		if footer := footerOf(p.Doc); footer.Length() > 0 {
			b.WriteString(" " + textOf(footer))
		}
		body := audit.VisibleText(p.Doc)
		switch {
		case p.URLContains("contact"):
			b.WriteString(" " + body)
		case p.IsHome():
			b.WriteString(" " + truncate(body, homeAddressChars))
		}
	}
	return b.String()
}

func isUTC(tz string) bool {
	switch tz {
	case "", "UTC", "UTC+0", "UTC-0":
		return true
	}
	return false
}

func tzRegion(tz string) string {
	if i := strings.Index(tz, "/"); i > 0 {
		return tz[:i]
	}
	return ""
}

func timezoneMatches(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	data, degraded := siteData(ctx, in, "wp-admin > Settings > General")
	if degraded != nil {
		return degraded, nil
	}
	tz := data.Settings.Timezone()
	expected := in.Rule.String("expected_timezone", "")
	if expected == "" {
		expected = stateTimezones[stateFromAddress(addressText(in.Pages))]
	}

	if expected == "" {
		if isUTC(tz) {
			return []audit.CheckResult{audit.Fail(in.Rule, "Timezone is set to UTC, which is incorrect for a local business. Set the local timezone in wp-admin > Settings > General.")}, nil
		}
		return []audit.CheckResult{audit.Pass(in.Rule, "Timezone set to: %s", tz)}, nil
	}
	switch {
	case strings.EqualFold(tz, expected):
		return []audit.CheckResult{audit.Pass(in.Rule, "Timezone correctly set to: %s (matches business location)", tz)}, nil
	case tzRegion(tz) == "America" && tzRegion(expected) == "America":
		return []audit.CheckResult{audit.Pass(in.Rule, "Timezone set to: %s (expected %s based on address, but both are valid US timezones)", tz, expected)}, nil
	case isUTC(tz):
		return []audit.CheckResult{audit.Fail(in.Rule, "Timezone is UTC but the business appears to be in %s. Update in wp-admin > Settings > General.", expected)}, nil
	default:
		return []audit.CheckResult{audit.Warn(in.Rule, "Timezone is '%s' but the address suggests '%s'. Verify this is correct.", tz, expected)}, nil
	}
}
