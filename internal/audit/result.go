package audit

import (
	"fmt"
	"time"
)

// Status is the outcome of a single check result.
type Status string

// Check outcomes.
const (
	StatusPass        Status = "PASS"
	StatusFail        Status = "FAIL"
	StatusWarn        Status = "WARN"
	StatusHumanReview Status = "HUMAN_REVIEW"
	StatusSkip        Status = "SKIP"
)

// CheckResult is one normalized rule outcome.
type CheckResult struct {
	RuleID         string `json:"rule_id"`
	Category       string `json:"category"`
	Check          string `json:"check"`
	Status         Status `json:"status"`
	Weight         int    `json:"weight"`
	Details        string `json:"details,omitempty"`
	PageURL        string `json:"page_url,omitempty"`
	PointsDeducted int    `json:"points_deducted"`
}

func newResult(rule Rule, status Status, details string) CheckResult {
	res := CheckResult{
		RuleID:   rule.ID,
		Category: rule.Category,
		Check:    rule.Check,
		Status:   status,
		Weight:   rule.Weight,
		Details:  details,
	}
	if status == StatusFail {
		res.PointsDeducted = rule.Weight
	}
	return res
}

// Pass builds a passing result for rule.
func Pass(rule Rule, format string, args ...any) CheckResult {
	return newResult(rule, StatusPass, fmt.Sprintf(format, args...))
}

// Fail builds a failing result; it deducts the rule weight.
func Fail(rule Rule, format string, args ...any) CheckResult {
	return newResult(rule, StatusFail, fmt.Sprintf(format, args...))
}

// Warn builds an advisory result. Warnings never deduct points.
func Warn(rule Rule, format string, args ...any) CheckResult {
	return newResult(rule, StatusWarn, fmt.Sprintf(format, args...))
}

// HumanReview builds a result that flags the rule for manual verification.
func HumanReview(rule Rule, format string, args ...any) CheckResult {
	return newResult(rule, StatusHumanReview, fmt.Sprintf(format, args...))
}

// Skip builds a result for a rule that does not apply to the site.
func Skip(rule Rule, format string, args ...any) CheckResult {
	return newResult(rule, StatusSkip, fmt.Sprintf(format, args...))
}

// WithSuffix returns a copy of r whose rule ID carries an advisory suffix such as "-W".
func (r CheckResult) WithSuffix(suffix, check string) CheckResult {
	r.RuleID += suffix
	if check != "" {
		r.Check = check
	}
	return r
}

// OnPage returns a copy of r attributed to pageURL.
func (r CheckResult) OnPage(pageURL string) CheckResult {
	r.PageURL = pageURL
	return r
}

// ScanReport is the finished output of a scan.
type ScanReport struct {
	ScanID       string        `json:"scan_id"`
	SiteURL      string        `json:"site_url"`
	Partner      string        `json:"partner"`
	Phase        string        `json:"phase"`
	ScanTime     time.Time     `json:"scan_time"`
	Duration     time.Duration `json:"duration"`
	PagesScanned int           `json:"pages_scanned"`
	TotalChecks  int           `json:"total_checks"`
	Passed       int           `json:"passed"`
	Failed       int           `json:"failed"`
	Warnings     int           `json:"warnings"`
	HumanReview  int           `json:"human_review"`
	Skipped      int           `json:"skipped"`
	Score        int           `json:"score"`
	Results      []CheckResult `json:"results"`
}

// Score computes max(0, 100 - total points deducted).
func Score(results []CheckResult) int {
	lost := 0
	for _, r := range results {
		lost += r.PointsDeducted
	}
	if lost >= 100 {
		return 0
	}
	return 100 - lost
}

// Tally fills the counters and score of the report from its results.
func (s *ScanReport) Tally() {
	s.TotalChecks = len(s.Results)
	s.Passed, s.Failed, s.Warnings, s.HumanReview, s.Skipped = 0, 0, 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusWarn:
			s.Warnings++
		case StatusHumanReview:
			s.HumanReview++
		case StatusSkip:
			s.Skipped++
		}
	}
	s.Score = Score(s.Results)
}
