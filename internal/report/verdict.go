package report

import "github.com/JakeFAU/siteaudit/internal/audit"

// Verdict is the delivery assessment shown at the top of a report.
type Verdict string

// Assessments, from worst to best.
const (
	VerdictCritical      Verdict = "Critical Issues - Fix Before Delivery"
	VerdictMajorRework   Verdict = "Significant Issues - Major Rework"
	VerdictNeedsWork     Verdict = "Needs Work - Several Issues"
	VerdictMinorIssues   Verdict = "Minor Issues - Fix Before Delivery"
	VerdictReviewPending Verdict = "Complete Human Review Checklist"
	VerdictReviewWarns   Verdict = "Review Warnings Before Delivery"
	VerdictAlmostReady   Verdict = "Almost Ready - Review Warnings"
	VerdictReady         Verdict = "Ready for Delivery"
)

// criticalWeight is the rule weight at which a failure blocks delivery
// regardless of score.
const criticalWeight = 5

// Assess grades a tallied report. A site is only ready with no failures, no
// pending review items, and a score of at least 95.
func Assess(r *audit.ScanReport) Verdict {
	critical := false
	for _, res := range r.Results {
		if res.Status == audit.StatusFail && res.Weight >= criticalWeight {
			critical = true
			break
		}
	}
	switch {
	case critical:
		return VerdictCritical
	case r.Failed > 0 && r.Score >= 85:
		return VerdictMinorIssues
	case r.Failed > 0 && r.Score >= 70:
		return VerdictNeedsWork
	case r.Failed > 0:
		return VerdictMajorRework
	case r.HumanReview > 0:
		return VerdictReviewPending
	case r.Score >= 95:
		return VerdictReady
	case r.Score >= 85:
		return VerdictAlmostReady
	default:
		return VerdictReviewWarns
	}
}
