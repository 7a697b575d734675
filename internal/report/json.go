package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// Tool identifies the producer in report metadata.
const Tool = "siteaudit"

type jsonReport struct {
	Metadata jsonMetadata        `json:"metadata"`
	Summary  jsonSummary         `json:"summary"`
	Results  []audit.CheckResult `json:"results"`
}

type jsonMetadata struct {
	Tool            string    `json:"tool"`
	ScanID          string    `json:"scan_id"`
	ScanTime        time.Time `json:"scan_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	SiteURL         string    `json:"site_url"`
	Partner         string    `json:"partner"`
	Phase           string    `json:"phase"`
	PagesScanned    int       `json:"pages_scanned"`
}

type jsonSummary struct {
	Score       int     `json:"score"`
	Verdict     Verdict `json:"verdict"`
	TotalChecks int     `json:"total_checks"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Warnings    int     `json:"warnings"`
	HumanReview int     `json:"human_review"`
	Skipped     int     `json:"skipped"`
}

// WriteJSON writes the machine-readable report used as the audit trail.
func WriteJSON(w io.Writer, r *audit.ScanReport) error {
	out := jsonReport{
		Metadata: jsonMetadata{
			Tool:            Tool,
			ScanID:          r.ScanID,
			ScanTime:        r.ScanTime,
			DurationSeconds: r.Duration.Seconds(),
			SiteURL:         r.SiteURL,
			Partner:         r.Partner,
			Phase:           r.Phase,
			PagesScanned:    r.PagesScanned,
		},
		Summary: jsonSummary{
			Score:       r.Score,
			Verdict:     Assess(r),
			TotalChecks: r.TotalChecks,
			Passed:      r.Passed,
			Failed:      r.Failed,
			Warnings:    r.Warnings,
			HumanReview: r.HumanReview,
			Skipped:     r.Skipped,
		},
		Results: r.Results,
	}
	if out.Results == nil {
		out.Results = []audit.CheckResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}
