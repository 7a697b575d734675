package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

const maxDetailLen = 120

// sections lists result groups in the order reviewers work through them.
var sections = []struct {
	status audit.Status
	title  string
}{
	{audit.StatusFail, "Failures"},
	{audit.StatusWarn, "Warnings"},
	{audit.StatusHumanReview, "Human Review"},
	{audit.StatusSkip, "Skipped"},
}

// WriteMarkdown writes a reviewer-facing summary. Passing checks are counted
// but not listed.
func WriteMarkdown(w io.Writer, r *audit.ScanReport) error {
	md := markdown.NewMarkdown(w)

	md.H1("Site QA Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", r.SiteURL},
			{"Scan ID", "`" + r.ScanID + "`"},
			{"Partner", r.Partner},
			{"Phase", r.Phase},
			{"Scan Time", r.ScanTime.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Duration.Round(100 * time.Millisecond).String()},
			{"Pages Scanned", strconv.Itoa(r.PagesScanned)},
		},
	})
	md.PlainText("")

	writeSummary(md, r)

	for _, sec := range sections {
		results := byStatus(r.Results, sec.status)
		if len(results) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", sec.title, len(results)))
		md.PlainText("")
		rows := make([][]string, len(results))
		for i, res := range results {
			rows[i] = []string{
				res.RuleID,
				res.Category,
				escapeCell(res.Check),
				escapeCell(truncate(res.Details, maxDetailLen)),
				pageCell(res.PageURL),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rule", "Category", "Check", "Details", "Page"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by %s*", Tool)

	if err := md.Build(); err != nil {
		return fmt.Errorf("build markdown report: %w", err)
	}
	return nil
}

func writeSummary(md *markdown.Markdown, r *audit.ScanReport) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"Passed", strconv.Itoa(r.Passed)},
			{"Failed", strconv.Itoa(r.Failed)},
			{"Warnings", strconv.Itoa(r.Warnings)},
			{"Human Review", strconv.Itoa(r.HumanReview)},
			{"Skipped", strconv.Itoa(r.Skipped)},
			{"**Score**", "**" + strconv.Itoa(r.Score) + "/100**"},
		},
	})
	md.PlainText("")

	if r.TotalChecks > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Check Outcomes"),
			piechart.WithShowData(true),
		)
		for _, part := range []struct {
			label string
			n     int
		}{
			{"Passed", r.Passed},
			{"Failed", r.Failed},
			{"Warnings", r.Warnings},
			{"Human Review", r.HumanReview},
			{"Skipped", r.Skipped},
		} {
			if part.n > 0 {
				chart.LabelAndIntValue(part.label, uint64(part.n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	verdict := Assess(r)
	switch verdict {
	case VerdictCritical, VerdictMajorRework:
		md.Cautionf("%s. %d failed check(s), %d point(s) lost.", verdict, r.Failed, 100-r.Score)
	case VerdictNeedsWork, VerdictMinorIssues:
		md.Warningf("%s. %d failed check(s).", verdict, r.Failed)
	case VerdictReviewPending:
		md.Importantf("%s. %d item(s) need a reviewer.", verdict, r.HumanReview)
	case VerdictReady:
		md.Tip(string(verdict) + ".")
	default:
		md.Note(string(verdict) + ".")
	}
	md.PlainText("")
}

func byStatus(results []audit.CheckResult, status audit.Status) []audit.CheckResult {
	var out []audit.CheckResult
	for _, r := range results {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func pageCell(pageURL string) string {
	if pageURL == "" {
		return "-"
	}
	return pageURL
}

// escapeCell keeps details from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
