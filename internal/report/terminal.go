package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

var (
	accent  = lipgloss.Color("#5820BA")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	lime    = lipgloss.Color("#84CC16")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(dim)

	statusStyles = map[audit.Status]lipgloss.Style{
		audit.StatusPass:        lipgloss.NewStyle().Foreground(success),
		audit.StatusFail:        lipgloss.NewStyle().Foreground(danger).Bold(true),
		audit.StatusWarn:        lipgloss.NewStyle().Foreground(warning),
		audit.StatusHumanReview: lipgloss.NewStyle().Foreground(accent),
		audit.StatusSkip:        lipgloss.NewStyle().Foreground(dim),
	}
)

func verdictColor(v Verdict) lipgloss.Color {
	switch v {
	case VerdictReady:
		return success
	case VerdictAlmostReady, VerdictMinorIssues:
		return lime
	case VerdictMajorRework:
		return danger
	case VerdictReviewPending:
		return accent
	default:
		return warning
	}
}

// RenderSummary renders the score box and the failing rules for a terminal.
func RenderSummary(r *audit.ScanReport) string {
	var b strings.Builder

	verdict := Assess(r)
	score := lipgloss.NewStyle().Bold(true).Foreground(verdictColor(verdict)).
		Render(fmt.Sprintf("%d/100  %s", r.Score, verdict))
	header := titleStyle.Render(r.SiteURL) + "\n" + score + "\n" +
		dimStyle.Render(fmt.Sprintf("%s / %s  %d pages  %s", r.Partner, r.Phase, r.PagesScanned, r.Duration.Round(100*time.Millisecond)))
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n")

	counts := []string{
		StatusTag(audit.StatusPass) + fmt.Sprintf(" %d", r.Passed),
		StatusTag(audit.StatusFail) + fmt.Sprintf(" %d", r.Failed),
		StatusTag(audit.StatusWarn) + fmt.Sprintf(" %d", r.Warnings),
		StatusTag(audit.StatusHumanReview) + fmt.Sprintf(" %d", r.HumanReview),
	}
	b.WriteString("  " + strings.Join(counts, "   ") + "\n")

	failed := byStatus(r.Results, audit.StatusFail)
	if len(failed) > 0 {
		b.WriteString("\n")
		for _, res := range failed {
			first, _, _ := strings.Cut(res.Details, "\n")
			b.WriteString(fmt.Sprintf("  %s %-8s %s  %s\n",
				statusStyles[audit.StatusFail].Render("●"),
				res.RuleID,
				res.Check,
				dimStyle.Render(truncate(first, 80)),
			))
		}
	}
	return b.String()
}

// StatusTag renders status in its color.
func StatusTag(status audit.Status) string {
	style, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return style.Render(string(status))
}
