// Package detector decides when a statically fetched page must be rendered in
// a browser before it can be audited.
package detector

import (
	"unicode/utf8"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// Defaults for NewHeuristic.
const (
	DefaultMinMarkupBytes = 5000
	DefaultMaxVisibleText = 200
)

// Heuristic flags pages that ship a lot of markup but almost no readable
// text, which is what client-rendered shells look like before scripts run.
type Heuristic struct {
	MinMarkupBytes int
	MaxVisibleText int
	AlwaysRender   bool
}

// NewHeuristic creates a detector. Zero thresholds take the defaults.
func NewHeuristic(minMarkup, maxText int, always bool) *Heuristic {
	if minMarkup <= 0 {
		minMarkup = DefaultMinMarkupBytes
	}
	if maxText <= 0 {
		maxText = DefaultMaxVisibleText
	}
	return &Heuristic{MinMarkupBytes: minMarkup, MaxVisibleText: maxText, AlwaysRender: always}
}

// NeedsRender decides whether page should be escalated. Pages without a
// parsed document never are.
func (h *Heuristic) NeedsRender(page audit.Page) bool {
	if !page.Parsed() {
		return false
	}
	if h.AlwaysRender {
		return true
	}
	if len(page.Body) <= h.MinMarkupBytes {
		return false
	}
	return utf8.RuneCountInString(audit.VisibleText(page.Doc)) < h.MaxVisibleText
}
