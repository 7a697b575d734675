package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

const longParagraph = `<p>We recieve new patients every day and our team is happy to help you with
vaccines, dental care, and surgery for your companions at every stage of life.</p>`

func TestLeftoverText(t *testing.T) {
	t.Parallel()

	pages := site(t,
		fixturePage{seed, `<html><body><p>Welcome to WhiskerFrame Animal Hospital</p></body></html>`},
		fixturePage{seed + "about", `<html><body><p>About us</p></body></html>`},
	)
	r := rule("LT-001", nil)
	r.SearchText = "WhiskerFrame"

	res := single(t, leftoverText, r, pages, Deps{})
	require.Equal(t, audit.StatusFail, res.Status)
	require.Equal(t, 5, res.PointsDeducted)
	require.Contains(t, res.Details, `Found "WhiskerFrame" on 1 page(s)`)
	require.Equal(t, 95, audit.Score([]audit.CheckResult{res}))

	r.SearchText = "Nonexistent Co"
	res = single(t, leftoverText, r, pages, Deps{})
	require.Equal(t, audit.StatusPass, res.Status)
}

func TestLeftoverTextWithoutSearchTextErrors(t *testing.T) {
	t.Parallel()

	_, err := leftoverText(context.Background(), Input{Pages: site(t), Rule: rule("LT-002", nil)})
	require.ErrorIs(t, err, errNoSearchText)
}

func TestBrandAbsent(t *testing.T) {
	t.Parallel()

	r := rule("BR-001", map[string]any{"brand": "WhiskerCloud"})
	tests := []struct {
		name string
		html string
		want audit.Status
	}{
		{"visible", `<html><body><p>Hosted by WhiskerCloud</p></body></html>`, audit.StatusFail},
		{"markup only", `<html><head><script src="https://cdn.whiskercloud.test/a.js"></script></head><body><p>Hi</p></body></html>`, audit.StatusWarn},
		{"absent", `<html><body><p>Hi</p></body></html>`, audit.StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := single(t, brandAbsent, r, site(t, fixturePage{seed, tt.html}), Deps{})
			require.Equal(t, tt.want, res.Status)
		})
	}
}

func TestPlaceholderText(t *testing.T) {
	t.Parallel()

	pages := site(t, fixturePage{seed, `<html><body><p>Lorem ipsum dolor sit amet</p></body></html>`})
	res := single(t, placeholderText, rule("PH-001", nil), pages, Deps{})
	require.Equal(t, audit.StatusFail, res.Status)
	require.Contains(t, res.Details, "lorem ipsum")
}

func TestGrammarWithoutServiceNeedsReview(t *testing.T) {
	t.Parallel()

	pages := site(t, fixturePage{seed, `<html><body>` + longParagraph + `</body></html>`})
	res := single(t, grammarSpelling, rule("GR-001", nil), pages, Deps{})
	require.Equal(t, audit.StatusHumanReview, res.Status)
}

func TestGrammarUnreachableNeedsReview(t *testing.T) {
	t.Parallel()

	pages := site(t, fixturePage{seed, `<html><body>` + longParagraph + `</body></html>`})
	g := &fakeGrammar{err: errors.New("connection refused")}
	res := single(t, grammarSpelling, rule("GR-001", nil), pages, Deps{Grammar: g})
	require.Equal(t, audit.StatusHumanReview, res.Status)
	require.Contains(t, res.Details, "Could not reach LanguageTool API")
	require.Equal(t, 1, g.calls)
}

func TestGrammarSplitsSpellingAndGrammar(t *testing.T) {
	t.Parallel()

	pages := site(t,
		fixturePage{seed, `<html><body>` + longParagraph + `</body></html>`},
		fixturePage{seed + "short", `<html><body><p>Too short.</p></body></html>`},
	)
	g := &fakeGrammar{matches: matches(t, `[
		{"message": "Possible spelling mistake found.",
		 "replacements": [{"value": "receive"}],
		 "context": {"text": "We recieve new patients", "offset": 3, "length": 7},
		 "rule": {"id": "MORFOLOGIK_RULE_EN_US", "issueType": "misspelling"}},
		{"message": "Possible spelling mistake found.",
		 "context": {"text": "Dr. Okonkwo sees", "offset": 4, "length": 7},
		 "rule": {"id": "MORFOLOGIK_RULE_EN_US", "issueType": "misspelling"}},
		{"message": "Use a comma before 'and'.",
		 "context": {"text": "care and surgery", "offset": 4, "length": 3},
		 "rule": {"id": "COMMA_COMPOUND_SENTENCE", "issueType": "grammar"}}
	]`)}

	results := run(t, grammarSpelling, rule("GR-001", nil), pages, Deps{Grammar: g})
	require.Equal(t, 1, g.calls)
	require.Len(t, results, 2)

	spelling := results[0]
	require.Equal(t, "GR-001", spelling.RuleID)
	require.Equal(t, audit.StatusFail, spelling.Status)
	require.Equal(t, "Spelling errors in visible page content", spelling.Check)
	require.Contains(t, spelling.Details, `"recieve"`)
	require.Contains(t, spelling.Details, "receive")
	require.NotContains(t, spelling.Details, "Okonkwo")

	grammar := results[1]
	require.Equal(t, "GR-001-G", grammar.RuleID)
	require.Equal(t, audit.StatusWarn, grammar.Status)
	require.Zero(t, grammar.PointsDeducted)
}

func TestSkipSpelling(t *testing.T) {
	t.Parallel()

	for word, want := range map[string]bool{
		"Okonkwo":     true,
		"iPhone":      true,
		"gastroscopy": true,
		"heartworm":   true,
		"recieve":     false,
		"":            false,
	} {
		require.Equal(t, want, skipSpelling(word), word)
	}
}
