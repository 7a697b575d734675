package checks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/services/languagetool"
)

func registerContent(r *Registry) {
	r.Register("check_leftover_text", leftoverText)
	r.Register("check_placeholder_text", placeholderText)
	r.Register("check_no_whiskercloud", brandAbsent)
	r.Register("check_grammar_spelling", grammarSpelling)
}

var errNoSearchText = errors.New("rule has no search_text")

// leftoverText fails when the rule's search text appears in any page source.
func leftoverText(_ context.Context, in Input) ([]audit.CheckResult, error) {
	search := strings.TrimSpace(in.Rule.SearchText)
	if search == "" {
		return nil, errNoSearchText
	}
	needle := strings.ToLower(search)
	var found []string
	for _, p := range in.Pages.Pages() {
		if p.Body != "" && strings.Contains(strings.ToLower(p.Body), needle) {
			found = append(found, p.URL)
		}
	}
	if len(found) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "Found %q on %d page(s): %s", search, len(found), joinFirst(found, 3))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "No instances of %q found", search)}, nil
}

var placeholderPhrases = []string{
	"lorem ipsum", "dolor sit amet", "placeholder text", "sample text",
	"insert text here", "your text here", "coming soon", "under construction",
}

func placeholderText(_ context.Context, in Input) ([]audit.CheckResult, error) {
	var issues []string
	for _, p := range in.Pages.Parsed() {
		text := pageText(p)
		for _, phrase := range placeholderPhrases {
			if strings.Contains(text, phrase) {
				issues = append(issues, fmt.Sprintf("%q on %s", phrase, p.URL))
			}
		}
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "Placeholder text found: %s", joinFirst(issues, 5))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "No placeholder text found")}, nil
}

// brandAbsent fails when a retired brand name is visible, and warns when it
// only survives in markup.
func brandAbsent(_ context.Context, in Input) ([]audit.CheckResult, error) {
	brand := in.Rule.String("brand", in.Rule.SearchText)
	if brand == "" {
		return nil, errors.New("rule has no brand")
	}
	needle := strings.ToLower(brand)
	var visible, source []string
	for _, p := range in.Pages.Parsed() {
		switch {
		case strings.Contains(pageText(p), needle):
			visible = append(visible, p.URL)
		case strings.Contains(lowerHTML(p), needle):
			source = append(source, p.URL)
		}
	}
	switch {
	case len(visible) > 0:
		return []audit.CheckResult{audit.Fail(in.Rule, "%q visible to users on %d page(s):\n%s",
			brand, len(visible), strings.Join(visible, "\n"))}, nil
	case len(source) > 0:
		return []audit.CheckResult{audit.Warn(in.Rule, "%q found in HTML source only on %d page(s): %s",
			brand, len(source), joinFirst(source, 3))}, nil
	default:
		return []audit.CheckResult{audit.Pass(in.Rule, "No %s mentions found", brand)}, nil
	}
}

const (
	grammarMaxPages = 5
	grammarMinText  = 50
	grammarMaxText  = 10000
	grammarMaxTypes = 10
)

var noisyGrammarRules = map[string]bool{
	"WHITESPACE_RULE":              true,
	"COMMA_PARENTHESIS_WHITESPACE": true,
	"UPPERCASE_SENTENCE_START":     true,
	"CONSECUTIVE_SPACES":           true,
	"EN_QUOTES":                    true,
	"DASH_RULE":                    true,
	"MULTIPLICATION_SIGN":          true,
	"ELLIPSIS":                     true,
	"TYPOGRAPHICAL_APOSTROPHE":     true,
}

var (
	medicalPrefixes = []string{
		"micro", "macro", "endo", "echo", "gastro", "ortho", "dermato", "derma",
		"ophthalmo", "cardio", "neuro", "hepato", "nephro", "hemato", "hemo",
		"osteo", "arthro", "rhino", "laryngo", "broncho", "pneumo",
		"laparo", "thoraco", "cranio", "splen", "pancreat",
		"tele", "ultra", "radio", "electro", "thermo", "cryo", "immuno",
		"hyper", "hypo", "peri", "intra", "supra",
	}
	medicalSuffixes = []string{
		"ectomy", "otomy", "ostomy", "ology", "ologist", "itis", "osis",
		"emia", "uria", "penia", "pathy", "plasty", "pexy", "scopy",
		"scopic", "gram", "graph", "graphy", "centesis", "lysis",
		"trophy", "genesis", "stasis", "worm",
	}
	domainTerms = map[string]bool{
		"spay": true, "spayed": true, "neuter": true, "neutered": true, "fecal": true,
		"euthanasia": true, "bloodwork": true, "deworming": true, "dewormer": true,
		"trupanion": true, "petdesk": true, "webapp": true, "signup": true, "login": true,
		"dropdown": true, "popup": true, "tooltip": true, "webpage": true, "website": true,
		"sitemap": true, "homepage": true, "blog": true,
	}
)

// skipSpelling filters flagged words that are almost always false
// positives: names, acronyms, and clinical vocabulary.
func skipSpelling(word string) bool {
	if word == "" {
		return false
	}
	runes := []rune(word)
	w := strings.ToLower(strings.TrimSpace(word))
	if domainTerms[w] {
		return true
	}
	if len(runes) > 1 && unicode.IsUpper(runes[0]) {
		return true
	}
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	for _, prefix := range medicalPrefixes {
		if strings.HasPrefix(w, prefix) && len(w) > len(prefix)+1 {
			return true
		}
	}
	for _, suffix := range medicalSuffixes {
		if strings.HasSuffix(w, suffix) && len(w) > len(suffix)+1 {
			return true
		}
	}
	return false
}

type languageIssue struct {
	page       string
	word       string
	message    string
	suggestion string
}

type issueGroup struct {
	label      string
	suggestion string
	pages      map[string]struct{}
	count      int
}

func (g *issueGroup) sortedPages() []string {
	out := make([]string, 0, len(g.pages))
	for p := range g.pages {
		out = append(out, shortURL(p))
	}
	sort.Strings(out)
	return out
}

func groupIssues(issues []languageIssue, key func(languageIssue) string, label func(languageIssue) string) ([]string, map[string]*issueGroup) {
	var order []string
	groups := make(map[string]*issueGroup)
	for _, is := range issues {
		k := key(is)
		g, ok := groups[k]
		if !ok {
			g = &issueGroup{label: label(is), suggestion: is.suggestion, pages: make(map[string]struct{})}
			groups[k] = g
			order = append(order, k)
		}
		g.pages[is.page] = struct{}{}
		g.count++
	}
	return order, groups
}

// grammarSpelling proofreads the main content of the first pages. Spelling
// mistakes fail the rule; grammar findings are reported as a "-G" warning.
func grammarSpelling(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	if in.Deps.Grammar == nil {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Grammar service not configured. Check grammar and spelling manually.")}, nil
	}
	log := in.Deps.logger()
	var spelling, grammar []languageIssue
	checked := 0
	for i, p := range in.Pages.Pages() {
		if i >= grammarMaxPages {
			break
		}
		if !p.Parsed() {
			continue
		}
		text := contentText(p.Doc)
		if len(text) < grammarMinText {
			continue
		}
		text = truncate(text, grammarMaxText)
		matches, err := in.Deps.Grammar.Check(ctx, text)
		if err != nil {
			log.Debug("grammar check failed", zap.String("url", p.URL), zap.Error(err))
			continue
		}
		checked++
		for _, m := range matches {
			if noisyGrammarRules[m.Rule.ID] {
				continue
			}
			is := languageIssue{page: p.URL, word: m.Word(), message: m.Message, suggestion: suggestions(m)}
			if m.IsSpelling() {
				if skipSpelling(is.word) {
					continue
				}
				spelling = append(spelling, is)
				continue
			}
			grammar = append(grammar, is)
		}
	}

	if checked == 0 {
		return []audit.CheckResult{audit.HumanReview(in.Rule, "Could not reach LanguageTool API. Check grammar and spelling manually.")}, nil
	}
	if len(spelling) == 0 && len(grammar) == 0 {
		return []audit.CheckResult{audit.Pass(in.Rule, "No grammar or spelling issues found across %d page(s)", checked)}, nil
	}

	const spellingCheck = "Spelling errors in visible page content"
	var results []audit.CheckResult
	if len(spelling) > 0 {
		order, groups := groupIssues(spelling,
			func(is languageIssue) string { return strings.ToLower(is.word) },
			func(is languageIssue) string { return is.word })
		sort.Strings(order)
		lines := make([]string, 0, len(order))
		for _, k := range order {
			g := groups[k]
			line := fmt.Sprintf("%q%s: %d occurrence(s)", g.label, g.suggestion, g.count)
			for _, pg := range g.sortedPages() {
				line += "\n  - " + pg
			}
			lines = append(lines, line)
		}
		res := audit.Fail(in.Rule, "%d unique misspelled word(s) (%d total occurrences) across %d page(s):\n%s",
			len(order), len(spelling), checked, strings.Join(lines, "\n"))
		results = append(results, res.WithSuffix("", spellingCheck))
	} else {
		res := audit.Pass(in.Rule, "No spelling errors found across %d page(s)", checked)
		results = append(results, res.WithSuffix("", spellingCheck))
	}

	if len(grammar) > 0 {
		order, groups := groupIssues(grammar,
			func(is languageIssue) string { return truncate(is.message, 80) },
			func(is languageIssue) string { return is.message })
		lines := make([]string, 0, grammarMaxTypes)
		for _, k := range firstN(order, grammarMaxTypes) {
			g := groups[k]
			lines = append(lines, fmt.Sprintf("%s%s: %d occurrence(s) on: %s",
				g.label, g.suggestion, g.count, joinFirst(g.sortedPages(), 2)))
		}
		detail := strings.Join(lines, "\n")
		if len(order) > grammarMaxTypes {
			detail += fmt.Sprintf("\n... and %d more issue types", len(order)-grammarMaxTypes)
		}
		res := audit.Warn(in.Rule, "%d unique grammar issue(s) (%d total) across %d page(s):\n%s",
			len(order), len(grammar), checked, detail)
		results = append(results, res.WithSuffix("-G", "Grammar issues in visible page content"))
	}
	return results, nil
}

func suggestions(m languagetool.Match) string {
	var vals []string
	for _, r := range m.Replacements {
		vals = append(vals, r.Value)
		if len(vals) == 2 {
			break
		}
	}
	if len(vals) == 0 {
		return ""
	}
	return " -> " + strings.Join(vals, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
