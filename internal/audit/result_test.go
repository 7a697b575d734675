package audit

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructorsDeductOnlyOnFail(t *testing.T) {
	t.Parallel()

	rule := Rule{ID: "R-1", Category: "Content", Check: "c", Weight: 7}
	require.Equal(t, 7, Fail(rule, "x").PointsDeducted)
	require.Zero(t, Warn(rule, "x").PointsDeducted)
	require.Zero(t, Pass(rule, "x").PointsDeducted)
	require.Zero(t, HumanReview(rule, "x").PointsDeducted)
	require.Zero(t, Skip(rule, "x").PointsDeducted)
}

func TestScoreClampsAtZero(t *testing.T) {
	t.Parallel()

	rule := Rule{ID: "R", Weight: 60}
	require.Equal(t, 100, Score(nil))
	require.Equal(t, 40, Score([]CheckResult{Fail(rule, "a")}))
	require.Equal(t, 0, Score([]CheckResult{Fail(rule, "a"), Fail(rule, "b")}))
}

func TestScoreIndependentOfOrderAndMonotonic(t *testing.T) {
	t.Parallel()

	var results []CheckResult
	for i := 1; i <= 12; i++ {
		rule := Rule{ID: "R", Weight: i}
		switch i % 3 {
		case 0:
			results = append(results, Fail(rule, "f"))
		case 1:
			results = append(results, Warn(rule, "w"))
		default:
			results = append(results, Pass(rule, "p"))
		}
	}
	want := Score(results)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]CheckResult(nil), results...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Score(shuffled))
	}

	more := append(results, Fail(Rule{ID: "X", Weight: 1}, "f"))
	require.LessOrEqual(t, Score(more), want)
	withWarn := append(results, Warn(Rule{ID: "Y", Weight: 50}, "w"))
	require.Equal(t, want, Score(withWarn))
}

func TestTallyCountsStatuses(t *testing.T) {
	t.Parallel()

	rule := Rule{ID: "LT-001", Weight: 5}
	report := ScanReport{Results: []CheckResult{
		Fail(rule, "found"),
		Pass(rule, "ok"),
		Warn(rule, "hmm"),
		HumanReview(rule, "look"),
		Skip(rule, "n/a"),
	}}
	report.Tally()

	require.Equal(t, 5, report.TotalChecks)
	require.Equal(t, 1, report.Passed)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Warnings)
	require.Equal(t, 1, report.HumanReview)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 95, report.Score)
}

func TestWithSuffixKeepsDeduction(t *testing.T) {
	t.Parallel()

	rule := Rule{ID: "LNK-1", Check: "Links", Weight: 4}
	w := Warn(rule, "403").WithSuffix("-W", "Blocked links")
	require.Equal(t, "LNK-1-W", w.RuleID)
	require.Equal(t, "Blocked links", w.Check)
	require.Zero(t, w.PointsDeducted)
}

func TestRuleParams(t *testing.T) {
	t.Parallel()

	rule := Rule{
		Phases:   []string{"Full", "final"},
		Partners: []string{"western"},
		Params: map[string]any{
			"expected_cta_text": "Book Now",
			"required_pages":    []any{"home", "about"},
			"max_services":      7,
			"expected_columns":  float64(4),
		},
	}
	require.True(t, rule.AppliesTo("full"))
	require.False(t, rule.AppliesTo("prototype"))
	require.True(t, rule.ForPartner("Western"))
	require.False(t, rule.ForPartner("united"))
	require.Equal(t, "Book Now", rule.String("expected_cta_text", "x"))
	require.Equal(t, "x", rule.String("missing", "x"))
	require.Equal(t, []string{"home", "about"}, rule.Strings("required_pages", nil))
	require.Equal(t, 7, rule.Int("max_services", 5))
	require.Equal(t, 4, rule.Int("expected_columns", 3))
	require.Equal(t, 3, rule.Int("missing", 3))
}

func TestCrawlResultKeepsFirstAndOrder(t *testing.T) {
	t.Parallel()

	r := NewCrawlResult("https://a.test/")
	r.Add(Page{URL: "https://a.test/", StatusCode: 200})
	r.Add(Page{URL: "https://a.test/b", StatusCode: 200})
	r.Add(Page{URL: "https://a.test/", StatusCode: 500})

	require.Equal(t, 2, r.Len())
	require.Equal(t, []string{"https://a.test/", "https://a.test/b"}, r.URLs())
	home, ok := r.Homepage()
	require.True(t, ok)
	require.Equal(t, 200, home.StatusCode)
}
