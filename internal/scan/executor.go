// Package scan runs a rule catalog against a crawled site and scores it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/checks"
	"github.com/JakeFAU/siteaudit/internal/metrics"
)

// Detail texts for results the executor synthesizes itself.
const (
	notImplementedDetail = "Automated check not yet implemented. Verify manually."
	checkErrorDetail     = "Automated check encountered an error. Verify manually. (%v)"
	manualDetail         = "Requires human judgment - flagged for manual review"
)

// Lookup resolves a check function by identifier.
type Lookup interface {
	Lookup(name string) (checks.Func, bool)
}

// Executor is the isolation boundary between rules and the scan. No rule
// outcome, including a panic, stops the remaining rules.
type Executor struct {
	checks Lookup
	logger *zap.Logger
}

// NewExecutor returns an Executor resolving functions from registry.
func NewExecutor(registry Lookup, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{checks: registry, logger: logger.Named("executor")}
}

// Execute evaluates automated rules in catalog order, then flags every
// non-automated rule for review. Each rule contributes at least one result.
func (e *Executor) Execute(ctx context.Context, pages *audit.CrawlResult, rules []audit.Rule, deps checks.Deps) []audit.CheckResult {
	var results, manual []audit.CheckResult
	for _, rule := range rules {
		if !rule.Automated {
			manual = append(manual, audit.HumanReview(rule, manualDetail))
			continue
		}
		results = append(results, e.run(ctx, pages, rule, deps)...)
	}
	results = append(results, manual...)
	for _, r := range results {
		metrics.ObserveCheck(string(r.Status))
	}
	return results
}

func (e *Executor) run(ctx context.Context, pages *audit.CrawlResult, rule audit.Rule, deps checks.Deps) []audit.CheckResult {
	fn, ok := e.checks.Lookup(rule.CheckFn)
	if rule.CheckFn == "" || !ok {
		e.logger.Debug("no check function", zap.String("rule", rule.ID), zap.String("check_fn", rule.CheckFn))
		return []audit.CheckResult{audit.HumanReview(rule, notImplementedDetail)}
	}
	start := time.Now()
	results, err := invoke(ctx, fn, checks.Input{Pages: pages, Rule: rule, Deps: deps})
	if err != nil {
		e.logger.Warn("check failed",
			zap.String("rule", rule.ID),
			zap.String("check_fn", rule.CheckFn),
			zap.Error(err),
		)
		return []audit.CheckResult{audit.HumanReview(rule, checkErrorDetail, err)}
	}
	if len(results) == 0 {
		e.logger.Warn("check returned no results", zap.String("rule", rule.ID))
		return []audit.CheckResult{audit.HumanReview(rule, checkErrorDetail, errNoResults)}
	}
	e.logger.Debug("check finished",
		zap.String("rule", rule.ID),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

var errNoResults = errors.New("check produced no results")

// invoke calls fn and converts a panic into an error.
func invoke(ctx context.Context, fn checks.Func, in checks.Input) (results []audit.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, in)
}

// PanicError reports a check that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("check panicked: %v", p.Value)
}
