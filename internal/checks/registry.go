// Package checks holds the built-in audit checks and the registry that maps
// catalog check_fn identifiers to them.
package checks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/bulk"
	"github.com/JakeFAU/siteaudit/internal/services/languagetool"
	"github.com/JakeFAU/siteaudit/internal/services/pagespeed"
	"github.com/JakeFAU/siteaudit/internal/services/sitemeta"
)

// Func evaluates one rule against the crawled pages. It may return several
// results, such as a main result plus an advisory "-W" result. A returned
// error is reported as HUMAN_REVIEW by the executor.
type Func func(ctx context.Context, in Input) ([]audit.CheckResult, error)

// Input is everything a check may read.
type Input struct {
	Pages *audit.CrawlResult
	Rule  audit.Rule
	Deps  Deps
}

// LinkVerifier probes external references in bulk.
type LinkVerifier interface {
	Verify(ctx context.Context, kind string, targets []bulk.Target, limit int) bulk.Outcome
}

// PageSpeed returns rendered audits for a page, or nil when unavailable.
type PageSpeed interface {
	Analyze(ctx context.Context, pageURL string) *pagespeed.Result
}

// Grammar proofreads text.
type Grammar interface {
	Check(ctx context.Context, text string) ([]languagetool.Match, error)
}

// SiteMeta exposes CMS backend metadata.
type SiteMeta interface {
	Data(ctx context.Context) (*sitemeta.SiteData, error)
}

// Deps are the optional collaborators of a scan. A nil collaborator puts
// the checks that need it on their degraded path.
type Deps struct {
	Verifier  LinkVerifier
	PageSpeed PageSpeed
	Grammar   Grammar
	SiteMeta  SiteMeta
	Logger    *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Registry maps check identifiers to functions. It is safe for concurrent
// reads once populated.
type Registry struct {
	mu       sync.RWMutex
	fns      map[string]Func
	optional map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns:      make(map[string]Func),
		optional: make(map[string]bool),
	}
}

// Register adds fn under name. Registering a name twice is a programming
// error and panics.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.fns[name]; dup {
		panic(fmt.Sprintf("checks: %q registered twice", name))
	}
	if fn == nil {
		panic(fmt.Sprintf("checks: nil func for %q", name))
	}
	r.fns[name] = fn
}

// MarkOptional records that a catalog may name check without it being an
// error when the function is absent.
func (r *Registry) MarkOptional(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optional[name] = true
}

// checkPrefix is the conventional prefix of built-in identifiers. Catalogs may
// omit it: "leftover_text" names check_leftover_text.
const checkPrefix = "check_"

// Lookup returns the function registered under name, with or without the
// check_ prefix.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.fns[name]; ok {
		return fn, true
	}
	if name == "" || strings.HasPrefix(name, checkPrefix) {
		return nil, false
	}
	fn, ok := r.fns[checkPrefix+name]
	return fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Optional reports whether name was marked optional.
func (r *Registry) Optional(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.optional[name] {
		return true
	}
	return name != "" && !strings.HasPrefix(name, checkPrefix) && r.optional[checkPrefix+name]
}

// Names lists registered identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry holding every built-in check.
func Default() *Registry {
	r := NewRegistry()
	registerContent(r)
	registerContact(r)
	registerFooter(r)
	registerSEO(r)
	registerMedia(r)
	registerLinks(r)
	registerWidgets(r)
	registerLayout(r)
	registerPartner(r)
	registerManual(r)
	registerPerformance(r)
	registerBackend(r)
	return r
}
