// Package rules loads the audit rule catalog and selects the rules that
// apply to a scan.
package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// Phases a scan can run in.
const (
	PhasePrototype = "prototype"
	PhaseFull      = "full"
	PhaseFinal     = "final"
)

// UniversalGroup is the catalog group whose rules apply to every partner.
const UniversalGroup = "universal"

// flatKey holds rules that declare their own partners list.
const flatKey = "rules"

// ErrUnknownCheck is returned by Validate for automated rules naming a check
// function nobody registered.
var ErrUnknownCheck = errors.New("unknown check function")

// Catalog is a parsed rule catalog. Every rule carries its partners, so
// group membership is not needed after parsing.
type Catalog struct {
	rules  []audit.Rule
	groups []string
}

// Load reads a YAML or JSON catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog. Two layouts are accepted: groups keyed by
// "universal" and partner names, or a flat "rules" list where each rule
// names its partners. JSON is a subset of YAML and parses the same way.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string][]audit.Rule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	cat := &Catalog{}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	// universal first, then partners alphabetically, for a stable rule order.
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if (a == UniversalGroup) != (b == UniversalGroup) {
			return a == UniversalGroup
		}
		return a < b
	})
	partners := make(map[string]struct{})
	for _, name := range names {
		group := strings.ToLower(strings.TrimSpace(name))
		for _, rule := range raw[name] {
			if group != UniversalGroup && group != flatKey && len(rule.Partners) == 0 {
				rule.Partners = audit.StringList{group}
			}
			for _, p := range rule.Partners {
				if p = strings.ToLower(strings.TrimSpace(p)); p != "all" && p != "" {
					partners[p] = struct{}{}
				}
			}
			cat.rules = append(cat.rules, rule)
		}
		if group != UniversalGroup && group != flatKey {
			partners[group] = struct{}{}
		}
	}
	for p := range partners {
		cat.groups = append(cat.groups, p)
	}
	sort.Strings(cat.groups)
	return cat, nil
}

// Rules returns every rule in catalog order.
func (c *Catalog) Rules() []audit.Rule {
	return append([]audit.Rule(nil), c.rules...)
}

// Partners lists the partner groups the catalog knows about.
func (c *Catalog) Partners() []string {
	return append([]string(nil), c.groups...)
}

// ForScan returns the rules that apply to partner in phase: universal rules
// first, then partner rules, each in catalog order.
func (c *Catalog) ForScan(partner, phase string) []audit.Rule {
	var out []audit.Rule
	for _, rule := range c.rules {
		if rule.AppliesTo(phase) && rule.ForPartner(partner) {
			out = append(out, rule)
		}
	}
	return out
}

// ValidPhase reports whether phase is a known build phase.
func ValidPhase(phase string) bool {
	switch strings.ToLower(strings.TrimSpace(phase)) {
	case PhasePrototype, PhaseFull, PhaseFinal:
		return true
	default:
		return false
	}
}

// Checks is the view of the check registry that validation needs.
type Checks interface {
	Has(name string) bool
	Optional(name string) bool
}

// Validate reports every malformed rule and every automated rule whose check
// function is unknown to checks and not marked optional. All problems are
// returned together.
func Validate(c *Catalog, checks Checks) error {
	var errs []error
	ids := make(map[string]struct{}, len(c.rules))
	for _, rule := range c.rules {
		label := rule.ID
		if label == "" {
			errs = append(errs, fmt.Errorf("rule %q: missing id", rule.Check))
			label = rule.Check
		}
		key := rule.ID + "|" + strings.Join(rule.Partners, ",")
		if _, dup := ids[key]; dup && rule.ID != "" {
			errs = append(errs, fmt.Errorf("rule %s: duplicate id", label))
		}
		ids[key] = struct{}{}
		if rule.Weight <= 0 {
			errs = append(errs, fmt.Errorf("rule %s: weight must be positive, got %d", label, rule.Weight))
		}
		for _, p := range rule.Phases {
			if !ValidPhase(p) {
				errs = append(errs, fmt.Errorf("rule %s: unknown phase %q", label, p))
			}
		}
		if !rule.Automated {
			continue
		}
		// An automated rule without check_fn is flagged for review when it
		// runs; Warnings reports it.
		if rule.CheckFn != "" && checks != nil && !checks.Has(rule.CheckFn) && !checks.Optional(rule.CheckFn) {
			errs = append(errs, fmt.Errorf("rule %s: %w %q", label, ErrUnknownCheck, rule.CheckFn))
		}
	}
	return errors.Join(errs...)
}

// Warnings lists catalog problems that do not stop a scan. Today that is
// automated rules with no check_fn, which run as manual review items.
func Warnings(c *Catalog) []string {
	var out []string
	for _, rule := range c.rules {
		if rule.Automated && rule.CheckFn == "" {
			out = append(out, fmt.Sprintf("rule %s: automated rule has no check_fn, it will be flagged for manual review", rule.ID))
		}
	}
	return out
}
