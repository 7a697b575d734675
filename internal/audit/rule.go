package audit

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one catalog entry. Rules are loaded once per scan and never mutated.
type Rule struct {
	ID         string     `yaml:"id" json:"id"`
	Category   string     `yaml:"category" json:"category"`
	Check      string     `yaml:"check" json:"check"`
	Phases     StringList `yaml:"phase" json:"phase"`
	Partners   StringList `yaml:"partners,omitempty" json:"partners,omitempty"`
	Automated  bool       `yaml:"automated" json:"automated"`
	Weight     int        `yaml:"weight" json:"weight"`
	CheckFn    string     `yaml:"check_fn,omitempty" json:"check_fn,omitempty"`
	SearchText string     `yaml:"search_text,omitempty" json:"search_text,omitempty"`

	// Params holds the check-specific keys (expected_cta_text, required_pages, ...).
	Params map[string]any `yaml:",inline" json:"-"`
}

// StringList decodes from either a single string or a list of strings, so
// catalogs may write `partners: all` as well as `partners: [a, b]`.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*l = StringList{s}
		return nil
	default:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("decode string list: %w", err)
		}
		*l = list
		return nil
	}
}

// AppliesTo reports whether the rule runs for phase.
func (r Rule) AppliesTo(phase string) bool {
	phase = strings.ToLower(strings.TrimSpace(phase))
	for _, p := range r.Phases {
		if strings.ToLower(p) == phase {
			return true
		}
	}
	return false
}

// ForPartner reports whether the rule runs for partner. An empty list or
// "all" means the rule is universal.
func (r Rule) ForPartner(partner string) bool {
	if len(r.Partners) == 0 {
		return true
	}
	partner = strings.ToLower(strings.TrimSpace(partner))
	for _, p := range r.Partners {
		p = strings.ToLower(p)
		if p == "all" || p == partner {
			return true
		}
	}
	return false
}

// String returns a string parameter or def.
func (r Rule) String(key, def string) string {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// Strings returns a string list parameter or def.
func (r Rule) Strings(key string, def []string) []string {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return def
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return def
	}
}

// Int returns an integer parameter or def.
func (r Rule) Int(key string, def int) int {
	switch v := r.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
