// Package pattern implements the out-of-domain query gate: an ordered set of
// deny rules checked before an allow-list, compiled once at startup and
// evaluated purely.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is an ordered, immutable list of compiled case-insensitive rules.
type Matcher struct {
	rules []rule
}

type rule struct {
	raw string
	re  *regexp.Regexp
}

// NewMatcher compiles the given patterns. Invalid or blank patterns are a
// configuration error.
func NewMatcher(patterns []string) (*Matcher, error) {
	rules := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("blank pattern in rule list")
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		rules = append(rules, rule{raw: p, re: re})
	}
	return &Matcher{rules: rules}, nil
}

// Match returns the first rule whose pattern matches the text.
func (m *Matcher) Match(text string) (string, bool) {
	for _, r := range m.rules {
		if r.re.MatchString(text) {
			return r.raw, true
		}
	}
	return "", false
}

// Empty reports whether the matcher holds no rules.
func (m *Matcher) Empty() bool { return len(m.rules) == 0 }

// Classification is the pattern gate verdict.
type Classification struct {
	InDomain bool
	Reason   string // set when out of domain, names the deciding rule
}

// Gate classifies queries as in- or out-of-domain. Deny rules are checked
// first and the first match wins; with a non-empty allow-list, a query
// matching no allow rule is also out of domain.
type Gate struct {
	allow *Matcher
	deny  *Matcher
}

// NewGate compiles the allow and deny pattern lists.
func NewGate(allow, deny []string) (*Gate, error) {
	a, err := NewMatcher(allow)
	if err != nil {
		return nil, fmt.Errorf("allow patterns: %w", err)
	}
	d, err := NewMatcher(deny)
	if err != nil {
		return nil, fmt.Errorf("deny patterns: %w", err)
	}
	return &Gate{allow: a, deny: d}, nil
}

// Classify applies deny rules, then the allow-list, to the query text.
func (g *Gate) Classify(query string) Classification {
	if raw, ok := g.deny.Match(query); ok {
		return Classification{Reason: fmt.Sprintf("out of domain: matched deny rule %q", raw)}
	}
	if !g.allow.Empty() {
		if _, ok := g.allow.Match(query); !ok {
			return Classification{Reason: "out of domain: no allow rule matched"}
		}
	}
	return Classification{InDomain: true}
}
