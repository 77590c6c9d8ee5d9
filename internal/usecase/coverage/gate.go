// Package coverage verifies that a resolved evidence set actually addresses
// the entities the query names. Evidence existing is not sufficient if it
// does not cover what was asked.
package coverage

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/usecase/pattern"
)

// Gate checks entity coverage of ok resolutions.
type Gate struct {
	enabled bool
	compare *pattern.Matcher
	generic *pattern.Matcher
}

// NewGate compiles the comparison and generic query markers.
func NewGate(enabled bool, comparePatterns, genericPatterns []string) (*Gate, error) {
	compare, err := pattern.NewMatcher(comparePatterns)
	if err != nil {
		return nil, fmt.Errorf("compare patterns: %w", err)
	}
	generic, err := pattern.NewMatcher(genericPatterns)
	if err != nil {
		return nil, fmt.Errorf("generic patterns: %w", err)
	}
	return &Gate{enabled: enabled, compare: compare, generic: generic}, nil
}

// Check validates the evidence set against the query entities. An empty
// reason means the gate passed; a non-empty reason overrides the outcome to
// a refusal naming the unsupported entities.
//
// Comparison queries naming two or more entities require every one of them
// covered; generic queries that still name entities do too. Specific
// single-entity questions pass on distance evidence alone.
func (g *Gate) Check(queryText string, queryEntities []string, docs []evidence.Document) string {
	if !g.enabled || len(queryEntities) == 0 || len(docs) == 0 {
		return ""
	}

	covered := make(map[string]bool, len(queryEntities))
	for _, d := range docs {
		for _, ent := range queryEntities {
			if d.Meta().HasEntity(ent) {
				covered[strings.ToLower(ent)] = true
			}
		}
	}

	var missing []string
	for _, ent := range queryEntities {
		if !covered[strings.ToLower(ent)] {
			missing = append(missing, ent)
		}
	}
	if len(missing) == 0 {
		return ""
	}

	_, isCompare := g.compare.Match(queryText)
	_, isGeneric := g.generic.Match(queryText)

	if (isCompare && len(queryEntities) >= 2) || isGeneric {
		return "missing document coverage for: " + strings.Join(missing, ", ")
	}
	return ""
}
