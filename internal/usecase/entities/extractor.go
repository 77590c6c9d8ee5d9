// Package entities extracts known entity names from query text via
// configured alias patterns. The engine prefers caller-supplied entities;
// this extractor is the fallback when none are given.
package entities

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/evidex/internal/usecase/pattern"
)

// Extractor maps entity names to compiled alias matchers.
type Extractor struct {
	names    []string // sorted for deterministic extraction order
	matchers map[string]*pattern.Matcher
}

// NewExtractor compiles the entity alias map. Invalid alias patterns are a
// configuration error.
func NewExtractor(aliases map[string][]string) (*Extractor, error) {
	matchers := make(map[string]*pattern.Matcher, len(aliases))
	names := make([]string, 0, len(aliases))

	for name, patterns := range aliases {
		m, err := pattern.NewMatcher(patterns)
		if err != nil {
			return nil, fmt.Errorf("entity %q aliases: %w", name, err)
		}
		matchers[name] = m
		names = append(names, name)
	}
	sort.Strings(names)

	return &Extractor{names: names, matchers: matchers}, nil
}

// Extract returns the entity names whose aliases match the query text.
func (e *Extractor) Extract(query string) []string {
	if query == "" {
		return nil
	}
	var hits []string
	for _, name := range e.names {
		if _, ok := e.matchers[name].Match(query); ok {
			hits = append(hits, name)
		}
	}
	return hits
}
