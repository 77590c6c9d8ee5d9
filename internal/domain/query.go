package domain

import "strings"

// KeyPrefix namespaces all evidex keys in the store.
const KeyPrefix = "evidex:"

// Query is an immutable question put to the engine. Entities may be supplied
// by an external extractor; when empty the engine falls back to its own
// alias-based extraction. SelectedOption is set only on selection calls that
// resolve a previously returned ambiguous Decision.
type Query struct {
	text           string
	entities       []string
	selectedOption string
}

// NewQuery creates a query with normalized (trimmed) text.
func NewQuery(text string, entities []string, selectedOption string) Query {
	ents := make([]string, 0, len(entities))
	for _, e := range entities {
		if s := strings.TrimSpace(e); s != "" {
			ents = append(ents, s)
		}
	}
	return Query{
		text:           strings.TrimSpace(text),
		entities:       ents,
		selectedOption: strings.TrimSpace(selectedOption),
	}
}

// Text returns the normalized query text.
func (q Query) Text() string { return q.text }

// Entities returns the pre-extracted entity names, if any.
func (q Query) Entities() []string { return q.entities }

// SelectedOption returns the option id chosen against a prior ambiguous
// Decision, or "" for a regular query.
func (q Query) SelectedOption() string { return q.selectedOption }

// IsSelection reports whether this query resolves a prior ambiguous Decision.
func (q Query) IsSelection() bool { return q.selectedOption != "" }

// IsEmpty reports whether the query carries no text.
func (q Query) IsEmpty() bool { return q.text == "" }
