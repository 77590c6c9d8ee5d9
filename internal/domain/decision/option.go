package decision

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Source is a user-facing provenance reference.
type Source struct {
	Filename string
	Page     string
}

// Option is the de-duplicated, user-facing projection of a candidate group:
// the anchor plus distinct supporting documents, with their sources.
type Option struct {
	id     string
	docs   []evidence.Document
	bestL2 float64
}

// NewOption creates an option over a document set, anchor first.
func NewOption(id string, docs []evidence.Document, bestL2 float64) Option {
	return Option{id: id, docs: docs, bestL2: bestL2}
}

// ID returns the option identifier ("g1", "g2", ...).
func (o Option) ID() string { return o.id }

// Docs returns the option's document set, anchor first.
func (o Option) Docs() []evidence.Document { return o.docs }

// BestL2 returns the anchor's distance score.
func (o Option) BestL2() float64 { return o.bestL2 }

// WithID returns a copy carrying a different id. Used when options are
// renumbered after de-duplication.
func (o Option) WithID(id string) Option {
	o.id = id
	return o
}

// Sources lists distinct (filename, page) pairs in document order.
func (o Option) Sources() []Source {
	seen := make(map[string]struct{}, len(o.docs))
	out := make([]Source, 0, len(o.docs))
	for _, d := range o.docs {
		key := d.SourceKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Source{Filename: d.Meta().Filename(), Page: d.Meta().PageString()})
	}
	return out
}

// SourceSignature is the canonical key identifying this option's source set.
// Options within one Decision must be unique by this signature.
func (o Option) SourceSignature() string {
	srcs := o.Sources()
	keys := make([]string, len(srcs))
	for i, s := range srcs {
		keys[i] = s.Filename + "#" + s.Page
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
