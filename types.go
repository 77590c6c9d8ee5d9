package evidex

import (
	"github.com/kailas-cloud/evidex/internal/domain/decision"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Status is the decision outcome class.
type Status string

const (
	// StatusOK means the engine released a single evidence set.
	StatusOK Status = "ok"
	// StatusRefuse means the engine declined to answer; see Reason.
	StatusRefuse Status = "refuse"
	// StatusAmbiguous means the engine asks the caller to pick an Option.
	StatusAmbiguous Status = "ambiguous"
)

// Document is a scored retrieval hit supplied to or returned by the engine.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
	L2       float64
	Soft     bool
}

// Metadata describes the provenance of an indexed chunk.
type Metadata struct {
	Source    string
	Page      int // zero-based, -1 when unknown
	PageLabel string
	Tags      map[string]string
	Entities  []string
}

// Decision is the engine verdict for one query.
type Decision struct {
	Status   Status
	Evidence []Document
	Reason   string
	Options  []Option
	Digest   string
}

// Option is one clarification choice offered on an ambiguous decision.
type Option struct {
	ID       string
	BestL2   float64
	Sources  []Source
	Evidence []Document
}

// Source is a user-facing provenance reference.
type Source struct {
	Filename string
	Page     string
}

// EmbeddingResult carries an embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

func toInternalDocument(d Document) evidence.Document {
	doc := evidence.NewDocument(d.ID, d.Content, evidence.Metadata{
		Source:    d.Metadata.Source,
		Page:      d.Metadata.Page,
		PageLabel: d.Metadata.PageLabel,
		Tags:      d.Metadata.Tags,
		Entities:  d.Metadata.Entities,
	}, d.L2)
	if d.Soft {
		doc = doc.WithSoft()
	}
	return doc
}

func toInternalDocuments(docs []Document) []evidence.Document {
	out := make([]evidence.Document, len(docs))
	for i, d := range docs {
		out[i] = toInternalDocument(d)
	}
	return out
}

func fromInternalDocument(doc evidence.Document) Document {
	m := doc.Meta()
	return Document{
		ID:      doc.ID(),
		Content: doc.Content(),
		Metadata: Metadata{
			Source:    m.Source,
			Page:      m.Page,
			PageLabel: m.PageLabel,
			Tags:      m.Tags,
			Entities:  m.Entities,
		},
		L2:   doc.L2(),
		Soft: doc.Soft(),
	}
}

func fromInternalDocuments(docs []evidence.Document) []Document {
	if len(docs) == 0 {
		return nil
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = fromInternalDocument(d)
	}
	return out
}

func fromInternalDecision(d decision.Decision) Decision {
	out := Decision{
		Status:   Status(d.Status()),
		Evidence: fromInternalDocuments(d.Evidence()),
		Reason:   d.RefusalReason(),
		Digest:   d.Digest(),
	}
	for _, o := range d.Options() {
		out.Options = append(out.Options, fromInternalOption(o))
	}
	return out
}

func fromInternalOption(o decision.Option) Option {
	opt := Option{
		ID:       o.ID(),
		BestL2:   o.BestL2(),
		Evidence: fromInternalDocuments(o.Docs()),
	}
	for _, s := range o.Sources() {
		opt.Sources = append(opt.Sources, Source{Filename: s.Filename, Page: s.Page})
	}
	return opt
}

func toInternalDecision(d Decision) decision.Decision {
	var opts []decision.Option
	for _, o := range d.Options {
		opts = append(opts, decision.NewOption(o.ID, toInternalDocuments(o.Evidence), o.BestL2))
	}
	return decision.Reconstruct(
		decision.Status(d.Status),
		toInternalDocuments(d.Evidence),
		d.Reason,
		opts,
		d.Digest,
	)
}
