package chi

import (
	"github.com/kailas-cloud/evidex/internal/domain/decision"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeRateLimited       = "rate_limited"
	codeEmbeddingProvider = "embedding_provider_error"
	codeIndexNotFound     = "index_not_found"
	codeInternalError     = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecideRequest is the body of POST /v1/decisions.
type DecideRequest struct {
	Query    string   `json:"query"`
	Entities []string `json:"entities,omitempty"`
}

// SelectRequest is the body of POST /v1/decisions/select. The prior decision
// is round-tripped by the client; the engine holds no session state.
type SelectRequest struct {
	Decision       DecisionDTO `json:"decision"`
	SelectedOption string      `json:"selected_option"`
}

// DecisionDTO is the wire form of a decision.
type DecisionDTO struct {
	Status   string        `json:"status"`
	Evidence []EvidenceDTO `json:"evidence,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Options  []OptionDTO   `json:"options,omitempty"`
	Digest   string        `json:"digest"`
}

// EvidenceDTO is the wire form of a scored document.
type EvidenceDTO struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Source    string            `json:"source,omitempty"`
	Page      int               `json:"page"`
	PageLabel string            `json:"page_label,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Entities  []string          `json:"entities,omitempty"`
	L2        float64           `json:"l2"`
	Soft      bool              `json:"soft,omitempty"`
}

// OptionDTO is the wire form of a clarification option. Evidence is carried
// so a later selection can be resolved without server-side state.
type OptionDTO struct {
	ID       string        `json:"id"`
	BestL2   float64       `json:"best_l2"`
	Sources  []SourceDTO   `json:"sources"`
	Evidence []EvidenceDTO `json:"evidence"`
}

// SourceDTO is a user-facing provenance reference.
type SourceDTO struct {
	Filename string `json:"filename"`
	Page     string `json:"page"`
}

func decisionToDTO(d decision.Decision) DecisionDTO {
	dto := DecisionDTO{
		Status: string(d.Status()),
		Reason: d.RefusalReason(),
		Digest: d.Digest(),
	}

	if docs := d.Evidence(); len(docs) > 0 {
		dto.Evidence = make([]EvidenceDTO, len(docs))
		for i, doc := range docs {
			dto.Evidence[i] = documentToDTO(doc)
		}
	}

	if opts := d.Options(); len(opts) > 0 {
		dto.Options = make([]OptionDTO, len(opts))
		for i, o := range opts {
			dto.Options[i] = optionToDTO(o)
		}
	}

	return dto
}

func optionToDTO(o decision.Option) OptionDTO {
	srcs := o.Sources()
	sources := make([]SourceDTO, len(srcs))
	for i, s := range srcs {
		sources[i] = SourceDTO{Filename: s.Filename, Page: s.Page}
	}

	docs := o.Docs()
	ev := make([]EvidenceDTO, len(docs))
	for i, doc := range docs {
		ev[i] = documentToDTO(doc)
	}

	return OptionDTO{
		ID:       o.ID(),
		BestL2:   o.BestL2(),
		Sources:  sources,
		Evidence: ev,
	}
}

func documentToDTO(doc evidence.Document) EvidenceDTO {
	m := doc.Meta()
	return EvidenceDTO{
		ID:        doc.ID(),
		Content:   doc.Content(),
		Source:    m.Source,
		Page:      m.Page,
		PageLabel: m.PageLabel,
		Tags:      m.Tags,
		Entities:  m.Entities,
		L2:        doc.L2(),
		Soft:      doc.Soft(),
	}
}

func decisionFromDTO(dto DecisionDTO) decision.Decision {
	var docs []evidence.Document
	for _, e := range dto.Evidence {
		docs = append(docs, documentFromDTO(e))
	}

	var opts []decision.Option
	for _, o := range dto.Options {
		optDocs := make([]evidence.Document, len(o.Evidence))
		for i, e := range o.Evidence {
			optDocs[i] = documentFromDTO(e)
		}
		opts = append(opts, decision.NewOption(o.ID, optDocs, o.BestL2))
	}

	return decision.Reconstruct(decision.Status(dto.Status), docs, dto.Reason, opts, dto.Digest)
}

func documentFromDTO(e EvidenceDTO) evidence.Document {
	doc := evidence.NewDocument(e.ID, e.Content, evidence.Metadata{
		Source:    e.Source,
		Page:      e.Page,
		PageLabel: e.PageLabel,
		Tags:      e.Tags,
		Entities:  e.Entities,
	}, e.L2)
	if e.Soft {
		doc = doc.WithSoft()
	}
	return doc
}
