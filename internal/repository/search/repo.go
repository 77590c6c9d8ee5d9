package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/evidex/internal/db"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Fields stored alongside each chunk in the index. Tag fields mirror the
// catalog written at ingestion time.
var returnFields = []string{
	"__content", "__vector_score",
	"source", "page", "page_label",
	"domain", "doc_type", "product", "vendor", "version",
	"entities",
}

// store is the consumer interface for retrieval (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo retrieves scored evidence from the vector index. It implements
// usecase/engine.Retriever.
type Repo struct {
	store    store
	embedder domain.Embedder
	index    string
}

// New creates a retrieval repository over the named corpus index.
func New(s store, embedder domain.Embedder, index string) *Repo {
	return &Repo{store: s, embedder: embedder, index: index}
}

// Retrieve embeds the query text and runs a KNN search, returning documents
// sorted ascending by L2 distance with ID as tie-break.
func (r *Repo) Retrieve(ctx context.Context, queryText string, fetchK int) ([]evidence.Document, error) {
	res, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	indexName := fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.index)

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       res.Embedding,
		K:            fetchK,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("index %s: %w", r.index, domain.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("search knn %s: %w", r.index, err)
	}

	return parseResults(sr, r.index), nil
}

// parseResults converts db.SearchResult into sorted evidence documents.
func parseResults(sr *db.SearchResult, index string) []evidence.Document {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, index)
	docs := make([]evidence.Document, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, prefix)
		docs = append(docs, parseEntry(docID, entry))
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].L2() != docs[j].L2() {
			return docs[i].L2() < docs[j].L2()
		}
		return docs[i].ID() < docs[j].ID()
	})

	return docs
}

// parseEntry parses a single hit from flat hash fields.
func parseEntry(docID string, entry db.SearchEntry) evidence.Document {
	meta := evidence.Metadata{Page: -1, Tags: make(map[string]string)}
	var content string

	for k, v := range entry.Fields {
		switch k {
		case "__content":
			content = v
		case "source":
			meta.Source = v
		case "page":
			if p, err := strconv.Atoi(v); err == nil {
				meta.Page = p
			}
		case "page_label":
			meta.PageLabel = v
		case "entities":
			meta.Entities = splitEntities(v)
		case "domain", "doc_type", "product", "vendor", "version":
			if v != "" {
				meta.Tags[k] = v
			}
		}
	}

	return evidence.NewDocument(docID, content, meta, entry.Score)
}

// splitEntities parses the comma-separated entities tag field.
func splitEntities(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
