package evidence

// Document is a single scored retrieval hit. Produced by the external vector
// index; read-only to the engine. L2 is the Euclidean distance between query
// and chunk embeddings, lower is more similar.
type Document struct {
	id      string
	content string
	meta    Metadata
	l2      float64
	soft    bool
}

// NewDocument creates a scored document.
func NewDocument(id, content string, meta Metadata, l2 float64) Document {
	return Document{id: id, content: content, meta: meta, l2: l2}
}

// ID returns the chunk identifier.
func (d Document) ID() string { return d.id }

// Content returns the chunk text.
func (d Document) Content() string { return d.content }

// Meta returns the chunk metadata.
func (d Document) Meta() Metadata { return d.meta }

// L2 returns the distance score.
func (d Document) L2() float64 { return d.l2 }

// Soft reports whether the distance gate flagged this document as
// soft-threshold evidence (weaker weight in later tie-breaks).
func (d Document) Soft() bool { return d.soft }

// WithSoft returns a copy flagged as soft evidence.
func (d Document) WithSoft() Document {
	d.soft = true
	return d
}

// SourceKey is the (filename, page) pair used for de-duplication.
func (d Document) SourceKey() string {
	return d.meta.Filename() + "#" + d.meta.PageString()
}

// SameFile reports whether both documents come from the same source file.
func (d Document) SameFile(other Document) bool {
	a, b := d.meta.Filename(), other.meta.Filename()
	return a != "unknown" && a == b
}

// PagesWithin reports whether both documents have known page numbers at most
// n pages apart.
func (d Document) PagesWithin(other Document, n int) bool {
	if d.meta.Page < 0 || other.meta.Page < 0 {
		return false
	}
	diff := d.meta.Page - other.meta.Page
	if diff < 0 {
		diff = -diff
	}
	return diff <= n
}
