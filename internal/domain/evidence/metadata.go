package evidence

import (
	"path"
	"strconv"
	"strings"
)

// Tag keys recognized in document metadata, in signature order.
var (
	tagKeysCore   = []string{"domain", "doc_type", "product"}
	tagKeysStrict = []string{"domain", "doc_type", "product", "vendor", "version"}
)

// Metadata describes the provenance of an indexed chunk. It is produced by
// the ingestion collaborator and read-only to the engine.
type Metadata struct {
	Source    string            // original file path or name
	Page      int               // zero-based page number, -1 when unknown
	PageLabel string            // printable page label, e.g. "12" or "iv"
	Tags      map[string]string // catalog tags: domain, doc_type, product, vendor, version
	Entities  []string          // entity names tagged at ingestion time
}

// Filename returns the base name of the source path, or "unknown".
func (m Metadata) Filename() string {
	if m.Source == "" {
		return "unknown"
	}
	return path.Base(m.Source)
}

// PageString returns the printable page: the label when present, the page
// number otherwise, "?" when neither is known.
func (m Metadata) PageString() string {
	if m.PageLabel != "" {
		return m.PageLabel
	}
	if m.Page >= 0 {
		return strconv.Itoa(m.Page)
	}
	return "?"
}

// HasEntity reports whether the chunk was tagged with the given entity.
func (m Metadata) HasEntity(name string) bool {
	for _, e := range m.Entities {
		if strings.EqualFold(strings.TrimSpace(e), name) {
			return true
		}
	}
	return false
}

func normTag(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
