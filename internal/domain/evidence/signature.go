package evidence

import "strings"

// FileScopePrefix marks fallback signatures derived from the filename when a
// document carries no catalog tags.
const FileScopePrefix = "file-scope:"

// Signature is an opaque comparable key that clusters related evidence.
// It is a pure function of document metadata: the same metadata always yields
// the same signature, so grouping is deterministic regardless of input order.
type Signature string

// NewSignature derives the tag signature from metadata. The core form uses
// (domain, doc_type, product); strict additionally includes (vendor, version).
// Documents with no tag values at all fall back to a file-scoped signature so
// sparse corpora still group deterministically.
func NewSignature(m Metadata, strict bool) Signature {
	keys := tagKeysCore
	if strict {
		keys = tagKeysStrict
	}

	parts := make([]string, 0, len(keys))
	empty := true
	for _, k := range keys {
		v := normTag(m.Tags[k])
		if v != "" {
			empty = false
		}
		parts = append(parts, k+"="+v)
	}

	if empty {
		return Signature(FileScopePrefix + m.Filename())
	}
	return Signature(strings.Join(parts, "|"))
}

// IsFileScope reports whether this is a filename-derived fallback signature.
func (s Signature) IsFileScope() bool {
	return strings.HasPrefix(string(s), FileScopePrefix)
}

// Text renders the signature as natural-language-ish text for embedding
// comparison in the query-aware tie-break.
func (s Signature) Text() string {
	if s.IsFileScope() {
		return "file: " + strings.TrimPrefix(string(s), FileScopePrefix)
	}

	parts := make([]string, 0, len(tagKeysStrict))
	for _, kv := range strings.Split(string(s), "|") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || v == "" {
			continue
		}
		parts = append(parts, k+": "+v)
	}
	if len(parts) == 0 {
		return "signature: unknown"
	}
	return strings.Join(parts, "; ")
}
