package evidence

import "testing"

func TestMetadata_Filename(t *testing.T) {
	if got := (Metadata{Source: "docs/specs/manual.pdf"}).Filename(); got != "manual.pdf" {
		t.Errorf("expected base name, got %q", got)
	}
	if got := (Metadata{}).Filename(); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestMetadata_PageString(t *testing.T) {
	if got := (Metadata{Page: 12, PageLabel: "iv"}).PageString(); got != "iv" {
		t.Errorf("expected label to win, got %q", got)
	}
	if got := (Metadata{Page: 12}).PageString(); got != "12" {
		t.Errorf("expected page number, got %q", got)
	}
	if got := (Metadata{Page: -1}).PageString(); got != "?" {
		t.Errorf("expected ?, got %q", got)
	}
}

func TestMetadata_HasEntity(t *testing.T) {
	m := Metadata{Entities: []string{" MX90 ", "mx110"}}
	if !m.HasEntity("mx90") {
		t.Error("expected case- and space-insensitive match")
	}
	if m.HasEntity("mx200") {
		t.Error("unexpected match")
	}
}

func TestDocument_SameFile(t *testing.T) {
	a := NewDocument("a", "", Metadata{Source: "specs/manual.pdf"}, 0.4)
	b := NewDocument("b", "", Metadata{Source: "other/manual.pdf"}, 0.5)
	c := NewDocument("c", "", Metadata{Source: "catalog.pdf"}, 0.5)
	unknown := NewDocument("d", "", Metadata{}, 0.5)

	if !a.SameFile(b) {
		t.Error("expected same base filename to match")
	}
	if a.SameFile(c) {
		t.Error("unexpected match across files")
	}
	if unknown.SameFile(unknown) {
		t.Error("unknown sources must never match")
	}
}

func TestDocument_PagesWithin(t *testing.T) {
	at := func(page int) Document {
		return NewDocument("x", "", Metadata{Source: "m.pdf", Page: page}, 0.4)
	}
	if !at(3).PagesWithin(at(5), 2) {
		t.Error("expected 2 pages apart to be within 2")
	}
	if at(3).PagesWithin(at(6), 2) {
		t.Error("expected 3 pages apart to be outside 2")
	}
	if at(3).PagesWithin(at(-1), 2) {
		t.Error("unknown pages must never be within range")
	}
}

func TestDocument_WithSoft(t *testing.T) {
	d := NewDocument("a", "", Metadata{}, 0.4)
	soft := d.WithSoft()
	if d.Soft() {
		t.Error("original mutated")
	}
	if !soft.Soft() {
		t.Error("copy not flagged")
	}
}

func TestSignature_Core(t *testing.T) {
	m := Metadata{
		Source: "m.pdf",
		Tags: map[string]string{
			"domain":   "Industrial",
			"doc_type": "manual",
			"product":  " MX90 ",
			"vendor":   "acme",
		},
	}
	sig := NewSignature(m, false)
	if sig != "domain=industrial|doc_type=manual|product=mx90" {
		t.Errorf("unexpected core signature: %q", sig)
	}
	if sig.IsFileScope() {
		t.Error("tag signature classified as file scope")
	}
}

func TestSignature_StrictIncludesVendorVersion(t *testing.T) {
	m := Metadata{
		Source: "m.pdf",
		Tags: map[string]string{
			"domain":   "industrial",
			"doc_type": "manual",
			"product":  "mx90",
			"vendor":   "acme",
			"version":  "2.0",
		},
	}
	sig := NewSignature(m, true)
	want := Signature("domain=industrial|doc_type=manual|product=mx90|vendor=acme|version=2.0")
	if sig != want {
		t.Errorf("unexpected strict signature: %q", sig)
	}
}

func TestSignature_FileScopeFallback(t *testing.T) {
	sig := NewSignature(Metadata{Source: "specs/manual.pdf"}, false)
	if !sig.IsFileScope() {
		t.Fatal("expected file-scope signature for untagged metadata")
	}
	if sig != Signature(FileScopePrefix+"manual.pdf") {
		t.Errorf("unexpected signature: %q", sig)
	}
	if sig.Text() != "file: manual.pdf" {
		t.Errorf("unexpected text form: %q", sig.Text())
	}
}

func TestSignature_Text(t *testing.T) {
	m := Metadata{
		Source: "m.pdf",
		Tags:   map[string]string{"domain": "industrial", "product": "mx90"},
	}
	got := NewSignature(m, false).Text()
	if got != "domain: industrial; product: mx90" {
		t.Errorf("unexpected text form: %q", got)
	}
}

func TestGroup_EntityHits(t *testing.T) {
	anchor := NewDocument("a", "", Metadata{Source: "a.pdf", Entities: []string{"mx90"}}, 0.4)
	member := NewDocument("b", "", Metadata{Source: "a.pdf", Entities: []string{"mx90", "mx110"}}, 0.5)
	g := NewGroup("sig", []Document{anchor, member})

	docHits, anchorHits := g.EntityHits([]string{"mx90", "mx110"})
	if docHits != 3 {
		t.Errorf("expected 3 doc hits, got %d", docHits)
	}
	if anchorHits != 1 {
		t.Errorf("expected 1 anchor hit, got %d", anchorHits)
	}
}

func TestGroup_CoverageRatio(t *testing.T) {
	anchor := NewDocument("a", "", Metadata{Source: "a.pdf", Entities: []string{"mx90"}}, 0.4)
	g := NewGroup("sig", []Document{anchor})

	if got := g.CoverageRatio([]string{"mx90", "mx110"}); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := g.CoverageRatio(nil); got != 0 {
		t.Errorf("expected 0 without entities, got %v", got)
	}
}
