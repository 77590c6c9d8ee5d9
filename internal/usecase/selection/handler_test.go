package selection

import (
	"testing"

	"github.com/kailas-cloud/evidex/internal/domain/decision"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

func selDoc(t *testing.T, id string) evidence.Document {
	t.Helper()
	return evidence.NewDocument(id, "content", evidence.Metadata{Source: id + ".pdf", Page: 1}, 0.5)
}

func ambiguousPrior(t *testing.T) decision.Decision {
	t.Helper()
	opts := []decision.Option{
		decision.NewOption("g1", []evidence.Document{selDoc(t, "a")}, 0.4),
		decision.NewOption("g2", []evidence.Document{selDoc(t, "b")}, 0.5),
	}
	return decision.NewAmbiguous(opts, "prior-digest")
}

func TestResolve_ValidSelection(t *testing.T) {
	d := Resolve(ambiguousPrior(t), "g2")
	if d.Status() != decision.StatusOK {
		t.Fatalf("expected ok, got %s (%s)", d.Status(), d.RefusalReason())
	}
	if len(d.Evidence()) != 1 || d.Evidence()[0].ID() != "b" {
		t.Error("expected the selected option's evidence set")
	}
	if d.Digest() == "" {
		t.Error("expected a digest on the selection decision")
	}
}

func TestResolve_UnknownOption(t *testing.T) {
	d := Resolve(ambiguousPrior(t), "g9")
	if d.Status() != decision.StatusRefuse {
		t.Fatalf("expected refuse, got %s", d.Status())
	}
	if d.RefusalReason() != "Invalid selection: g9" {
		t.Errorf("unexpected reason: %q", d.RefusalReason())
	}
}

func TestResolve_NonAmbiguousPrior(t *testing.T) {
	prior := decision.NewOK([]evidence.Document{selDoc(t, "a")}, "prior-digest")
	d := Resolve(prior, "g1")
	if d.Status() != decision.StatusRefuse {
		t.Fatalf("expected refuse, got %s", d.Status())
	}
	if d.RefusalReason() != "Invalid selection: g1" {
		t.Errorf("unexpected reason: %q", d.RefusalReason())
	}
}

func TestResolve_Deterministic(t *testing.T) {
	first := Resolve(ambiguousPrior(t), "g1")
	second := Resolve(ambiguousPrior(t), "g1")
	if first.Digest() != second.Digest() {
		t.Error("identical selections produced different digests")
	}

	other := Resolve(ambiguousPrior(t), "g2")
	if other.Digest() == first.Digest() {
		t.Error("different selections produced the same digest")
	}
}
