package pattern

import (
	"strings"
	"testing"
)

func TestNewMatcher_BlankPattern(t *testing.T) {
	if _, err := NewMatcher([]string{"valid", "   "}); err == nil {
		t.Fatal("expected error for blank pattern")
	}
}

func TestNewMatcher_InvalidRegexp(t *testing.T) {
	if _, err := NewMatcher([]string{"[unclosed"}); err == nil {
		t.Fatal("expected error for invalid regexp")
	}
}

func TestMatcher_CaseInsensitive(t *testing.T) {
	m, err := NewMatcher([]string{`\brecipe\b`})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	raw, ok := m.Match("Best RECIPE for pasta")
	if !ok {
		t.Fatal("expected match")
	}
	if raw != `\brecipe\b` {
		t.Errorf("expected raw pattern, got %q", raw)
	}
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	m, err := NewMatcher([]string{"movie", "recipe"})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	raw, ok := m.Match("recipe for a movie night")
	if !ok {
		t.Fatal("expected match")
	}
	if raw != "movie" {
		t.Errorf("expected first rule to win, got %q", raw)
	}
}

func TestGate_DenyBeforeAllow(t *testing.T) {
	g, err := NewGate([]string{"pump"}, []string{"recipe"})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	// Matches both lists: deny wins.
	c := g.Classify("pump recipe")
	if c.InDomain {
		t.Fatal("expected out of domain")
	}
	if !strings.Contains(c.Reason, `matched deny rule "recipe"`) {
		t.Errorf("unexpected reason: %q", c.Reason)
	}
}

func TestGate_AllowList(t *testing.T) {
	g, err := NewGate([]string{"pump", "valve"}, nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	if c := g.Classify("pump pressure rating"); !c.InDomain {
		t.Errorf("expected in domain, got %q", c.Reason)
	}

	c := g.Classify("weather tomorrow")
	if c.InDomain {
		t.Fatal("expected out of domain")
	}
	if c.Reason != "out of domain: no allow rule matched" {
		t.Errorf("unexpected reason: %q", c.Reason)
	}
}

func TestGate_EmptyAllowListPassesAll(t *testing.T) {
	g, err := NewGate(nil, []string{"stocks?"})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	if c := g.Classify("anything at all"); !c.InDomain {
		t.Errorf("expected in domain with empty allow-list, got %q", c.Reason)
	}
	if c := g.Classify("best stock picks"); c.InDomain {
		t.Error("expected deny rule to fire")
	}
}
