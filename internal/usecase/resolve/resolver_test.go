package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// --- Helpers ---

func defaultConfig() Config {
	return Config{
		MinGroupGap:      0.2,
		MaxOptions:       3,
		FinalK:           4,
		EntityResolve:    true,
		QueryTiebreak:    false,
		MinSimilarity:    0.35,
		MinSimilarityGap: 0.05,
	}
}

func newResolver(t *testing.T, cfg Config, generic []string, embed EmbedFunc) *Resolver {
	t.Helper()
	r, err := New(cfg, generic, embed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func groupDoc(t *testing.T, id string, l2 float64, source string, page int, product string, ents ...string) evidence.Document {
	t.Helper()
	meta := evidence.Metadata{
		Source:   source,
		Page:     page,
		Tags:     map[string]string{"domain": "industrial", "doc_type": "manual", "product": product},
		Entities: ents,
	}
	return evidence.NewDocument(id, "content of "+id, meta, l2)
}

func makeGroup(t *testing.T, docs ...evidence.Document) evidence.Group {
	t.Helper()
	if len(docs) == 0 {
		t.Fatal("makeGroup needs at least one doc")
	}
	sig := evidence.NewSignature(docs[0].Meta(), false)
	return evidence.NewGroup(sig, docs)
}

func query(text string, ents ...string) domain.Query {
	return domain.NewQuery(text, ents, "")
}

func hasTraceEntry(res Resolution, substr string) bool {
	for _, line := range res.Trace {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// --- Tests ---

func TestNew_RejectsNonPositiveMaxOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxOptions = 0
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("expected error for zero max options")
	}

	cfg.MaxOptions = -1
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("expected error for negative max options")
	}
}

func TestResolve_SingleGroup(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	g := makeGroup(t, groupDoc(t, "a", 0.5, "mx90.pdf", 3, "mx90"))

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: []evidence.Group{g}})
	if !res.OK {
		t.Fatal("expected resolved")
	}
	if res.Rule != "single_group" {
		t.Errorf("expected single_group, got %s", res.Rule)
	}
	if res.Group.Anchor().ID() != "a" {
		t.Errorf("unexpected group anchor %s", res.Group.Anchor().ID())
	}
}

func TestResolve_ForcedAmbiguity(t *testing.T) {
	r := newResolver(t, defaultConfig(), []string{`\boverview\b`}, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.5, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.55, "mx110.pdf", 7, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("product overview"), Groups: groups})
	if res.OK {
		t.Fatal("expected ambiguous")
	}
	if res.Rule != "forced_ambiguity" {
		t.Errorf("expected forced_ambiguity, got %s", res.Rule)
	}
	if len(res.Options) != 2 {
		t.Errorf("expected 2 options, got %d", len(res.Options))
	}
}

func TestResolve_ForcedAmbiguitySkippedWithEntities(t *testing.T) {
	r := newResolver(t, defaultConfig(), []string{`\boverview\b`}, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.5, "mx90.pdf", 3, "mx90", "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.55, "mx110.pdf", 7, "mx110")),
	}

	// Entity facets on a generic query: entity resolve takes over.
	res := r.Resolve(context.Background(), Input{
		Query:    query("mx90 overview"),
		Entities: []string{"mx90"},
		Groups:   groups,
	})
	if !res.OK {
		t.Fatal("expected resolved")
	}
	if res.Rule != "entity_resolve" {
		t.Errorf("expected entity_resolve, got %s", res.Rule)
	}
}

func TestResolve_EntityResolve(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.5, "mx90.pdf", 3, "mx90", "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.52, "mx110.pdf", 7, "mx110", "mx110")),
	}

	res := r.Resolve(context.Background(), Input{
		Query:    query("mx110 pressure"),
		Entities: []string{"mx110"},
		Groups:   groups,
	})
	if !res.OK {
		t.Fatal("expected resolved")
	}
	if res.Rule != "entity_resolve" {
		t.Errorf("expected entity_resolve, got %s", res.Rule)
	}
	if res.Group.Anchor().ID() != "b" {
		t.Errorf("expected entity-matching group, got anchor %s", res.Group.Anchor().ID())
	}
}

func TestResolve_EntityResolveSoftWeighting(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	// Both groups carry the entity; the soft anchor counts half, so the
	// full-weight group wins despite ranking second by distance.
	soft := groupDoc(t, "a", 0.5, "mx90-old.pdf", 3, "mx90a", "mx90").WithSoft()
	full := groupDoc(t, "b", 0.55, "mx90.pdf", 7, "mx90b", "mx90")
	groups := []evidence.Group{makeGroup(t, soft), makeGroup(t, full)}

	res := r.Resolve(context.Background(), Input{
		Query:    query("mx90 pressure"),
		Entities: []string{"mx90"},
		Groups:   groups,
	})
	if !res.OK {
		t.Fatal("expected resolved")
	}
	if res.Group.Anchor().ID() != "b" {
		t.Errorf("expected full-weight group to win, got anchor %s", res.Group.Anchor().ID())
	}
}

func TestResolve_EntityResolveTieFallsThrough(t *testing.T) {
	cfg := defaultConfig()
	cfg.MinGroupGap = 0 // keep score_gap out of the way
	r := newResolver(t, cfg, nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.5, "mx90.pdf", 3, "mx90a", "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.55, "mx90-b.pdf", 7, "mx90b", "mx90")),
	}

	res := r.Resolve(context.Background(), Input{
		Query:    query("mx90 pressure"),
		Entities: []string{"mx90"},
		Groups:   groups,
	})
	if res.OK {
		t.Fatal("expected tie to fall through to ambiguity")
	}
	if res.Rule != "fallback" {
		t.Errorf("expected fallback, got %s", res.Rule)
	}
}

func TestResolve_EntityResolveDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.EntityResolve = false
	cfg.MinGroupGap = 0
	r := newResolver(t, cfg, nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.5, "mx90.pdf", 3, "mx90", "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.55, "mx110.pdf", 7, "mx110", "mx110")),
	}

	res := r.Resolve(context.Background(), Input{
		Query:    query("mx90 pressure"),
		Entities: []string{"mx90"},
		Groups:   groups,
	})
	if res.Rule == "entity_resolve" {
		t.Error("entity_resolve fired while disabled")
	}
}

func TestResolve_ScoreGap(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.75, "mx110.pdf", 7, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if !res.OK {
		t.Fatal("expected resolved")
	}
	if res.Rule != "score_gap" {
		t.Errorf("expected score_gap, got %s", res.Rule)
	}
	if res.Group.Anchor().ID() != "a" {
		t.Errorf("expected best group, got anchor %s", res.Group.Anchor().ID())
	}
}

func TestResolve_ScoreGapTooSmall(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.5, "mx110.pdf", 7, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if res.OK {
		t.Fatal("expected ambiguous")
	}
	if res.Rule != "fallback" {
		t.Errorf("expected fallback, got %s", res.Rule)
	}
}

func TestResolve_QueryTiebreak(t *testing.T) {
	cfg := defaultConfig()
	cfg.QueryTiebreak = true
	cfg.MinGroupGap = 0.9 // keep score_gap out of the way
	embed := func(_ context.Context, texts []string) ([][]float32, error) {
		// Query aligned with the second group's signature text.
		vecs := make([][]float32, len(texts))
		vecs[0] = []float32{0, 1}
		vecs[1] = []float32{1, 0}
		vecs[2] = []float32{0.1, 0.9}
		return vecs, nil
	}
	r := newResolver(t, cfg, nil, embed)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.5, "mx110.pdf", 7, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("mx110 details"), Groups: groups})
	if !res.OK {
		t.Fatal("expected resolved")
	}
	if res.Rule != "query_tiebreak" {
		t.Errorf("expected query_tiebreak, got %s", res.Rule)
	}
	if res.Group.Anchor().ID() != "b" {
		t.Errorf("expected most similar group, got anchor %s", res.Group.Anchor().ID())
	}
}

func TestResolve_QueryTiebreakWeakSimilarity(t *testing.T) {
	cfg := defaultConfig()
	cfg.QueryTiebreak = true
	cfg.MinGroupGap = 0.9
	embed := func(_ context.Context, texts []string) ([][]float32, error) {
		// Near-orthogonal everywhere: below MinSimilarity.
		vecs := make([][]float32, len(texts))
		vecs[0] = []float32{0, 1}
		for i := 1; i < len(texts); i++ {
			vecs[i] = []float32{1, 0.1}
		}
		return vecs, nil
	}
	r := newResolver(t, cfg, nil, embed)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.5, "mx110.pdf", 7, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if res.OK {
		t.Fatal("expected fall-through to ambiguity")
	}
	if res.Rule != "fallback" {
		t.Errorf("expected fallback, got %s", res.Rule)
	}
}

func TestResolve_QueryTiebreakEmbedFailure(t *testing.T) {
	cfg := defaultConfig()
	cfg.QueryTiebreak = true
	cfg.MinGroupGap = 0.9
	embed := func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}
	r := newResolver(t, cfg, nil, embed)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.5, "mx110.pdf", 7, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if res.OK {
		t.Fatal("expected fall-through to ambiguity, not an error")
	}
	if res.Rule != "fallback" {
		t.Errorf("expected fallback, got %s", res.Rule)
	}
	if !hasTraceEntry(res, "resolve:tiebreak=unavailable") {
		t.Errorf("expected unavailable marker in trace, got %v", res.Trace)
	}
}

func TestResolve_FallbackOptions(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.5, "mx110.pdf", 7, "mx110")),
		makeGroup(t, groupDoc(t, "c", 0.55, "mx200.pdf", 2, "mx200")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if res.OK {
		t.Fatal("expected ambiguous")
	}
	if len(res.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(res.Options))
	}
	for i, opt := range res.Options {
		want := []string{"g1", "g2", "g3"}[i]
		if opt.ID() != want {
			t.Errorf("option %d: expected id %s, got %s", i, want, opt.ID())
		}
		if len(opt.Docs()) == 0 {
			t.Errorf("option %s carries no evidence", opt.ID())
		}
	}
}

func TestResolve_FallbackDedupToSingleOptionResolves(t *testing.T) {
	r := newResolver(t, defaultConfig(), nil, nil)
	// Two groups citing the identical source set collapse into one option;
	// no real ambiguity remains.
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "shared.pdf", 3, "mx90")),
		makeGroup(t, groupDoc(t, "b", 0.5, "shared.pdf", 3, "mx110")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if !res.OK {
		t.Fatal("expected single deduplicated option to resolve")
	}
	if res.Rule != "fallback" {
		t.Errorf("expected fallback, got %s", res.Rule)
	}
	if res.Group.Anchor().ID() != "a" {
		t.Errorf("expected best-ranked group, got anchor %s", res.Group.Anchor().ID())
	}
}

func TestResolve_MaxOptionsCap(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxOptions = 2
	r := newResolver(t, cfg, nil, nil)
	groups := []evidence.Group{
		makeGroup(t, groupDoc(t, "a", 0.4, "a.pdf", 1, "p1")),
		makeGroup(t, groupDoc(t, "b", 0.45, "b.pdf", 1, "p2")),
		makeGroup(t, groupDoc(t, "c", 0.5, "c.pdf", 1, "p3")),
		makeGroup(t, groupDoc(t, "d", 0.55, "d.pdf", 1, "p4")),
	}

	res := r.Resolve(context.Background(), Input{Query: query("pressure"), Groups: groups})
	if res.OK {
		t.Fatal("expected ambiguous")
	}
	if len(res.Options) != 2 {
		t.Fatalf("expected cap at 2 options, got %d", len(res.Options))
	}
	if res.Options[0].BestL2() != 0.4 || res.Options[1].BestL2() != 0.45 {
		t.Error("expected the two best-ranked groups to survive the cap")
	}
}

func TestResolve_OptionDocsDistinct(t *testing.T) {
	r := newResolver(t, defaultConfig(), []string{"overview"}, nil)
	g1 := makeGroup(t,
		groupDoc(t, "a", 0.4, "mx90.pdf", 3, "mx90"),
		groupDoc(t, "a2", 0.45, "mx90.pdf", 3, "mx90"), // duplicate (file, page)
		groupDoc(t, "a3", 0.5, "mx90.pdf", 8, "mx90"),
	)
	g2 := makeGroup(t, groupDoc(t, "b", 0.5, "mx110.pdf", 7, "mx110"))

	res := r.Resolve(context.Background(), Input{Query: query("overview"), Groups: []evidence.Group{g1, g2}})
	if res.OK {
		t.Fatal("expected ambiguous")
	}
	opt := res.Options[0]
	seen := map[string]bool{}
	for _, d := range opt.Docs() {
		if seen[d.SourceKey()] {
			t.Errorf("duplicate source %s in option evidence", d.SourceKey())
		}
		seen[d.SourceKey()] = true
	}
	if opt.Docs()[0].ID() != "a" {
		t.Errorf("expected anchor first, got %s", opt.Docs()[0].ID())
	}
}
