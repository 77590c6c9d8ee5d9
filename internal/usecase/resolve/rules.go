package resolve

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/evidex/internal/domain/decision"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Rule 1: a single topic cluster leaves no room for ambiguity.
func (r *Resolver) singleGroup(_ context.Context, in Input, _ *[]string) *Resolution {
	if len(in.Groups) != 1 {
		return nil
	}
	return &Resolution{OK: true, Group: in.Groups[0]}
}

// Rule 2: generic/overview queries without entity facets span clusters by
// nature; resolution is skipped entirely.
func (r *Resolver) forcedAmbiguity(_ context.Context, in Input, trace *[]string) *Resolution {
	if len(in.Entities) > 0 {
		return nil
	}
	raw, ok := r.generic.Match(in.Query.Text())
	if !ok {
		return nil
	}
	*trace = append(*trace, fmt.Sprintf("resolve:generic=%q", raw))
	return &Resolution{Options: r.buildOptions(in.Groups)}
}

// Rule 3: entity-aware resolve. Each group scores by weighted anchor entity
// hits, weighted aggregate doc hits, and coverage ratio, compared
// lexicographically. Soft-flagged documents count half. Exactly one strict
// winner resolves; ties fall through with the ranked list intact.
func (r *Resolver) entityResolve(_ context.Context, in Input, trace *[]string) *Resolution {
	if !r.cfg.EntityResolve || len(in.Entities) == 0 {
		return nil
	}

	scores := make([]groupScore, len(in.Groups))
	for i, g := range in.Groups {
		scores[i] = groupScore{
			idx:    i,
			anchor: weightedAnchorHits(g, in.Entities),
			docs:   weightedDocHits(g, in.Entities),
			ratio:  g.CoverageRatio(in.Entities),
		}
	}

	best := scores[0]
	uniqueBest := true
	for _, s := range scores[1:] {
		switch s.compare(best) {
		case 1:
			best = s
			uniqueBest = true
		case 0:
			uniqueBest = false
		}
	}

	*trace = append(*trace, fmt.Sprintf(
		"resolve:entity_best=%d anchor=%.1f docs=%.1f ratio=%.2f unique=%t",
		best.idx, best.anchor, best.docs, best.ratio, uniqueBest,
	))

	if !uniqueBest || (best.anchor == 0 && best.docs == 0) {
		return nil
	}
	return &Resolution{OK: true, Group: in.Groups[best.idx]}
}

// groupScore is the composite entity score of a group: weighted anchor hits,
// weighted aggregate doc hits, and entity coverage ratio, compared in that
// order.
type groupScore struct {
	idx    int
	anchor float64
	docs   float64
	ratio  float64
}

// compare returns 1 when a outranks b, -1 when it trails, 0 on a tie.
func (a groupScore) compare(b groupScore) int {
	switch {
	case a.anchor != b.anchor:
		if a.anchor > b.anchor {
			return 1
		}
		return -1
	case a.docs != b.docs:
		if a.docs > b.docs {
			return 1
		}
		return -1
	case a.ratio != b.ratio:
		if a.ratio > b.ratio {
			return 1
		}
		return -1
	default:
		return 0
	}
}

func weightedAnchorHits(g evidence.Group, entities []string) float64 {
	weight := 1.0
	if g.Anchor().Soft() {
		weight = 0.5
	}
	hits := 0.0
	for _, ent := range entities {
		if g.Anchor().Meta().HasEntity(ent) {
			hits += weight
		}
	}
	return hits
}

func weightedDocHits(g evidence.Group, entities []string) float64 {
	hits := 0.0
	for _, m := range g.Members() {
		weight := 1.0
		if m.Soft() {
			weight = 0.5
		}
		for _, ent := range entities {
			if m.Meta().HasEntity(ent) {
				hits += weight
			}
		}
	}
	return hits
}

// Rule 4: a sufficiently large distance gap between the two best groups
// resolves to the best one.
func (r *Resolver) scoreGap(_ context.Context, in Input, trace *[]string) *Resolution {
	if len(in.Groups) < 2 || r.cfg.MinGroupGap <= 0 {
		return nil
	}
	gap := in.Groups[1].BestL2() - in.Groups[0].BestL2()
	*trace = append(*trace, fmt.Sprintf("resolve:group_gap=%.4f", gap))
	if gap < r.cfg.MinGroupGap {
		return nil
	}
	return &Resolution{OK: true, Group: in.Groups[0]}
}

// Rule 6: fallback. Emit explicit ambiguity with source-deduplicated options
// built from the ranked groups. When de-duplication collapses everything into
// one option the groups cite the same sources, so there is no real ambiguity
// and that option resolves.
func (r *Resolver) fallback(_ context.Context, in Input, trace *[]string) *Resolution {
	options := r.buildOptions(in.Groups)
	*trace = append(*trace, fmt.Sprintf("resolve:options=%d", len(options)))

	if len(options) == 1 {
		return &Resolution{OK: true, Group: in.Groups[0]}
	}
	return &Resolution{Options: options}
}

// buildOptions projects the ranked groups into user-facing options:
// anchor plus distinct supporting docs, de-duplicated by source signature,
// renumbered g1..gN, capped at MaxOptions.
func (r *Resolver) buildOptions(groups []evidence.Group) []decision.Option {
	raw := make([]decision.Option, 0, len(groups))
	for i, g := range groups {
		docs := selectDistinctDocs(g, r.cfg.FinalK)
		raw = append(raw, decision.NewOption(fmt.Sprintf("g%d", i+1), docs, g.BestL2()))
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]decision.Option, 0, len(raw))
	for _, opt := range raw {
		sig := opt.SourceSignature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, opt.WithID(fmt.Sprintf("g%d", len(out)+1)))
		if len(out) == r.cfg.MaxOptions {
			break
		}
	}
	return out
}

// selectDistinctDocs picks the anchor plus up to finalK-1 supporting docs,
// preferring new pages, then new files, then anything not an exact
// (filename, page) duplicate.
func selectDistinctDocs(g evidence.Group, finalK int) []evidence.Document {
	anchor := g.Anchor()
	need := finalK - 1
	if need < 0 {
		need = 0
	}

	picked := []evidence.Document{anchor}
	seenSig := map[string]struct{}{anchor.SourceKey(): {}}
	seenFiles := map[string]struct{}{anchor.Meta().Filename(): {}}
	seenPages := map[string]struct{}{anchor.Meta().PageString(): {}}

	for phase := 0; phase < 3 && len(picked) <= need; phase++ {
		for _, cand := range g.Members()[1:] {
			if len(picked) > need {
				break
			}
			if _, dup := seenSig[cand.SourceKey()]; dup {
				continue
			}

			file := cand.Meta().Filename()
			page := cand.Meta().PageString()
			pick := false
			switch phase {
			case 0:
				_, seen := seenPages[page]
				pick = !seen
			case 1:
				_, seen := seenFiles[file]
				pick = !seen
			case 2:
				pick = true
			}
			if !pick {
				continue
			}

			picked = append(picked, cand)
			seenSig[cand.SourceKey()] = struct{}{}
			seenFiles[file] = struct{}{}
			seenPages[page] = struct{}{}
		}
	}

	return picked
}
