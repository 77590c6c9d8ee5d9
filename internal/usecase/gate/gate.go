// Package gate implements the distance gate: absolute, density, and
// confidence-gap checks over raw L2 scores. It decides which scored documents
// count as evidence at all; everything downstream only ever sees survivors.
package gate

import (
	"sort"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Config holds the distance thresholds. Zero-valued optional thresholds
// disable their check.
type Config struct {
	MaxL2Hard        float64 // hard reject above this distance
	MaxL2Soft        float64 // soft-flag between soft and hard; 0 disables
	DensityWindow    float64 // window above the best score counted for density
	MinDensityCount  int     // minimum docs inside the density window
	MinConfidenceGap float64 // best-vs-second gap below this is untrusted; 0 disables
}

// Result is the gate outcome.
type Result struct {
	// Docs are the surviving documents sorted ascending by L2, with soft
	// flags applied. Empty means the pipeline must refuse.
	Docs []evidence.Document
	// TopConfident reports whether the confidence-gap check trusts the top
	// hit on its own. When false the top result must be resolved through
	// grouping, never taken as an automatic single answer.
	TopConfident bool
}

// Filter applies the absolute, density, and confidence-gap checks.
// Input order does not matter; the result is sorted ascending by L2 with
// document ID as tie-break so identical inputs always gate identically.
func Filter(docs []evidence.Document, cfg Config) Result {
	sorted := make([]evidence.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].L2() != sorted[j].L2() {
			return sorted[i].L2() < sorted[j].L2()
		}
		return sorted[i].ID() < sorted[j].ID()
	})

	// Absolute gate: reject above hard threshold, flag between soft and hard.
	kept := kept(sorted, cfg)
	if len(kept) == 0 {
		return Result{}
	}

	// Density gate: an isolated hit that is not otherwise strong is weak
	// evidence. A lone strong hit (at or below the soft threshold) survives.
	if !densityOK(kept, cfg) {
		return Result{}
	}

	return Result{Docs: kept, TopConfident: topConfident(kept, cfg)}
}

func kept(sorted []evidence.Document, cfg Config) []evidence.Document {
	out := make([]evidence.Document, 0, len(sorted))
	for _, d := range sorted {
		if d.L2() > cfg.MaxL2Hard {
			continue
		}
		if cfg.MaxL2Soft > 0 && d.L2() > cfg.MaxL2Soft {
			d = d.WithSoft()
		}
		out = append(out, d)
	}
	return out
}

func densityOK(kept []evidence.Document, cfg Config) bool {
	if cfg.MinDensityCount <= 1 {
		return true
	}

	best := kept[0].L2()
	inWindow := 0
	for _, d := range kept {
		if d.L2() <= best+cfg.DensityWindow {
			inWindow++
		}
	}
	if inWindow >= cfg.MinDensityCount {
		return true
	}

	// Lone-but-strong exception.
	return !kept[0].Soft()
}

func topConfident(kept []evidence.Document, cfg Config) bool {
	if cfg.MinConfidenceGap <= 0 || len(kept) < 2 {
		return true
	}

	best, second := kept[0], kept[1]
	gap := second.L2() - best.L2()
	if gap >= cfg.MinConfidenceGap {
		return true
	}

	// A close runner-up from the same file a couple pages away is the same
	// topic, not ambiguity.
	return best.SameFile(second) && best.PagesWithin(second, 2)
}
