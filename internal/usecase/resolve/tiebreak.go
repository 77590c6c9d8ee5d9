package resolve

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// anchorClipChars bounds the anchor content sent to the embedder when a group
// has no real tag signature.
const anchorClipChars = 800

// Rule 5: query-aware tie-break. Embeds the query alongside each group's
// signature text (anchor content for file-scope signatures) and resolves to
// the most similar group when the similarity is strong enough and its margin
// over the runner-up is sufficient. Embedding failures fall through to the
// fallback rather than failing the decision.
func (r *Resolver) queryTiebreak(ctx context.Context, in Input, trace *[]string) *Resolution {
	if !r.cfg.QueryTiebreak || r.embed == nil || len(in.Groups) == 0 {
		return nil
	}

	texts := make([]string, 0, len(in.Groups)+1)
	texts = append(texts, in.Query.Text())
	for _, g := range in.Groups {
		texts = append(texts, groupText(g))
	}

	vectors, err := r.embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		*trace = append(*trace, "resolve:tiebreak=unavailable")
		return nil
	}

	queryVec := vectors[0]
	bestIdx, secondIdx := -1, -1
	var bestSim, secondSim float64
	for i, v := range vectors[1:] {
		sim := cosineSim(queryVec, v)
		if bestIdx < 0 || sim > bestSim {
			secondIdx, secondSim = bestIdx, bestSim
			bestIdx, bestSim = i, sim
		} else if secondIdx < 0 || sim > secondSim {
			secondIdx, secondSim = i, sim
		}
	}

	margin := bestSim + 1 // no runner-up: margin always sufficient
	if secondIdx >= 0 {
		margin = bestSim - secondSim
	}
	*trace = append(*trace, fmt.Sprintf("resolve:tiebreak best=%.4f margin=%.4f", bestSim, margin))

	if bestSim < r.cfg.MinSimilarity || margin < r.cfg.MinSimilarityGap {
		return nil
	}
	return &Resolution{OK: true, Group: in.Groups[bestIdx]}
}

// groupText is the embeddable representation of a group: its tag-signature
// text, or clipped anchor content when only a file-scope signature exists.
func groupText(g evidence.Group) string {
	if !g.Signature().IsFileScope() {
		return g.Signature().Text()
	}
	return clipText(g.Anchor().Content(), anchorClipChars)
}

func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clipText(s string, maxChars int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxChars {
		return s[:maxChars]
	}
	return s
}
