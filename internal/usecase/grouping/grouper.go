// Package grouping partitions surviving documents into topic clusters by tag
// signature. The resulting group order (ascending best L2) is the basis for
// every subsequent resolution step.
package grouping

import (
	"sort"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Group partitions documents by signature and returns groups sorted ascending
// by their anchor's L2, with the signature as a deterministic tie-break.
// Permuting the input never changes group membership or best L2.
func Group(docs []evidence.Document, strictSignature bool) []evidence.Group {
	bySig := make(map[evidence.Signature][]evidence.Document)
	order := make([]evidence.Signature, 0)

	for _, d := range docs {
		sig := evidence.NewSignature(d.Meta(), strictSignature)
		if _, ok := bySig[sig]; !ok {
			order = append(order, sig)
		}
		bySig[sig] = append(bySig[sig], d)
	}

	groups := make([]evidence.Group, 0, len(order))
	for _, sig := range order {
		members := bySig[sig]
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].L2() != members[j].L2() {
				return members[i].L2() < members[j].L2()
			}
			return members[i].ID() < members[j].ID()
		})
		groups = append(groups, evidence.NewGroup(sig, members))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].BestL2() != groups[j].BestL2() {
			return groups[i].BestL2() < groups[j].BestL2()
		}
		return groups[i].Signature() < groups[j].Signature()
	})

	return groups
}
