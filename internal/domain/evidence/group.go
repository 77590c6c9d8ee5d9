package evidence

// Group is a topic cluster of documents sharing a tag signature. The anchor
// is the minimum-L2 member and represents the group in scoring and
// tie-breaks. Groups are created fresh per query and never mutated after
// grouping completes.
type Group struct {
	sig     Signature
	members []Document // sorted ascending by L2, anchor first
}

// NewGroup creates a group from members already sorted ascending by L2.
func NewGroup(sig Signature, members []Document) Group {
	return Group{sig: sig, members: members}
}

// Signature returns the shared tag signature.
func (g Group) Signature() Signature { return g.sig }

// Members returns the group documents, anchor first.
func (g Group) Members() []Document { return g.members }

// Anchor returns the lowest-distance member.
func (g Group) Anchor() Document { return g.members[0] }

// BestL2 returns the anchor's distance score.
func (g Group) BestL2() float64 { return g.members[0].L2() }

// Size returns the member count.
func (g Group) Size() int { return len(g.members) }

// EntityHits counts, per query entity, how many member documents are tagged
// with it. The second return is the number of those entities the anchor
// itself carries.
func (g Group) EntityHits(entities []string) (docHits, anchorHits int) {
	for _, ent := range entities {
		if g.Anchor().Meta().HasEntity(ent) {
			anchorHits++
		}
		for _, m := range g.members {
			if m.Meta().HasEntity(ent) {
				docHits++
			}
		}
	}
	return docHits, anchorHits
}

// CoverageRatio is the fraction of query entities carried by at least one
// member document. Returns 0 when no entities are given.
func (g Group) CoverageRatio(entities []string) float64 {
	if len(entities) == 0 {
		return 0
	}
	covered := 0
	for _, ent := range entities {
		for _, m := range g.members {
			if m.Meta().HasEntity(ent) {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(entities))
}
