// Package selection resolves a user-supplied option id against a previously
// returned ambiguous Decision. This is the only entry point consuming
// decision-external state: the caller re-presents the prior Decision
// verbatim, there is no server-side session store.
package selection

import (
	"github.com/kailas-cloud/evidex/internal/domain/decision"
)

// Resolve looks up selectedID among the prior decision's options. A match
// yields ok with that option's document set; anything else is a policy
// refusal, never an error.
func Resolve(prior decision.Decision, selectedID string) decision.Decision {
	digest := decision.ComputeDigest([]string{
		"selection:prior=" + prior.Digest(),
		"selection:id=" + selectedID,
	})

	if prior.Status() != decision.StatusAmbiguous {
		return decision.NewRefusal("Invalid selection: "+selectedID, digest)
	}

	opt, ok := prior.Option(selectedID)
	if !ok {
		return decision.NewRefusal("Invalid selection: "+selectedID, digest)
	}

	return decision.NewOK(opt.Docs(), digest)
}
