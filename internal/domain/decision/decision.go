// Package decision defines the engine's sole output contract: a Decision is
// either an answerable evidence set, a refusal with a reason, or an explicit
// ambiguity with selectable options. A Decision is immutable once returned.
package decision

import (
	"fmt"

	"github.com/kailas-cloud/evidex/internal/domain/evidence"
)

// Status is the decision outcome.
type Status string

const (
	// StatusOK means a single resolved evidence set supports an answer.
	StatusOK Status = "ok"
	// StatusRefuse means the engine declines to answer; RefusalReason is set.
	StatusRefuse Status = "refuse"
	// StatusAmbiguous means the caller must pick one of Options.
	StatusAmbiguous Status = "ambiguous"
)

// Decision is the pipeline output.
type Decision struct {
	status        Status
	evidenceDocs  []evidence.Document
	refusalReason string
	options       []Option
	digest        string
}

// NewOK creates an ok decision with the resolved evidence set.
func NewOK(docs []evidence.Document, digest string) Decision {
	return Decision{status: StatusOK, evidenceDocs: docs, digest: digest}
}

// NewRefusal creates a refuse decision. The reason is mandatory.
func NewRefusal(reason, digest string) Decision {
	return Decision{status: StatusRefuse, refusalReason: reason, digest: digest}
}

// NewAmbiguous creates an ambiguous decision with selectable options.
func NewAmbiguous(options []Option, digest string) Decision {
	return Decision{status: StatusAmbiguous, options: options, digest: digest}
}

// Reconstruct rebuilds a Decision from its serialized form. Used by the
// selection flow, where the caller re-presents the prior Decision verbatim.
func Reconstruct(status Status, docs []evidence.Document, reason string, options []Option, digest string) Decision {
	return Decision{
		status:        status,
		evidenceDocs:  docs,
		refusalReason: reason,
		options:       options,
		digest:        digest,
	}
}

// Status returns the decision outcome.
func (d Decision) Status() Status { return d.status }

// Evidence returns the resolved evidence documents (ok only).
func (d Decision) Evidence() []evidence.Document { return d.evidenceDocs }

// RefusalReason returns the refusal reason (refuse only).
func (d Decision) RefusalReason() string { return d.refusalReason }

// Options returns the selectable candidate groups (ambiguous only).
func (d Decision) Options() []Option { return d.options }

// Digest returns the stable resolution-path digest.
func (d Decision) Digest() string { return d.digest }

// Option finds an option by id.
func (d Decision) Option(id string) (Option, bool) {
	for _, o := range d.options {
		if o.ID() == id {
			return o, true
		}
	}
	return Option{}, false
}

// Validate enforces the output contract: ok carries evidence, refuse carries
// a reason, ambiguous carries 1..maxOptions options. A failure here is a
// programming-error-class defect in an upstream stage, not a user-facing
// condition.
func (d Decision) Validate(maxOptions int) error {
	switch d.status {
	case StatusOK:
		if len(d.evidenceDocs) == 0 {
			return fmt.Errorf("ok decision with empty evidence set")
		}
	case StatusRefuse:
		if d.refusalReason == "" {
			return fmt.Errorf("refuse decision with empty reason")
		}
	case StatusAmbiguous:
		if len(d.options) == 0 {
			return fmt.Errorf("ambiguous decision with no options")
		}
		if maxOptions > 0 && len(d.options) > maxOptions {
			return fmt.Errorf("ambiguous decision with %d options, max is %d", len(d.options), maxOptions)
		}
	default:
		return fmt.Errorf("unknown decision status %q", d.status)
	}
	return nil
}
