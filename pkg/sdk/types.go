package sdk

// Status is the decision outcome class.
type Status string

const (
	// StatusOK means the service released a single evidence set.
	StatusOK Status = "ok"
	// StatusRefuse means the service declined to answer; see Reason.
	StatusRefuse Status = "refuse"
	// StatusAmbiguous means the service asks the caller to pick an option.
	StatusAmbiguous Status = "ambiguous"
)

// Decision is the wire form of a service decision. Ambiguous decisions are
// round-tripped unchanged into Select; the service holds no session state.
type Decision struct {
	Status   Status     `json:"status"`
	Evidence []Evidence `json:"evidence,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Options  []Option   `json:"options,omitempty"`
	Digest   string     `json:"digest"`
}

// Evidence is a scored document chunk backing a decision.
type Evidence struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Source    string            `json:"source,omitempty"`
	Page      int               `json:"page"`
	PageLabel string            `json:"page_label,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Entities  []string          `json:"entities,omitempty"`
	L2        float64           `json:"l2"`
	Soft      bool              `json:"soft,omitempty"`
}

// Option is one clarification choice on an ambiguous decision.
type Option struct {
	ID       string     `json:"id"`
	BestL2   float64    `json:"best_l2"`
	Sources  []Source   `json:"sources"`
	Evidence []Evidence `json:"evidence"`
}

// Source is a user-facing provenance reference.
type Source struct {
	Filename string `json:"filename"`
	Page     string `json:"page"`
}

// HealthReport is the response of GET /health.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type decideRequest struct {
	Query    string   `json:"query"`
	Entities []string `json:"entities,omitempty"`
}

type selectRequest struct {
	Decision       Decision `json:"decision"`
	SelectedOption string   `json:"selected_option"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
