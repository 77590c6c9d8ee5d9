// Package resolve implements the six-step ambiguity resolution order over
// topic groups. Rules are an explicit ordered list, each a pure function that
// either produces a resolution or passes to the next. The ordering is
// load-bearing: earlier rules represent stronger evidence of a single
// correct cluster.
package resolve

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/decision"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/usecase/pattern"
)

// Config holds resolver thresholds. Taken by value: the resolver never
// mutates it and callers can share one across goroutines.
type Config struct {
	MinGroupGap      float64
	MaxOptions       int
	FinalK           int
	EntityResolve    bool
	QueryTiebreak    bool
	MinSimilarity    float64
	MinSimilarityGap float64
}

// EmbedFunc vectorizes texts for the query-aware tie-break. It is the only
// non-pure dependency of the resolver and only consulted by rule 5.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Input is everything a resolution pass may consult.
type Input struct {
	Query        domain.Query
	Entities     []string // extracted query entities, possibly empty
	Groups       []evidence.Group
	TopConfident bool // distance gate's confidence-gap verdict, recorded in the trace
}

// Resolution is the outcome of the rule chain.
type Resolution struct {
	Rule    string
	OK      bool              // true: Group resolved; false: ambiguous with Options
	Group   evidence.Group    // set when OK
	Options []decision.Option // set when not OK
	Trace   []string
}

// Resolver runs the ordered rule list.
type Resolver struct {
	cfg     Config
	generic *pattern.Matcher
	embed   EmbedFunc
}

// New creates a resolver. genericPatterns mark overview-style queries;
// embed may be nil, which disables the query-aware tie-break.
func New(cfg Config, genericPatterns []string, embed EmbedFunc) (*Resolver, error) {
	if cfg.MaxOptions <= 0 {
		return nil, fmt.Errorf("max options must be positive, got %d", cfg.MaxOptions)
	}
	generic, err := pattern.NewMatcher(genericPatterns)
	if err != nil {
		return nil, fmt.Errorf("generic patterns: %w", err)
	}
	return &Resolver{cfg: cfg, generic: generic, embed: embed}, nil
}

// namedRule pairs a rule with its trace name.
type namedRule struct {
	name  string
	apply func(ctx context.Context, in Input, trace *[]string) *Resolution
}

// Resolve evaluates the rules in strict order; the first non-nil resolution
// wins. The final fallback always fires, so a resolution is guaranteed for a
// non-empty group list.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	rules := []namedRule{
		{"single_group", r.singleGroup},
		{"forced_ambiguity", r.forcedAmbiguity},
		{"entity_resolve", r.entityResolve},
		{"score_gap", r.scoreGap},
		{"query_tiebreak", r.queryTiebreak},
		{"fallback", r.fallback},
	}

	trace := []string{
		fmt.Sprintf("resolve:groups=%d", len(in.Groups)),
		fmt.Sprintf("resolve:top_confident=%t", in.TopConfident),
	}

	for _, rule := range rules {
		if res := rule.apply(ctx, in, &trace); res != nil {
			res.Rule = rule.name
			res.Trace = append(trace, "resolve:fired="+rule.name)
			return *res
		}
	}

	// Unreachable: fallback always resolves.
	panic("resolve: rule chain exhausted without resolution")
}
