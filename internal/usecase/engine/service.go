// Package engine wires the decision pipeline: pattern gate, distance gate,
// signature grouper, ambiguity resolver, coverage gate, and the hygiene
// check that guards the output contract. One Service instance is safe for
// concurrent use; all configuration is compiled once and read-only.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/decision"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/logger"
	"github.com/kailas-cloud/evidex/internal/metrics"
	"github.com/kailas-cloud/evidex/internal/usecase/coverage"
	"github.com/kailas-cloud/evidex/internal/usecase/entities"
	"github.com/kailas-cloud/evidex/internal/usecase/gate"
	"github.com/kailas-cloud/evidex/internal/usecase/grouping"
	"github.com/kailas-cloud/evidex/internal/usecase/pattern"
	"github.com/kailas-cloud/evidex/internal/usecase/resolve"
	"github.com/kailas-cloud/evidex/internal/usecase/selection"
)

// Refusal reason constants shared with the evaluation contract.
const (
	ReasonNoEvidence = "no relevant evidence"
	ReasonEmptyQuery = "empty or invalid query"
)

// Config bundles the compiled-from-YAML pipeline settings. It is immutable
// after New; there is no process-wide tunable state.
type Config struct {
	Gate    gate.Config
	Resolve resolve.Config

	AllowPatterns   []string
	DenyPatterns    []string
	GenericPatterns []string
	ComparePatterns []string
	EntityAliases   map[string][]string

	CoverageEnabled bool
	StrictSignature bool
	FetchK          int
}

// Service runs the decision pipeline.
type Service struct {
	cfg       Config
	patterns  *pattern.Gate
	extractor *entities.Extractor
	resolver  *resolve.Resolver
	coverage  *coverage.Gate
	retriever Retriever
	log       *zap.Logger
}

// New compiles the pipeline. Pattern or alias compilation failures are
// configuration errors and abort startup. retriever may be nil for callers
// that always supply scored documents to Evaluate directly; embed may be nil,
// which disables the query-aware tie-break.
func New(cfg Config, retriever Retriever, embed resolve.EmbedFunc, log *zap.Logger) (*Service, error) {
	patternGate, err := pattern.NewGate(cfg.AllowPatterns, cfg.DenyPatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	extractor, err := entities.NewExtractor(cfg.EntityAliases)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	resolver, err := resolve.New(cfg.Resolve, cfg.GenericPatterns, embed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	coverageGate, err := coverage.NewGate(cfg.CoverageEnabled, cfg.ComparePatterns, cfg.GenericPatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		patterns:  patternGate,
		extractor: extractor,
		resolver:  resolver,
		coverage:  coverageGate,
		retriever: retriever,
		log:       log,
	}, nil
}

// Decide runs the full pipeline for a query: pattern gate, retrieval, and
// Evaluate. Selection queries are routed to ResolveSelection by the
// transport layer, not here.
func (s *Service) Decide(ctx context.Context, q domain.Query) (decision.Decision, error) {
	if q.IsEmpty() {
		return s.release(ctx, refusal("empty_query", ReasonEmptyQuery, []string{"query:empty"}))
	}

	// Pattern gate runs before retrieval: out-of-domain queries never hit
	// the index.
	if c := s.classify(q); !c.InDomain {
		return s.release(ctx, refusal("out_of_domain", c.Reason, []string{
			"query:" + q.Text(),
			"pattern:" + c.Reason,
		}))
	}

	start := time.Now()
	docs, err := s.retriever.Retrieve(ctx, q.Text(), s.cfg.FetchK)
	metrics.PipelineStageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	if err != nil {
		return decision.Decision{}, fmt.Errorf("retrieve: %w", err)
	}

	return s.Evaluate(ctx, q, docs)
}

// Evaluate is the deterministic core: a pure function of (query, scored
// docs, config), aside from the optional tie-break embedding call. The
// pattern gate is re-applied so Evaluate stands alone for library callers.
func (s *Service) Evaluate(ctx context.Context, q domain.Query, docs []evidence.Document) (decision.Decision, error) {
	if q.IsEmpty() {
		return s.release(ctx, refusal("empty_query", ReasonEmptyQuery, []string{"query:empty"}))
	}

	// The input fingerprint is canonicalized so the digest is a pure
	// function of the document set, not of the order it arrived in.
	inputs := make([]string, 0, len(docs))
	for _, d := range docs {
		inputs = append(inputs, fmt.Sprintf("input:%s:%.6f", d.ID(), d.L2()))
	}
	sort.Strings(inputs)
	trace := append([]string{"query:" + q.Text(), s.configFingerprint()}, inputs...)

	// Distance gate. Zero survivors always refuse with the no-evidence
	// reason, regardless of how the pattern gate would classify the query.
	start := time.Now()
	gated := gate.Filter(docs, s.cfg.Gate)
	metrics.PipelineStageDuration.WithLabelValues("gate").Observe(time.Since(start).Seconds())
	trace = append(trace, fmt.Sprintf("gate:survivors=%d confident=%t", len(gated.Docs), gated.TopConfident))

	if len(gated.Docs) == 0 {
		return s.release(ctx, refusal("no_evidence", ReasonNoEvidence, trace))
	}

	if c := s.classify(q); !c.InDomain {
		return s.release(ctx, refusal("out_of_domain", c.Reason, append(trace, "pattern:"+c.Reason)))
	}

	// Signature grouper.
	start = time.Now()
	groups := grouping.Group(gated.Docs, s.cfg.StrictSignature)
	metrics.PipelineStageDuration.WithLabelValues("group").Observe(time.Since(start).Seconds())
	for _, g := range groups {
		trace = append(trace, fmt.Sprintf("group:%s:%.6f:%d", g.Signature(), g.BestL2(), g.Size()))
	}

	queryEntities := q.Entities()
	if len(queryEntities) == 0 {
		queryEntities = s.extractor.Extract(q.Text())
	}
	trace = append(trace, fmt.Sprintf("entities:%v", queryEntities))

	// Ambiguity resolver. When the confidence-gap check is enabled and the
	// top hit passed it, the best-ranked group stands alone and the
	// resolution rules are not consulted.
	var res resolve.Resolution
	if s.cfg.Gate.MinConfidenceGap > 0 && gated.TopConfident && len(groups) > 1 {
		res = resolve.Resolution{
			Rule:  "confident_top",
			OK:    true,
			Group: groups[0],
			Trace: []string{"resolve:fired=confident_top"},
		}
	} else {
		start = time.Now()
		res = s.resolver.Resolve(ctx, resolve.Input{
			Query:        q,
			Entities:     queryEntities,
			Groups:       groups,
			TopConfident: gated.TopConfident,
		})
		metrics.PipelineStageDuration.WithLabelValues("resolve").Observe(time.Since(start).Seconds())
	}
	metrics.ResolverRuleFired.WithLabelValues(res.Rule).Inc()
	trace = append(trace, res.Trace...)

	if !res.OK {
		return s.release(ctx, outcome{
			d: decision.NewAmbiguous(res.Options, decision.ComputeDigest(trace)),
		})
	}

	evidenceSet := cappedEvidence(res.Group, s.cfg.Resolve.FinalK)

	// Coverage gate: evidence existing is not enough if it does not address
	// the entities asked about.
	start = time.Now()
	missing := s.coverage.Check(q.Text(), queryEntities, evidenceSet)
	metrics.PipelineStageDuration.WithLabelValues("coverage").Observe(time.Since(start).Seconds())
	if missing != "" {
		return s.release(ctx, refusal("coverage", missing, append(trace, "coverage:"+missing)))
	}
	trace = append(trace, "coverage:pass")

	return s.release(ctx, outcome{
		d: decision.NewOK(evidenceSet, decision.ComputeDigest(trace)),
	})
}

// ResolveSelection resolves a selected option against the caller-supplied
// prior Decision and releases the result through the same hygiene check as
// the full pipeline.
func (s *Service) ResolveSelection(ctx context.Context, prior decision.Decision, selectedID string) (decision.Decision, error) {
	d := selection.Resolve(prior, selectedID)
	out := outcome{d: d}
	if d.Status() == decision.StatusRefuse {
		out.refusalClass = "invalid_selection"
	}
	return s.release(ctx, out)
}

// classify applies the pattern gate to the query text.
func (s *Service) classify(q domain.Query) pattern.Classification {
	start := time.Now()
	c := s.patterns.Classify(q.Text())
	metrics.PipelineStageDuration.WithLabelValues("pattern").Observe(time.Since(start).Seconds())
	return c
}

// outcome pairs a decision with its refusal class for metrics.
type outcome struct {
	d            decision.Decision
	refusalClass string
}

func refusal(class, reason string, trace []string) outcome {
	return outcome{
		d:            decision.NewRefusal(reason, decision.ComputeDigest(trace)),
		refusalClass: class,
	}
}

// release is the hygiene enforcer: the last stage every Decision passes
// before leaving the engine. A violation is an upstream defect and surfaces
// as an error, distinctly from policy refusals.
func (s *Service) release(ctx context.Context, out outcome) (decision.Decision, error) {
	if err := out.d.Validate(s.cfg.Resolve.MaxOptions); err != nil {
		metrics.InvariantViolationsTotal.Inc()
		logger.FromContext(ctx).Error("decision invariant violation",
			zap.String("status", string(out.d.Status())),
			zap.Error(err),
		)
		return decision.Decision{}, fmt.Errorf("%w: %w", domain.ErrInvariantViolation, err)
	}

	metrics.DecisionsTotal.WithLabelValues(string(out.d.Status())).Inc()
	if out.refusalClass != "" {
		metrics.RefusalsTotal.WithLabelValues(out.refusalClass).Inc()
	}

	logger.FromContext(ctx).Debug("decision released",
		zap.String("status", string(out.d.Status())),
		zap.String("digest", out.d.Digest()),
		zap.String("refusal_reason", out.d.RefusalReason()),
		zap.Int("options", len(out.d.Options())),
	)
	return out.d, nil
}

// cappedEvidence returns the group's top members up to finalK.
func cappedEvidence(g evidence.Group, finalK int) []evidence.Document {
	members := g.Members()
	if finalK > 0 && len(members) > finalK {
		members = members[:finalK]
	}
	return members
}

// configFingerprint ties the digest to the thresholds in effect.
func (s *Service) configFingerprint() string {
	return fmt.Sprintf("cfg:%.4f:%.4f:%.4f:%d:%.4f:%.4f:%d:%t:%t",
		s.cfg.Gate.MaxL2Hard, s.cfg.Gate.MaxL2Soft, s.cfg.Gate.MinConfidenceGap,
		s.cfg.Gate.MinDensityCount, s.cfg.Gate.DensityWindow,
		s.cfg.Resolve.MinGroupGap, s.cfg.Resolve.MaxOptions,
		s.cfg.Resolve.EntityResolve, s.cfg.Resolve.QueryTiebreak,
	)
}
