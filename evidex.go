// Package evidex is the embeddable entry point to the decision engine: it
// gates retrieval results, resolves ambiguity across source groups, and
// releases either a single evidence set, a refusal, or a clarification
// question. Use New with WithValkey/WithRedis for the full retrieval path,
// or without a store to run Evaluate over documents you scored elsewhere.
package evidex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/db"
	dbRedis "github.com/kailas-cloud/evidex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/evidex/internal/db/valkey"
	"github.com/kailas-cloud/evidex/internal/domain"
	searchrepo "github.com/kailas-cloud/evidex/internal/repository/search"
	enginepkg "github.com/kailas-cloud/evidex/internal/usecase/engine"
	"github.com/kailas-cloud/evidex/internal/usecase/gate"
	"github.com/kailas-cloud/evidex/internal/usecase/resolve"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the evidex SDK entry point.
type Client struct {
	store  db.Store
	engine *enginepkg.Service
}

// New creates a Client. Without WithValkey/WithRedis the client is a pure
// evaluator: Evaluate works over caller-scored documents and Decide returns
// an error.
func New(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		index:  "docs",
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("evidex: database not ready: %w", err)
		}
		store = s
	}

	var retriever enginepkg.Retriever
	var embedFn resolve.EmbedFunc
	if cfg.embedder != nil {
		adapter := &embedderAdapter{inner: cfg.embedder}
		embedFn = batchEmbedFunc(cfg.embedder)
		if store != nil {
			retriever = searchrepo.New(store, adapter, cfg.index)
		}
	}

	engine, err := enginepkg.New(engineConfig(cfg.engine), retriever, embedFn, cfg.logger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("evidex: %w", err)
	}

	return &Client{store: store, engine: engine}, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("evidex: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("evidex: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("evidex: unknown driver %q", cfg.driver)
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("evidex: no database configured")
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Decide embeds the query, retrieves candidates from the corpus index, and
// runs the full decision pipeline.
func (c *Client) Decide(ctx context.Context, query string, entities ...string) (Decision, error) {
	if c.store == nil {
		return Decision{}, errors.New("evidex: Decide requires a database (use WithValkey or WithRedis)")
	}
	dec, err := c.engine.Decide(ctx, domain.NewQuery(query, entities, ""))
	if err != nil {
		return Decision{}, fmt.Errorf("decide: %w", err)
	}
	return fromInternalDecision(dec), nil
}

// Evaluate runs the decision pipeline over caller-supplied scored documents.
// Input order does not matter; identical inputs yield identical decisions.
func (c *Client) Evaluate(ctx context.Context, query string, docs []Document, entities ...string) (Decision, error) {
	dec, err := c.engine.Evaluate(ctx, domain.NewQuery(query, entities, ""), toInternalDocuments(docs))
	if err != nil {
		return Decision{}, fmt.Errorf("evaluate: %w", err)
	}
	return fromInternalDecision(dec), nil
}

// ResolveSelection resolves a clarification choice against a prior ambiguous
// decision. Unknown option IDs yield a refusal, not an error.
func (c *Client) ResolveSelection(ctx context.Context, prior Decision, selectedOption string) (Decision, error) {
	dec, err := c.engine.ResolveSelection(ctx, toInternalDecision(prior), selectedOption)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve selection: %w", err)
	}
	return fromInternalDecision(dec), nil
}

// engineConfig maps the public Config onto the internal pipeline config,
// filling unset thresholds with the same defaults the service uses.
func engineConfig(c Config) enginepkg.Config {
	if c.MaxL2Hard <= 0 {
		c.MaxL2Hard = 1.1
	}
	if c.DensityWindow <= 0 {
		c.DensityWindow = 0.15
	}
	if c.MinDensityCount <= 0 {
		c.MinDensityCount = 2
	}
	if c.MinGroupGap <= 0 {
		c.MinGroupGap = 0.2
	}
	if c.MaxOptions <= 0 {
		c.MaxOptions = 3
	}
	if c.FinalK <= 0 {
		c.FinalK = 4
	}
	if c.FetchK <= 0 {
		c.FetchK = 12
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.35
	}
	if c.MinSimilarityGap <= 0 {
		c.MinSimilarityGap = 0.05
	}

	return enginepkg.Config{
		Gate: gate.Config{
			MaxL2Hard:        c.MaxL2Hard,
			MaxL2Soft:        c.MaxL2Soft,
			DensityWindow:    c.DensityWindow,
			MinDensityCount:  c.MinDensityCount,
			MinConfidenceGap: c.MinConfidenceGap,
		},
		Resolve: resolve.Config{
			MinGroupGap:      c.MinGroupGap,
			MaxOptions:       c.MaxOptions,
			FinalK:           c.FinalK,
			EntityResolve:    c.EntityResolve,
			QueryTiebreak:    c.QueryTiebreak,
			MinSimilarity:    c.MinSimilarity,
			MinSimilarityGap: c.MinSimilarityGap,
		},
		AllowPatterns:   c.AllowPatterns,
		DenyPatterns:    c.DenyPatterns,
		GenericPatterns: c.GenericPatterns,
		ComparePatterns: c.ComparePatterns,
		EntityAliases:   c.EntityAliases,
		CoverageEnabled: c.CoverageEnabled,
		StrictSignature: c.StrictSignature,
		FetchK:          c.FetchK,
	}
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// batchEmbedFunc adapts the public embedder to the resolver's batch contract,
// preferring native batch support.
func batchEmbedFunc(e Embedder) resolve.EmbedFunc {
	if be, ok := e.(BatchEmbedder); ok {
		return be.BatchEmbed
	}
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			r, err := e.Embed(ctx, t)
			if err != nil {
				return nil, fmt.Errorf("embed [%d]: %w", i, err)
			}
			out[i] = r.Embedding
		}
		return out, nil
	}
}
