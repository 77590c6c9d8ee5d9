package evidex

import (
	"context"

	"go.uber.org/zap"
)

// Embedder vectorizes query text for retrieval and the query-aware tie-break.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in one call. Optional; embedders
// without it fall back to one call per text.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds the decision pipeline thresholds and pattern policy.
// Zero values fall back to the engine defaults.
type Config struct {
	MaxL2Hard        float64
	MaxL2Soft        float64
	DensityWindow    float64
	MinDensityCount  int
	MinConfidenceGap float64
	MinGroupGap      float64
	MaxOptions       int
	FinalK           int
	FetchK           int
	StrictSignature  bool

	EntityResolve    bool
	QueryTiebreak    bool
	MinSimilarity    float64
	MinSimilarityGap float64

	AllowPatterns   []string
	DenyPatterns    []string
	GenericPatterns []string
	ComparePatterns []string
	EntityAliases   map[string][]string

	CoverageEnabled bool
}

type clientConfig struct {
	driver   string
	addrs    []string
	username string
	password string
	index    string
	embedder Embedder
	engine   Config
	logger   *zap.Logger
}

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

// WithValkey connects retrieval to a Valkey instance holding the corpus index.
func WithValkey(addrs ...string) ClientOption {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = addrs
	}
}

// WithRedis connects retrieval to a Redis instance holding the corpus index.
func WithRedis(addrs ...string) ClientOption {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
	}
}

// WithAuth sets database credentials.
func WithAuth(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithIndex names the corpus index queried by Decide. Defaults to "docs".
func WithIndex(name string) ClientOption {
	return func(c *clientConfig) {
		c.index = name
	}
}

// WithEmbedder supplies the query embedder. Required for Decide; Evaluate
// works without it, with the query-aware tie-break disabled.
func WithEmbedder(e Embedder) ClientOption {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithConfig overrides the engine thresholds and pattern policy.
func WithConfig(cfg Config) ClientOption {
	return func(c *clientConfig) {
		c.engine = cfg
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}
