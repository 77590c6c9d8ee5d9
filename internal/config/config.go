package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the evidex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RetrievalConfig holds the external vector index settings.
type RetrievalConfig struct {
	Index  string `yaml:"index"`   // FT index name holding the document corpus
	FetchK int    `yaml:"fetch_k"` // candidates pulled from the index per query
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // label for logs/metrics
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // embedding cache expiry; 0 = no expiry
}

// EngineConfig holds the decision pipeline thresholds and pattern policy.
// All values are read-only after startup; the pipeline receives them as an
// immutable compiled form, never as process-wide mutable state.
type EngineConfig struct {
	MaxL2Hard        float64 `yaml:"max_l2_hard"` // absolute reject threshold
	MaxL2Soft        float64 `yaml:"max_l2_soft"` // soft-flag threshold; 0 disables
	DensityWindow    float64 `yaml:"density_window"`
	MinDensityCount  int     `yaml:"min_density_count"`
	MinConfidenceGap float64 `yaml:"min_confidence_gap"` // 0 disables the gap gate
	MinGroupGap      float64 `yaml:"min_group_gap"`
	MaxOptions       int     `yaml:"max_options"`
	FinalK           int     `yaml:"final_k"` // docs kept per resolved evidence set
	StrictSignature  bool    `yaml:"strict_signature"`

	EntityResolve    bool    `yaml:"entity_resolve_enabled"`
	QueryTiebreak    bool    `yaml:"query_tiebreak_enabled"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	MinSimilarityGap float64 `yaml:"min_similarity_gap"`

	Patterns      PatternsConfig      `yaml:"patterns"`
	EntityAliases map[string][]string `yaml:"entity_aliases"`
	Coverage      CoverageConfig      `yaml:"coverage"`
}

// PatternsConfig holds the query classification pattern lists. All entries
// are regular expressions, matched case-insensitively.
type PatternsConfig struct {
	Allow   []string `yaml:"allow"`   // in-domain allow-list; empty = allow all
	Deny    []string `yaml:"deny"`    // out-of-domain deny-list, checked first
	Generic []string `yaml:"generic"` // overview-style queries forced ambiguous
	Compare []string `yaml:"compare"` // comparison markers for the coverage gate
}

// CoverageConfig holds coverage gate settings.
type CoverageConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Retrieval.Index == "" {
		c.Retrieval.Index = "docs"
	}
	if c.Retrieval.FetchK <= 0 {
		c.Retrieval.FetchK = 12
	}
	if c.Engine.MaxL2Hard <= 0 {
		c.Engine.MaxL2Hard = 1.1
	}
	if c.Engine.DensityWindow <= 0 {
		c.Engine.DensityWindow = 0.15
	}
	if c.Engine.MinDensityCount <= 0 {
		c.Engine.MinDensityCount = 2
	}
	if c.Engine.MinGroupGap <= 0 {
		c.Engine.MinGroupGap = 0.2
	}
	if c.Engine.MaxOptions <= 0 {
		c.Engine.MaxOptions = 3
	}
	if c.Engine.FinalK <= 0 {
		c.Engine.FinalK = 4
	}
	if c.Engine.MinSimilarity <= 0 {
		c.Engine.MinSimilarity = 0.35
	}
	if c.Engine.MinSimilarityGap <= 0 {
		c.Engine.MinSimilarityGap = 0.05
	}
}

// Validate checks the configuration for correctness. Any failure here is
// fatal at startup; the engine never serves queries with a malformed policy.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Engine.MaxL2Soft > 0 && c.Engine.MaxL2Soft > c.Engine.MaxL2Hard {
		return fmt.Errorf(
			"engine.max_l2_soft (%v) must not exceed engine.max_l2_hard (%v)",
			c.Engine.MaxL2Soft, c.Engine.MaxL2Hard,
		)
	}
	if c.Engine.MinConfidenceGap < 0 {
		return fmt.Errorf("engine.min_confidence_gap must not be negative, got %v", c.Engine.MinConfidenceGap)
	}
	if err := validatePatterns("engine.patterns.allow", c.Engine.Patterns.Allow); err != nil {
		return err
	}
	if err := validatePatterns("engine.patterns.deny", c.Engine.Patterns.Deny); err != nil {
		return err
	}
	if err := validatePatterns("engine.patterns.generic", c.Engine.Patterns.Generic); err != nil {
		return err
	}
	if err := validatePatterns("engine.patterns.compare", c.Engine.Patterns.Compare); err != nil {
		return err
	}
	for entity, aliases := range c.Engine.EntityAliases {
		if err := validatePatterns("engine.entity_aliases."+entity, aliases); err != nil {
			return err
		}
	}
	return nil
}

func validatePatterns(section string, patterns []string) error {
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%s contains an empty pattern", section)
		}
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("%s has invalid pattern %q: %w", section, p, err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
