package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/toolrouting/retrieval"
)

// Config is the full runtime configuration.
type Config struct {
	Routing   RoutingConfig   `mapstructure:"routing"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Backends  []BackendConfig `mapstructure:"backends"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RoutingConfig tunes the tool-routing decision chain.
type RoutingConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// semantic match.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`

	// MinRuleConfidence is the minimum keyword-overlap confidence for a
	// rule match.
	MinRuleConfidence float64 `mapstructure:"min_rule_confidence"`
}

// RetrievalConfig tunes the hybrid retrieval pipeline.
type RetrievalConfig struct {
	// Method selects lexical, vector, or hybrid retrieval.
	Method string `mapstructure:"method"`

	// TopK is the result count returned per retrieval call.
	TopK int `mapstructure:"top_k"`

	// LegTopN is the per-leg candidate breadth before fusion.
	LegTopN int `mapstructure:"leg_top_n"`

	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int `mapstructure:"rrf_k"`

	// RerankCandidates caps how many fused candidates are rescored.
	RerankCandidates int `mapstructure:"rerank_candidates"`

	// Rewrite, HyDE, and Rerank toggle the optional pipeline stages.
	Rewrite bool `mapstructure:"rewrite"`
	HyDE    bool `mapstructure:"hyde"`
	Rerank  bool `mapstructure:"rerank"`

	// LegTimeout bounds each search leg.
	LegTimeout time.Duration `mapstructure:"leg_timeout"`
}

// BackendConfig declares an MCP server whose tools join the routing
// table at startup.
type BackendConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`

	// Headers are sent with every request to the backend.
	Headers map[string]string `mapstructure:"headers"`

	// Keywords maps remote tool names to rule keywords.
	Keywords map[string][]string `mapstructure:"keywords"`
}

// ProviderConfig points at the OpenAI-compatible model backend.
type ProviderConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	GenerationModel string        `mapstructure:"generation_model"`
	RerankModel     string        `mapstructure:"rerank_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxTries        int           `mapstructure:"max_tries"`

	// EmbeddingCacheEntries bounds the in-process embedding cache.
	EmbeddingCacheEntries int `mapstructure:"embedding_cache_entries"`
}

// ServerConfig controls the serving surface.
type ServerConfig struct {
	// Transport is "stdio", "http", or "sse".
	Transport string `mapstructure:"transport"`

	// Address is the listen address for network transports.
	Address string `mapstructure:"address"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// Load reads configuration from path (optional) and TOOLROUTING_*
// environment variables, applying defaults for everything unset.
// Environment keys use underscores for nesting, e.g.
// TOOLROUTING_ROUTING_SIMILARITY_THRESHOLD.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TOOLROUTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("routing.similarity_threshold", 0.65)
	v.SetDefault("routing.min_rule_confidence", 0.0)

	v.SetDefault("retrieval.method", string(retrieval.MethodHybrid))
	v.SetDefault("retrieval.top_k", retrieval.DefaultTopK)
	v.SetDefault("retrieval.leg_top_n", retrieval.DefaultLegTopN)
	v.SetDefault("retrieval.rrf_k", retrieval.DefaultRRFK)
	v.SetDefault("retrieval.rerank_candidates", retrieval.DefaultRerankCandidates)
	v.SetDefault("retrieval.rewrite", false)
	v.SetDefault("retrieval.hyde", false)
	v.SetDefault("retrieval.rerank", false)
	v.SetDefault("retrieval.leg_timeout", retrieval.DefaultLegTimeout)

	v.SetDefault("provider.base_url", "http://localhost:8081/v1")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.embedding_model", "text-embedding-3-small")
	v.SetDefault("provider.generation_model", "gpt-4o-mini")
	v.SetDefault("provider.rerank_model", "rerank-v3.5")
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("provider.max_tries", 3)
	v.SetDefault("provider.embedding_cache_entries", 4096)

	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.address", "localhost:8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects out-of-range or inconsistent settings.
func (c *Config) Validate() error {
	if c.Routing.SimilarityThreshold < 0 || c.Routing.SimilarityThreshold > 1 {
		return fmt.Errorf("routing.similarity_threshold must be in [0,1], got %v",
			c.Routing.SimilarityThreshold)
	}
	if c.Routing.MinRuleConfidence < 0 || c.Routing.MinRuleConfidence > 1 {
		return fmt.Errorf("routing.min_rule_confidence must be in [0,1], got %v",
			c.Routing.MinRuleConfidence)
	}

	switch retrieval.Method(c.Retrieval.Method) {
	case retrieval.MethodLexical, retrieval.MethodVector, retrieval.MethodHybrid:
	default:
		return fmt.Errorf("retrieval.method must be lexical, vector, or hybrid, got %q",
			c.Retrieval.Method)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.LegTopN < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.leg_top_n (%d) must be at least retrieval.top_k (%d)",
			c.Retrieval.LegTopN, c.Retrieval.TopK)
	}
	if c.Retrieval.RRFK <= 0 {
		return fmt.Errorf("retrieval.rrf_k must be positive, got %d", c.Retrieval.RRFK)
	}
	if c.Retrieval.RerankCandidates < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.rerank_candidates (%d) must be at least retrieval.top_k (%d)",
			c.Retrieval.RerankCandidates, c.Retrieval.TopK)
	}

	if c.Provider.MaxTries < 0 {
		return fmt.Errorf("provider.max_tries must not be negative, got %d", c.Provider.MaxTries)
	}

	seen := make(map[string]struct{}, len(c.Backends))
	for _, backend := range c.Backends {
		if backend.Name == "" || backend.URL == "" {
			return fmt.Errorf("backends entries require name and url, got %+v", backend)
		}
		if _, dup := seen[backend.Name]; dup {
			return fmt.Errorf("duplicate backend name %q", backend.Name)
		}
		seen[backend.Name] = struct{}{}
	}

	switch c.Server.Transport {
	case "stdio", "http", "sse":
	default:
		return fmt.Errorf("server.transport must be stdio, http, or sse, got %q",
			c.Server.Transport)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
