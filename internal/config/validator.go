package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/codegraph/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextIngest - ingest needs a graph store, vector store and embedder
	ValidationContextIngest ValidationContext = "ingest"
	// ValidationContextAsk - ask additionally needs a generative model
	ValidationContextAsk ValidationContext = "ask"
	// ValidationContextStats - stats only reads the stores
	ValidationContextStats ValidationContext = "stats"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...any) {
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...any) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err)
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("warnings:\n")
		for _, warn := range vr.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", warn)
		}
	}
	return sb.String()
}

// Validate checks the settings needed by the given command.
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{}

	c.validateGraph(result)
	c.validateVector(result)

	switch ctx {
	case ValidationContextIngest:
		c.validateIngest(result)
		c.validateEmbedding(result)
		c.validateCache(result)
	case ValidationContextAsk:
		c.validateEmbedding(result)
		c.validateCache(result)
		c.validateQuery(result)
		c.validateLLM(result)
	}

	return result
}

// ValidateOrError returns a config error when validation fails.
func (c *Config) ValidateOrError(ctx ValidationContext) error {
	result := c.Validate(ctx)
	if result.HasErrors() {
		return errors.ConfigErrorf("%s", result.Error())
	}
	return nil
}

func (c *Config) validateGraph(result *ValidationResult) {
	switch c.Graph.Backend {
	case "neo4j":
		if c.Graph.URI == "" {
			result.AddError("graph.uri (NEO4J_URI) is required for the neo4j backend")
		} else if _, err := url.Parse(c.Graph.URI); err != nil {
			result.AddError("graph.uri is invalid: %v", err)
		}
		if c.Graph.User == "" {
			result.AddError("graph.user (NEO4J_USERNAME) is required for the neo4j backend")
		}
		if c.Graph.Password == "" {
			result.AddWarning("graph.password (NEO4J_PASSWORD) is not set")
		}
	case "kuzu":
		if c.Graph.KuzuPath == "" {
			result.AddError("graph.kuzu_path is required for the kuzu backend")
		}
	case "memory":
		result.AddWarning("graph.backend=memory does not persist between runs")
	default:
		result.AddError("graph.backend must be neo4j, kuzu or memory (got %q)", c.Graph.Backend)
	}
}

func (c *Config) validateVector(result *ValidationResult) {
	switch c.Vector.Backend {
	case "postgres":
		if c.Vector.DSN == "" {
			result.AddError("vector.dsn (POSTGRES_DSN) is required for the postgres backend")
		}
	case "sqlite":
		if c.Vector.SQLitePath == "" {
			result.AddError("vector.sqlite_path is required for the sqlite backend")
		}
	case "memory":
		result.AddWarning("vector.backend=memory does not persist between runs")
	default:
		result.AddError("vector.backend must be postgres, sqlite or memory (got %q)", c.Vector.Backend)
	}
	if !isIdentifier(c.Vector.Table) {
		result.AddError("vector.table %q is not a valid SQL identifier", c.Vector.Table)
	}
}

func (c *Config) validateIngest(result *ValidationResult) {
	if c.Ingest.Workers < 1 {
		result.AddError("ingest.workers must be at least 1")
	}
	if c.Ingest.BatchSize < 1 {
		result.AddError("ingest.batch_size must be at least 1")
	}
	if c.Ingest.EmbedConcurrency < 1 {
		result.AddError("ingest.embed_concurrency must be at least 1")
	}
	if len(c.Ingest.Extensions) == 0 {
		result.AddError("ingest.extensions must not be empty")
	}
}

func (c *Config) validateEmbedding(result *ValidationResult) {
	if err := validProvider(c.Embedding.Provider); err != nil {
		result.AddError("embedding.provider: %v", err)
		return
	}
	if c.LLM.APIKey(c.Embedding.Provider) == "" {
		result.AddError("no API key for embedding provider %s (set %s_API_KEY or run codegraph configure)",
			c.Embedding.Provider, strings.ToUpper(c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		result.AddError("embedding.dimensions must be positive")
	}
}

func (c *Config) validateLLM(result *ValidationResult) {
	if err := validProvider(c.LLM.Provider); err != nil {
		result.AddError("llm.provider: %v", err)
		return
	}
	if c.LLM.APIKey(c.LLM.Provider) == "" {
		result.AddError("no API key for llm provider %s", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		result.AddWarning("llm.timeout is not positive; generation calls will not be bounded")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	switch c.Cache.Backend {
	case "", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			result.AddError("cache.redis_addr is required for the redis cache")
		}
	case "bolt":
		if c.Cache.BoltPath == "" {
			result.AddError("cache.bolt_path is required for the bolt cache")
		}
	default:
		result.AddError("cache.backend must be none, redis or bolt (got %q)", c.Cache.Backend)
	}
}

func (c *Config) validateQuery(result *ValidationResult) {
	if c.Query.TopK < 1 {
		result.AddError("query.top_k must be at least 1")
	}
	if c.Query.MaxHops < 1 {
		result.AddError("query.max_hops must be at least 1")
	}
	if c.Query.NeighborLimit < 1 {
		result.AddError("query.neighbor_limit must be at least 1")
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
