// Package embedding turns chunk text and queries into vectors.
package embedding

import (
	"context"
	"fmt"
)

// Purpose selects the provider task type. Documents and queries are
// embedded asymmetrically.
type Purpose int

const (
	PurposeDocument Purpose = iota
	PurposeQuery
)

func (p Purpose) String() string {
	if p == PurposeQuery {
		return "query"
	}
	return "document"
}

// Embedder produces one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error)
	// Model identifies the model and dimensionality, for cache keys and logs.
	Model() string
	Dimensions() int
}

// Config selects and configures an Embedder.
type Config struct {
	Provider   string
	Model      string
	Dimensions int
	APIKey     string
}

// New builds the provider client named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions)
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
