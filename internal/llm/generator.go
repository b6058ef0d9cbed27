// Package llm turns an assembled context into a grounded answer.
package llm

import (
	"context"
	"fmt"

	"github.com/rohankatakam/codegraph/internal/session"
)

// Provider names a generative model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Generator produces a reply to prompt given the prior turns.
type Generator interface {
	Generate(ctx context.Context, system string, history []session.Turn, prompt string) (string, error)
	Model() string
}

// Config selects and configures a Generator.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
}

// NewGenerator builds the Generator named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch Provider(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
