package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Gemini task types.
const (
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskCodeRetrievalQuery = "CODE_RETRIEVAL_QUERY"
)

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
	logger *slog.Logger
}

// NewGeminiEmbedder creates a client for model at dims output dimensions.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dims <= 0 {
		dims = 3072
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger := slog.Default().With("component", "gemini_embedder", "model", model)
	logger.Info("gemini embedder initialized", "dimensions", dims)

	return &GeminiEmbedder{client: client, model: model, dims: dims, logger: logger}, nil
}

// TaskType maps a Purpose to the Gemini task type.
func TaskType(p Purpose) string {
	if p == PurposeQuery {
		return TaskCodeRetrievalQuery
	}
	return TaskRetrievalDocument
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	dims := int32(g.dims)
	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		genai.Text(text),
		&genai.EmbedContentConfig{
			TaskType:             TaskType(purpose),
			OutputDimensionality: &dims,
		})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini returned no embeddings")
	}

	values := resp.Embeddings[0].Values
	if len(values) != g.dims {
		return nil, fmt.Errorf("gemini returned %d dimensions, want %d", len(values), g.dims)
	}
	return values, nil
}

func (g *GeminiEmbedder) Model() string   { return g.model }
func (g *GeminiEmbedder) Dimensions() int { return g.dims }
