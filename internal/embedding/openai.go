package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls the OpenAI embeddings API. OpenAI models have no
// task types, so Purpose is ignored.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
	logger *slog.Logger
}

// NewOpenAIEmbedder creates a client. dims <= 0 keeps the model default,
// which for text-embedding-3-large is 3072.
func NewOpenAIEmbedder(apiKey, model string, dims int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = string(openai.LargeEmbedding3)
	}

	logger := slog.Default().With("component", "openai_embedder", "model", model)
	logger.Info("openai embedder initialized", "dimensions", dims)

	return &OpenAIEmbedder{client: openai.NewClient(apiKey), model: model, dims: dims, logger: logger}, nil
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string, _ Purpose) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: max(o.dims, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}
	return resp.Data[0].Embedding, nil
}

func (o *OpenAIEmbedder) Model() string   { return o.model }
func (o *OpenAIEmbedder) Dimensions() int { return o.dims }
