package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	pkgerrors "ckg-backend/pkg/errors"
)

// OpenAIProvider computes embeddings through the OpenAI embeddings API
type OpenAIProvider struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIProvider creates a provider for the given model. An empty model
// defaults to text-embedding-3-small.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	embeddingModel := openai.SmallEmbedding3
	dimensions := 1536
	if model != "" {
		embeddingModel = openai.EmbeddingModel(model)
	}
	if embeddingModel == openai.LargeEmbedding3 {
		dimensions = 3072
	}

	return &OpenAIProvider{
		client:     openai.NewClient(apiKey),
		model:      embeddingModel,
		dimensions: dimensions,
	}
}

// Embed implements Provider
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return nil, pkgerrors.NewExternalError("openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, pkgerrors.NewExternalError("openai", fmt.Errorf("embeddings response was empty"))
	}
	return resp.Data[0].Embedding, nil
}

// Model implements Provider
func (p *OpenAIProvider) Model() string {
	return string(p.model)
}

// Dimensions implements Provider
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}
