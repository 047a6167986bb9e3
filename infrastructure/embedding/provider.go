package embedding

import "context"

// Provider computes embedding vectors for code chunks and search queries
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimensions() int
}
