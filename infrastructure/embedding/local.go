package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"ckg-backend/domain/core/entities"
)

const localDimensions = 256

// LocalProvider computes deterministic feature-hash embeddings without any
// external service. Each token of the text is hashed into one of the
// vector's buckets and the result is L2-normalized, so identical texts
// always produce identical vectors. Useful for development and tests.
type LocalProvider struct{}

// NewLocalProvider creates a local feature-hash provider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Embed implements Provider
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, localDimensions)

	for _, token := range entities.IndexTokens(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := sum % localDimensions
		// Second hash bit picks the sign so collisions cancel instead
		// of compounding.
		sign := float32(1)
		if (sum>>16)&1 == 1 {
			sign = -1
		}
		vector[bucket] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

// Model implements Provider
func (p *LocalProvider) Model() string {
	return "local-feature-hash-v1"
}

// Dimensions implements Provider
func (p *LocalProvider) Dimensions() int {
	return localDimensions
}
