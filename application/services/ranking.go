package services

import (
	"math"

	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
)

// RankingService blends lexical and semantic ranks for hybrid search
type RankingService struct {
	cfg *config.EngineConfig
}

// NewRankingService creates a new ranking service
func NewRankingService(cfg *config.EngineConfig) *RankingService {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	return &RankingService{cfg: cfg}
}

// LexicalScore computes token overlap between a query and chunk tokens,
// normalized to [0, 1] by the query length.
func (s *RankingService) LexicalScore(queryTokens, chunkTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	index := make(map[string]bool, len(chunkTokens))
	for _, t := range chunkTokens {
		index[t] = true
	}

	matched := 0
	for _, t := range queryTokens {
		if index[t] {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTokens))
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0.
func (s *RankingService) CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MeetsThreshold reports whether a semantic similarity is strong enough to
// participate in blending.
func (s *RankingService) MeetsThreshold(similarity float64) bool {
	return similarity >= s.cfg.SimilarityThreshold
}

// Blend combines a lexical and a semantic rank into the final rank
func (s *RankingService) Blend(lexical, semantic float64) float64 {
	total := s.cfg.LexicalWeight + s.cfg.SemanticWeight
	return (s.cfg.LexicalWeight*lexical + s.cfg.SemanticWeight*semantic) / total
}

// TokenizeQuery extracts index tokens from a search query
func (s *RankingService) TokenizeQuery(query string) []string {
	return entities.IndexTokens(query)
}
