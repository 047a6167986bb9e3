package services

import (
	"testing"

	"ckg-backend/domain/config"

	"github.com/stretchr/testify/assert"
)

func TestLexicalScore(t *testing.T) {
	svc := NewRankingService(config.DefaultEngineConfig())

	score := svc.LexicalScore([]string{"user", "profile"}, []string{"user", "profile", "cache"})
	assert.InDelta(t, 1.0, score, 1e-9)

	score = svc.LexicalScore([]string{"user", "missing"}, []string{"user"})
	assert.InDelta(t, 0.5, score, 1e-9)

	assert.Zero(t, svc.LexicalScore(nil, []string{"user"}))
	assert.Zero(t, svc.LexicalScore([]string{"user"}, nil))
}

func TestCosineSimilarity(t *testing.T) {
	svc := NewRankingService(config.DefaultEngineConfig())

	assert.InDelta(t, 1.0, svc.CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, svc.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, svc.CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// mismatched dimensions and zero vectors are not comparable
	assert.Zero(t, svc.CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, svc.CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, svc.CosineSimilarity(nil, nil))
}

func TestMeetsThreshold(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	svc := NewRankingService(cfg)

	assert.True(t, svc.MeetsThreshold(cfg.SimilarityThreshold))
	assert.True(t, svc.MeetsThreshold(0.9))
	assert.False(t, svc.MeetsThreshold(cfg.SimilarityThreshold-0.01))
}

func TestBlend(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	svc := NewRankingService(cfg)

	blended := svc.Blend(1.0, 0.5)
	assert.InDelta(t, cfg.LexicalWeight*1.0+cfg.SemanticWeight*0.5, blended, 1e-9)

	// lexical-only hits still rank
	assert.InDelta(t, cfg.LexicalWeight, svc.Blend(1.0, 0), 1e-9)
}

func TestTokenizeQuery(t *testing.T) {
	svc := NewRankingService(config.DefaultEngineConfig())

	tokens := svc.TokenizeQuery("parse userConfig")
	assert.Contains(t, tokens, "parse")
	assert.Contains(t, tokens, "userconfig")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "config")
}
