package config

import pkgerrors "ckg-backend/pkg/errors"

// EngineConfig holds all configurable query engine rules and constraints
type EngineConfig struct {
	// Traversal constraints
	HopDecay        float64
	DefaultMaxDepth int
	MaxDepthLimit   int
	MaxVisitedNodes int

	// Hybrid search tuning
	SimilarityThreshold float64
	LexicalWeight       float64
	SemanticWeight      float64
	MaxCandidates       int
	DefaultSearchLimit  int
	MaxSearchLimit      int

	// Symbol lookup limits
	MaxDefinitionResults int
	MaxReferenceResults  int

	// Edge constraints
	MaxEdgeWeight     float64
	DefaultEdgeWeight float64
	DefaultConfidence float64
}

// DefaultEngineConfig returns the default engine configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		// Traversal constraints
		HopDecay:        0.8,
		DefaultMaxDepth: 3,
		MaxDepthLimit:   10,
		MaxVisitedNodes: 10000,

		// Hybrid search tuning
		SimilarityThreshold: 0.5,
		LexicalWeight:       0.6,
		SemanticWeight:      0.4,
		MaxCandidates:       200,
		DefaultSearchLimit:  20,
		MaxSearchLimit:      100,

		// Symbol lookup limits
		MaxDefinitionResults: 50,
		MaxReferenceResults:  200,

		// Edge constraints
		MaxEdgeWeight:     100.0,
		DefaultEdgeWeight: 1.0,
		DefaultConfidence: 1.0,
	}
}

// Validate checks configuration invariants
func (c *EngineConfig) Validate() error {
	if c.HopDecay <= 0 || c.HopDecay > 1 {
		return pkgerrors.NewValidationError("hop decay must be in (0, 1]")
	}
	if c.DefaultMaxDepth < 1 {
		return pkgerrors.NewValidationError("default max depth must be at least 1")
	}
	if c.MaxDepthLimit < c.DefaultMaxDepth {
		return pkgerrors.NewValidationError("max depth limit cannot be below the default depth")
	}
	if c.MaxVisitedNodes < 1 {
		return pkgerrors.NewValidationError("max visited nodes must be positive")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return pkgerrors.NewValidationError("similarity threshold must be in [0, 1]")
	}
	if c.LexicalWeight < 0 || c.SemanticWeight < 0 {
		return pkgerrors.NewValidationError("rank weights cannot be negative")
	}
	if c.LexicalWeight+c.SemanticWeight == 0 {
		return pkgerrors.NewValidationError("at least one rank weight must be positive")
	}
	return nil
}
