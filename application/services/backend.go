package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
)

// QueryEmbedder produces an embedding for a search query. Implementations
// may fail (remote model down); hybrid search degrades to lexical-only.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// StoreBackend adapts a graph store and chunk store pair into a
// resolver-facing backend. All query semantics (closure traversal, hybrid
// ranking, definition filtering) live here, shared by every storage engine.
type StoreBackend struct {
	name     string
	kinds    map[valueobjects.RefKind]bool
	graph    ports.GraphStore
	chunks   ports.ChunkStore
	closure  *ClosureService
	ranking  *RankingService
	embedder QueryEmbedder
	cfg      *config.EngineConfig
	logger   *zap.Logger
}

// NewStoreBackend creates a backend over the given stores. kinds lists the
// project reference schemes this backend accepts; empty means all.
func NewStoreBackend(
	name string,
	kinds []valueobjects.RefKind,
	graph ports.GraphStore,
	chunks ports.ChunkStore,
	embedder QueryEmbedder,
	cfg *config.EngineConfig,
	logger *zap.Logger,
) *StoreBackend {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	kindSet := make(map[valueobjects.RefKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}
	return &StoreBackend{
		name:     name,
		kinds:    kindSet,
		graph:    graph,
		chunks:   chunks,
		closure:  NewClosureService(cfg, logger),
		ranking:  NewRankingService(cfg),
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Name returns the backend name
func (b *StoreBackend) Name() string {
	return b.name
}

// Accepts reports whether this backend serves the reference's keying scheme
func (b *StoreBackend) Accepts(ref valueobjects.ProjectRef) bool {
	if len(b.kinds) == 0 {
		return true
	}
	return b.kinds[ref.Kind()]
}

// Ping probes the underlying store
func (b *StoreBackend) Ping(ctx context.Context) error {
	return b.graph.Ping(ctx)
}

// Stores exposes the underlying ports for the ingestion path
func (b *StoreBackend) Stores() (ports.GraphStore, ports.ChunkStore) {
	return b.graph, b.chunks
}

// DependencyGraph computes the bounded dependency closure from the roots
func (b *StoreBackend) DependencyGraph(ctx context.Context, ref valueobjects.ProjectRef, roots []string, maxDepth int) ([]ports.DependencyEdge, error) {
	return b.closure.Compute(ctx, b.graph, ref.String(), roots, maxDepth)
}

// Search runs hybrid lexical/semantic search over the project's chunks.
// The lexical rank always participates; the semantic rank joins only for
// chunks that have an embedding whose similarity clears the threshold.
// A project with no embeddings degrades to lexical-only, never an error.
func (b *StoreBackend) Search(ctx context.Context, ref valueobjects.ProjectRef, query string, filters ports.ChunkFilters, limit int) ([]ports.SearchHit, error) {
	if limit <= 0 || limit > b.cfg.MaxSearchLimit {
		limit = b.cfg.DefaultSearchLimit
	}

	candidates, err := b.chunks.SearchChunks(ctx, ref.String(), query, filters, b.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var queryVec []float32
	if b.embedder != nil {
		queryVec, err = b.embedder.EmbedQuery(ctx, query)
		if err != nil {
			b.logger.Warn("query embedding unavailable, search degrades to lexical",
				zap.String("backend", b.name),
				zap.Error(err),
			)
			queryVec = nil
		}
	}

	hits := make([]ports.SearchHit, 0, len(candidates))
	for _, cand := range candidates {
		hit := ports.SearchHit{
			ChunkID:     cand.Chunk.ID().String(),
			NodeID:      cand.Chunk.NodeID().String(),
			NodeName:    cand.NodeName,
			NodePath:    cand.NodePath,
			ChunkType:   cand.Chunk.Type(),
			Language:    cand.Chunk.Language(),
			Content:     cand.Chunk.Content(),
			LexicalRank: cand.LexicalRank,
			Rank:        cand.LexicalRank,
			CreatedAt:   cand.Chunk.CreatedAt(),
		}

		if queryVec != nil {
			emb, err := b.chunks.GetEmbedding(ctx, hit.ChunkID)
			if err == nil && emb != nil {
				sim := b.ranking.CosineSimilarity(queryVec, emb.Vector())
				if b.ranking.MeetsThreshold(sim) {
					hit.SemanticRank = sim
					hit.Rank = b.ranking.Blend(hit.LexicalRank, sim)
				}
			}
		}

		hits = append(hits, hit)
	}

	// rank decides, recency breaks ties
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Rank != hits[j].Rank {
			return hits[i].Rank > hits[j].Rank
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// FindDefinitions looks up definition-bearing nodes by exact name
func (b *StoreBackend) FindDefinitions(ctx context.Context, ref valueobjects.ProjectRef, name string, filters ports.NodeFilters) ([]*entities.Node, error) {
	nodes, err := b.graph.FindNodesByName(ctx, ref.String(), name, filters)
	if err != nil {
		return nil, err
	}

	defs := make([]*entities.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsDefinition() {
			defs = append(defs, n)
		}
	}

	// newest definition first so re-ingested symbols surface their latest site
	sort.SliceStable(defs, func(i, j int) bool {
		if !defs[i].CreatedAt().Equal(defs[j].CreatedAt()) {
			return defs[i].CreatedAt().After(defs[j].CreatedAt())
		}
		if defs[i].Path() != defs[j].Path() {
			return defs[i].Path() < defs[j].Path()
		}
		return defs[i].Name() < defs[j].Name()
	})

	if len(defs) > b.cfg.MaxDefinitionResults {
		defs = defs[:b.cfg.MaxDefinitionResults]
	}
	return defs, nil
}

// FindReferences lists recorded occurrences of a symbol name
func (b *StoreBackend) FindReferences(ctx context.Context, ref valueobjects.ProjectRef, name string, limit int) ([]ports.ReferenceHit, error) {
	if limit <= 0 || limit > b.cfg.MaxReferenceResults {
		limit = b.cfg.MaxReferenceResults
	}
	return b.graph.ListReferences(ctx, ref.String(), name, limit)
}

// ListDiagnostics lists stored analyzer findings
func (b *StoreBackend) ListDiagnostics(ctx context.Context, ref valueobjects.ProjectRef, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error) {
	return b.graph.ListDiagnostics(ctx, ref.String(), path, severity, limit)
}

// Stats summarizes the stored graph for the project
func (b *StoreBackend) Stats(ctx context.Context, ref valueobjects.ProjectRef) (*ports.ProjectStats, error) {
	return b.graph.ProjectStats(ctx, ref.String())
}
