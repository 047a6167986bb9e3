package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/application/queries"
	"ckg-backend/application/queries/bus"
	"ckg-backend/application/services"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"
)

// FindDefinitionsHandler serves definition lookup queries
type FindDefinitionsHandler struct {
	executor *services.QueryExecutor
	cache    ports.Cache
	cacheTTL time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFindDefinitionsHandler creates a new definitions query handler
func NewFindDefinitionsHandler(
	executor *services.QueryExecutor,
	cache ports.Cache,
	cacheTTL time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *FindDefinitionsHandler {
	return &FindDefinitionsHandler{
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle implements bus.QueryHandler
func (h *FindDefinitionsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.FindDefinitionsQuery)
	if !ok {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid query type: %T", query))
	}

	key := services.CacheKey("definitions", q.ProjectRef,
		q.Name, strings.Join(q.Types, ","), q.Language)
	if cached, ok := h.cache.Get(ctx, key); ok {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	filters := q.Filters()
	result, backendName, noData, err := h.executor.Execute(ctx, q.ProjectRef, "find_definitions",
		func(ctx context.Context, backend ports.Backend) (interface{}, bool, error) {
			nodes, err := backend.FindDefinitions(ctx, q.ProjectRef, q.Name, filters)
			if err != nil {
				return nil, false, err
			}
			if len(nodes) == 0 {
				return nil, true, nil
			}
			return nodes, false, nil
		})
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, nil
	}

	nodes := result.([]*entities.Node)
	definitions := make([]queries.SymbolDefinition, 0, len(nodes))
	for _, node := range nodes {
		definitions = append(definitions, queries.SymbolDefinition{
			NodeID:    node.ID().String(),
			Name:      node.Name(),
			Type:      node.Type(),
			Kind:      string(node.Kind()),
			Path:      node.Path(),
			Language:  node.Language(),
			UpdatedAt: node.UpdatedAt(),
		})
	}

	out := &queries.FindDefinitionsResult{
		ProjectKey:  q.ProjectRef.String(),
		Backend:     backendName,
		Name:        q.Name,
		Definitions: definitions,
	}
	h.cache.Set(ctx, key, q.ProjectRef.String(), out, h.cacheTTL)
	return out, nil
}

// FindReferencesHandler serves symbol occurrence queries
type FindReferencesHandler struct {
	executor *services.QueryExecutor
	cache    ports.Cache
	cacheTTL time.Duration
	cfg      *config.EngineConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFindReferencesHandler creates a new references query handler
func NewFindReferencesHandler(
	executor *services.QueryExecutor,
	cache ports.Cache,
	cacheTTL time.Duration,
	cfg *config.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *FindReferencesHandler {
	return &FindReferencesHandler{
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle implements bus.QueryHandler
func (h *FindReferencesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.FindReferencesQuery)
	if !ok {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid query type: %T", query))
	}

	limit := q.Limit
	if limit <= 0 || limit > h.cfg.MaxReferenceResults {
		limit = h.cfg.MaxReferenceResults
	}

	key := services.CacheKey("references", q.ProjectRef, q.Name, fmt.Sprintf("%d", limit))
	if cached, ok := h.cache.Get(ctx, key); ok {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	result, backendName, noData, err := h.executor.Execute(ctx, q.ProjectRef, "find_references",
		func(ctx context.Context, backend ports.Backend) (interface{}, bool, error) {
			hits, err := backend.FindReferences(ctx, q.ProjectRef, q.Name, limit)
			if err != nil {
				return nil, false, err
			}
			if len(hits) == 0 {
				return nil, true, nil
			}
			return hits, false, nil
		})
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, nil
	}

	hits := result.([]ports.ReferenceHit)
	occurrences := make([]queries.SymbolOccurrence, 0, len(hits))
	for _, hit := range hits {
		ref := hit.Reference
		occurrences = append(occurrences, queries.SymbolOccurrence{
			SymbolName:    ref.SymbolName(),
			ReferenceType: ref.Type(),
			Path:          ref.LocationPath(),
			Line:          ref.Position().Line,
			Column:        ref.Position().Column,
			Context:       ref.Context(),
		})
	}

	out := &queries.FindReferencesResult{
		ProjectKey:  q.ProjectRef.String(),
		Backend:     backendName,
		Name:        q.Name,
		Occurrences: occurrences,
	}
	h.cache.Set(ctx, key, q.ProjectRef.String(), out, h.cacheTTL)
	return out, nil
}
