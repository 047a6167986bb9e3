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
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"
)

// SearchCodeHandler serves hybrid search queries
type SearchCodeHandler struct {
	executor *services.QueryExecutor
	cache    ports.Cache
	cacheTTL time.Duration
	cfg      *config.EngineConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSearchCodeHandler creates a new search query handler
func NewSearchCodeHandler(
	executor *services.QueryExecutor,
	cache ports.Cache,
	cacheTTL time.Duration,
	cfg *config.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SearchCodeHandler {
	return &SearchCodeHandler{
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle implements bus.QueryHandler
func (h *SearchCodeHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.SearchCodeQuery)
	if !ok {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid query type: %T", query))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = h.cfg.DefaultSearchLimit
	}
	if limit > h.cfg.MaxSearchLimit {
		limit = h.cfg.MaxSearchLimit
	}

	key := services.CacheKey("search", q.ProjectRef,
		q.Query, strings.Join(q.ChunkTypes, ","), q.Language, fmt.Sprintf("%d", limit))
	if cached, ok := h.cache.Get(ctx, key); ok {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	filters := q.Filters()
	result, backendName, noData, err := h.executor.Execute(ctx, q.ProjectRef, "search",
		func(ctx context.Context, backend ports.Backend) (interface{}, bool, error) {
			hits, err := backend.Search(ctx, q.ProjectRef, q.Query, filters, limit)
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

	out := &queries.SearchCodeResult{
		ProjectKey: q.ProjectRef.String(),
		Backend:    backendName,
		Query:      q.Query,
		Hits:       result.([]ports.SearchHit),
	}
	h.cache.Set(ctx, key, q.ProjectRef.String(), out, h.cacheTTL)
	return out, nil
}
